package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/services/streamlink"
)

// Status is the last known liveness of a monitored source.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusLive    Status = "live"
	StatusOffline Status = "offline"
)

// EventType identifies a liveness transition.
type EventType string

const (
	EventWentLive    EventType = "went_live"
	EventWentOffline EventType = "went_offline"
)

// Event describes one liveness transition of a monitored source.
type Event struct {
	Type   EventType
	Source string
	Title  string
}

// EventHook receives transition events. The hook runs on the prober
// goroutine and must not block.
type EventHook func(Event)

var (
	ErrMonitorRunning     = errors.New("monitor already running")
	ErrSourceMonitored    = errors.New("source already monitored")
	ErrSourceNotMonitored = errors.New("source not monitored")
)

// SourceState is a point-in-time view of one monitored source.
type SourceState struct {
	Source string
	Status Status
	// Title is the stream title from the most recent live probe.
	Title          string
	LastChecked    time.Time
	LastTransition time.Time
	// ProbeErrors counts consecutive failed probes; reset on any answer.
	ProbeErrors int
}

// Prober polls each monitored source on a fixed interval and tracks its
// live/offline state. An unreachable probe leaves the state untouched; only
// a definitive answer can move it. A source first seen offline settles
// silently, so daemon restarts do not replay stale went-offline events.
type Prober struct {
	interval time.Duration
	probe    streamlink.Prober
	logger   *slog.Logger
	hook     EventHook
	clock    func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	order   []string
	states  map[string]*SourceState
	wg      sync.WaitGroup
}

// New builds a Prober over the configured source list. hook may be nil.
func New(cfg *config.Config, probe streamlink.Prober, logger *slog.Logger, hook EventHook) *Prober {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Prober{
		interval: cfg.MonitorInterval(),
		probe:    probe,
		logger:   logger.With(logging.String(logging.FieldComponent, "monitor")),
		hook:     hook,
		clock:    time.Now,
		states:   make(map[string]*SourceState),
	}
	p.SetSources(cfg.Monitor.Sources)
	return p
}

// Start launches the polling loop. The first sweep runs immediately.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrMonitorRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.wg.Add(1)
	sources := len(p.order)
	p.mu.Unlock()

	go p.loop(runCtx)

	p.logger.Info("monitor started",
		logging.Int("sources", sources),
		logging.Duration("interval", p.tickInterval()))
	return nil
}

// Stop cancels the polling loop and waits for it to exit. Safe to call
// repeatedly; the prober can be started again afterwards.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.cancel = nil
	p.running = false
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("monitor stopped")
}

// Running reports whether the polling loop is active.
func (p *Prober) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SetSources replaces the monitored set. Sources that stay keep their known
// state; new ones start unknown. Entries that cannot be normalized are
// dropped with a warning.
func (p *Prober) SetSources(sources []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[string]*SourceState, len(sources))
	order := make([]string, 0, len(sources))
	for _, raw := range sources {
		source, err := streamlink.NormalizeSource(raw)
		if err != nil {
			if strings.TrimSpace(raw) != "" {
				p.logger.Warn("skipping monitored source",
					logging.String("source", raw), logging.Error(err))
			}
			continue
		}
		if _, dup := next[source]; dup {
			continue
		}
		if existing, ok := p.states[source]; ok {
			next[source] = existing
		} else {
			next[source] = &SourceState{Source: source, Status: StatusUnknown}
		}
		order = append(order, source)
	}
	p.states = next
	p.order = order
}

// AddSource starts monitoring one source and returns its normalized form.
func (p *Prober) AddSource(source string) (string, error) {
	normalized, err := streamlink.NormalizeSource(source)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.states[normalized]; ok {
		return "", ErrSourceMonitored
	}
	p.states[normalized] = &SourceState{Source: normalized, Status: StatusUnknown}
	p.order = append(p.order, normalized)
	return normalized, nil
}

// RemoveSource stops monitoring one source. The argument may be the raw or
// normalized form.
func (p *Prober) RemoveSource(source string) error {
	if normalized, err := streamlink.NormalizeSource(source); err == nil {
		source = normalized
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.states[source]; !ok {
		return ErrSourceNotMonitored
	}
	delete(p.states, source)
	for i, existing := range p.order {
		if existing == source {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// Snapshot returns the monitored sources in configuration order.
func (p *Prober) Snapshot() []SourceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SourceState, 0, len(p.order))
	for _, source := range p.order {
		if state, ok := p.states[source]; ok {
			out = append(out, *state)
		}
	}
	return out
}

func (p *Prober) loop(ctx context.Context) {
	defer p.wg.Done()

	p.sweep(ctx)

	ticker := time.NewTicker(p.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Prober) tickInterval() time.Duration {
	if p.interval <= 0 {
		return 60 * time.Second
	}
	return p.interval
}

func (p *Prober) sweep(ctx context.Context) {
	p.mu.Lock()
	sources := make([]string, len(p.order))
	copy(sources, p.order)
	p.mu.Unlock()

	for _, source := range sources {
		if ctx.Err() != nil {
			return
		}
		p.probeOne(ctx, source)
	}
}

func (p *Prober) probeOne(ctx context.Context, source string) {
	probe, err := p.probe.Probe(ctx, source)
	now := p.clock()

	p.mu.Lock()
	state, ok := p.states[source]
	if !ok {
		// Removed while the sweep was in flight.
		p.mu.Unlock()
		return
	}
	state.LastChecked = now
	if err != nil {
		state.ProbeErrors++
		failures := state.ProbeErrors
		p.mu.Unlock()
		if ctx.Err() == nil {
			p.logger.Warn("probe failed",
				logging.String("source", source),
				logging.Int("consecutive_errors", failures),
				logging.Error(err))
		}
		return
	}
	state.ProbeErrors = 0
	if probe.Title != "" {
		state.Title = probe.Title
	}
	next := StatusOffline
	if probe.Live {
		next = StatusLive
	}
	previous := state.Status
	state.Status = next
	var event *Event
	if previous != next {
		state.LastTransition = now
		switch {
		case next == StatusLive:
			event = &Event{Type: EventWentLive, Source: source, Title: state.Title}
		case previous == StatusLive:
			event = &Event{Type: EventWentOffline, Source: source, Title: state.Title}
		}
	}
	p.mu.Unlock()

	if event != nil {
		message := "source went live"
		if event.Type == EventWentOffline {
			message = "source went offline"
		}
		p.logger.Info(message, logging.String("source", source))
		if p.hook != nil {
			p.hook(*event)
		}
	}
}
