package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reel/internal/config"
)

const userAgent = "Reel/0.1.0"

// Event identifies a daemon milestone that can be pushed to subscribers.
type Event string

const (
	EventSourceLive     Event = "source_live"
	EventSourceOffline  Event = "source_offline"
	EventCaptureStarted Event = "capture_started"
	EventCaptureStopped Event = "capture_stopped"
	EventCaptureFailed  Event = "capture_failed"
	EventClipCompleted  Event = "clip_completed"
	EventClipFailed     Event = "clip_failed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event-specific fields used to format the outgoing message.
type Payload map[string]string

// Service defines the notification surface exposed to daemon components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		sessionEvents: cfg.Notifications.SessionEvents,
		clipEvents:    cfg.Notifications.ClipEvents,
		errorEvents:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sessionEvents bool
	clipEvents    bool
	errorEvents   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	data, err := format(event, payload)
	if err != nil {
		return err
	}
	return n.send(ctx, data)
}

// enabled maps each event onto the config toggle that mutes its class.
// Test notifications always go through so `reel notify test` works even
// with every class muted.
func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventSourceLive, EventSourceOffline, EventCaptureStarted, EventCaptureStopped:
		return n.sessionEvents
	case EventClipCompleted, EventClipFailed:
		return n.clipEvents
	case EventCaptureFailed, EventError:
		return n.errorEvents
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, error) {
	get := func(key string) string {
		return strings.TrimSpace(payload[key])
	}

	switch event {
	case EventSourceLive:
		body := fmt.Sprintf("🔴 Live: %s", get("source"))
		if title := get("title"); title != "" {
			body = fmt.Sprintf("%s\n%s", body, title)
		}
		return message{
			title: "Reel - Live",
			body:  body,
			tags:  []string{"reel", "monitor", "live"},
		}, nil
	case EventSourceOffline:
		return message{
			title: "Reel - Offline",
			body:  fmt.Sprintf("Offline: %s", get("source")),
			tags:  []string{"reel", "monitor", "offline"},
		}, nil
	case EventCaptureStarted:
		return message{
			title: "Reel - Buffering",
			body:  fmt.Sprintf("🎥 Buffering started: %s", get("source")),
			tags:  []string{"reel", "capture", "started"},
		}, nil
	case EventCaptureStopped:
		body := fmt.Sprintf("Buffering stopped: %s", get("source"))
		if buffered := get("buffered"); buffered != "" {
			body = fmt.Sprintf("%s\nBuffered: %s", body, buffered)
		}
		return message{
			title: "Reel - Stopped",
			body:  body,
			tags:  []string{"reel", "capture", "stopped"},
		}, nil
	case EventCaptureFailed:
		body := fmt.Sprintf("❌ Capture failed: %s", get("source"))
		if reason := get("reason"); reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{
			title:    "Reel - Capture Failed",
			body:     body,
			tags:     []string{"reel", "capture", "failed"},
			priority: "high",
		}, nil
	case EventClipCompleted:
		body := fmt.Sprintf("✅ Clip ready: %s", get("source"))
		if file := get("file"); file != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, file)
		}
		return message{
			title:    "Reel - Clip Ready",
			body:     body,
			tags:     []string{"reel", "clip", "completed"},
			priority: "high",
		}, nil
	case EventClipFailed:
		body := fmt.Sprintf("❌ Clip failed: %s", get("source"))
		if reason := get("reason"); reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{
			title:    "Reel - Clip Failed",
			body:     body,
			tags:     []string{"reel", "clip", "failed"},
			priority: "high",
		}, nil
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if contextLabel := get("context"); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		if errText := get("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Reel - Error",
			body:     builder.String(),
			tags:     []string{"reel", "error", "alert"},
			priority: "high",
		}, nil
	case EventTest:
		return message{
			title:    "Reel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reel", "test"},
			priority: "low",
		}, nil
	default:
		return message{}, fmt.Errorf("unknown notification event %q", event)
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
