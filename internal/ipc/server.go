package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"reel/internal/api"
	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/daemon"
	"reel/internal/logging"
	"reel/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Reel", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun reel daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = api.FormatTime(status.StartedAt)
	resp.Version = status.Version
	resp.Sources = api.FromSourceStates(status.Sources)
	resp.ClipCounts = api.FromClipCounts(status.ClipCounts)
	resp.Dependencies = api.FromDependencies(status.Dependencies)
	resp.SocketPath = status.SocketPath
	resp.DatabasePath = status.DatabasePath
	resp.LogPath = status.LogPath
	if status.Session != nil {
		session := api.FromSessionStatus(*status.Session)
		resp.Session = &session
	}
	return nil
}

func (s *service) StartSession(req StartSessionRequest, resp *StartSessionResponse) error {
	s.log().Debug("session start requested", logging.String(logging.FieldSource, req.Source))
	status, err := s.daemon.StartSession(req.Source, req.Quality)
	if err != nil {
		return err
	}
	resp.Session = api.FromSessionStatus(status)
	return nil
}

func (s *service) StopSession(_ StopSessionRequest, resp *StopSessionResponse) error {
	s.log().Debug("session stop requested")
	err := s.daemon.StopSession(s.ctx)
	if errors.Is(err, capture.ErrNoSession) {
		resp.Stopped = false
		return nil
	}
	if err != nil {
		return err
	}
	resp.Stopped = true
	return nil
}

func (s *service) BufferStatus(_ BufferStatusRequest, resp *BufferStatusResponse) error {
	status, ok := s.daemon.BufferStatus()
	resp.Active = ok
	if ok {
		resp.Buffer = api.FromBufferStatus(status)
	}
	return nil
}

func (s *service) CreateClip(req CreateClipRequest, resp *CreateClipResponse) error {
	row, err := s.daemon.CreateClip(s.ctx, daemon.CreateClipRequest{
		StartAgo:   secondsToDuration(req.StartAgoSeconds),
		Duration:   secondsToDuration(req.DurationSeconds),
		Format:     req.Format,
		Title:      req.Title,
		OutputPath: req.OutputPath,
	})
	if err != nil {
		return err
	}
	resp.Clip = api.FromClip(row)
	return nil
}

func (s *service) ClipStatus(req ClipStatusRequest, resp *ClipStatusResponse) error {
	row, err := s.daemon.ClipStatus(s.ctx, req.ID, req.RequestID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("clip not found")
	}
	resp.Clip = api.FromClip(row)
	return nil
}

func (s *service) ListClips(req ListClipsRequest, resp *ListClipsResponse) error {
	statuses := make([]clips.Status, 0, len(req.Statuses))
	for _, value := range req.Statuses {
		status, ok := clips.ParseStatus(value)
		if !ok {
			return fmt.Errorf("unknown clip status %q", value)
		}
		statuses = append(statuses, status)
	}
	rows, err := s.daemon.ListClips(s.ctx, req.Limit, statuses...)
	if err != nil {
		return err
	}
	resp.Clips = api.FromClips(rows)
	return nil
}

func (s *service) RemoveClip(req RemoveClipRequest, resp *RemoveClipResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid clip id %d", req.ID)
	}
	removed, err := s.daemon.RemoveClip(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) ListSources(_ ListSourcesRequest, resp *ListSourcesResponse) error {
	states, err := s.daemon.ListSources()
	if err != nil {
		return err
	}
	resp.Sources = api.FromSourceStates(states)
	return nil
}

func (s *service) AddSource(req AddSourceRequest, resp *AddSourceResponse) error {
	source, err := s.daemon.AddSource(req.Source)
	if err != nil {
		return err
	}
	resp.Source = source
	s.log().Info("source added to monitor",
		logging.String(logging.FieldEventType, "monitor_source_added"),
		logging.String(logging.FieldSource, source))
	return nil
}

func (s *service) RemoveSource(req RemoveSourceRequest, resp *RemoveSourceResponse) error {
	if err := s.daemon.RemoveSource(req.Source); err != nil {
		return err
	}
	resp.Removed = true
	s.log().Info("source removed from monitor",
		logging.String(logging.FieldEventType, "monitor_source_removed"),
		logging.String(logging.FieldSource, req.Source))
	return nil
}

func (s *service) ProbeSource(req ProbeSourceRequest, resp *ProbeSourceResponse) error {
	probe, err := s.daemon.ProbeSource(s.ctx, req.Source)
	if err != nil {
		return err
	}
	resp.Result = api.FromProbe(req.Source, probe)
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.log().Info("shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	if !s.daemon.RequestShutdown() {
		resp.Initiated = false
		resp.Message = "daemon does not accept remote shutdown"
		return nil
	}
	resp.Initiated = true
	resp.Message = "shutdown initiated"
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	resp.Path = health.Path
	resp.Exists = health.Exists
	resp.Readable = health.Readable
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalClips = health.TotalClips
	resp.Error = health.Error
	return err
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
