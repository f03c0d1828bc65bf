package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"reel/internal/api"
	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/services"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/session", authMiddleware(srv.token, srv.handleSession))
	mux.HandleFunc("/api/clips", authMiddleware(srv.token, srv.handleClips))
	mux.HandleFunc("/api/clips/", authMiddleware(srv.token, srv.handleClip))
	mux.HandleFunc("/api/sources", authMiddleware(srv.token, srv.handleSources))
	mux.HandleFunc("/api/logs", authMiddleware(srv.token, srv.handleLogs))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StartedAt:    api.FormatTime(status.StartedAt),
		Version:      status.Version,
		Sources:      api.FromSourceStates(status.Sources),
		ClipCounts:   api.FromClipCounts(status.ClipCounts),
		Dependencies: api.FromDependencies(status.Dependencies),
		SocketPath:   status.SocketPath,
		DatabasePath: status.DatabasePath,
		LogPath:      status.LogPath,
	}
	if status.Session != nil {
		session := api.FromSessionStatus(*status.Session)
		payload.Session = &session
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload api.SessionResponse
	if status, ok := s.daemon.SessionStatus(); ok {
		session := api.FromSessionStatus(status)
		payload.Session = &session
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// clipCreateBody is the POST /api/clips request payload.
type clipCreateBody struct {
	StartAgoSeconds float64 `json:"startAgoSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	Format          string  `json:"format"`
	Title           string  `json:"title"`
	OutputPath      string  `json:"outputPath"`
}

func (s *apiServer) handleClips(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listClips(w, r)
	case http.MethodPost:
		s.createClip(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listClips(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	var statuses []clips.Status
	for _, value := range query["status"] {
		status, ok := clips.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown clip status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	rows, err := s.daemon.ListClips(r.Context(), limit, statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClipListResponse{Clips: api.FromClips(rows)})
}

func (s *apiServer) createClip(w http.ResponseWriter, r *http.Request) {
	var body clipCreateBody
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row, err := s.daemon.CreateClip(r.Context(), CreateClipRequest{
		StartAgo:   secondsToDuration(body.StartAgoSeconds),
		Duration:   secondsToDuration(body.DurationSeconds),
		Format:     body.Format,
		Title:      body.Title,
		OutputPath: body.OutputPath,
	})
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrNoSession):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ClipResponse{Clip: api.FromClip(row)})
}

func (s *apiServer) handleClip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/clips/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "clip not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid clip id")
		return
	}
	row, err := s.daemon.ClipStatus(r.Context(), id, "")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		s.writeError(w, http.StatusNotFound, "clip not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClipResponse{Clip: api.FromClip(row)})
}

func (s *apiServer) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	states, err := s.daemon.ListSources()
	if err != nil {
		if errors.Is(err, ErrMonitorUnavailable) {
			s.writeJSON(w, http.StatusOK, api.SourceListResponse{Sources: nil})
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SourceListResponse{Sources: api.FromSourceStates(states)})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")

	var filterClip int64
	if value := strings.TrimSpace(query.Get("clip")); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			filterClip = parsed
		}
	}
	component := strings.TrimSpace(query.Get("component"))
	source := strings.TrimSpace(query.Get("source"))

	var (
		converted []api.LogEvent
		next      uint64
	)
	if tail && since == 0 && !follow {
		raw, cursor := hub.Tail(limit)
		converted = api.FromLogEvents(raw)
		next = cursor
	} else {
		raw, cursor, fetchErr := hub.Fetch(r.Context(), since, limit, follow)
		if fetchErr != nil && !errors.Is(fetchErr, context.Canceled) && !errors.Is(fetchErr, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, fetchErr.Error())
			return
		}
		converted = api.FromLogEvents(raw)
		next = cursor
	}

	filtered := make([]api.LogEvent, 0, len(converted))
	for _, evt := range converted {
		if filterClip != 0 && evt.ClipID != filterClip {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		if source != "" && !strings.EqualFold(source, evt.Source) {
			continue
		}
		filtered = append(filtered, evt)
	}

	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{
		Events: filtered,
		Next:   next,
	})
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
