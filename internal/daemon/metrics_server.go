package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"xritd/internal/config"
	"xritd/internal/logging"
)

type metricsServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

type workflowStatus struct {
	Folder          string    `json:"folder"`
	Running         bool      `json:"running"`
	LastError       string    `json:"last_error,omitempty"`
	LastTick        time.Time `json:"last_tick"`
	Ticks           uint64    `json:"ticks"`
	GroupsTracked   int       `json:"groups_tracked"`
	ProductsWritten int       `json:"products_written"`
	GroupsRetired   int       `json:"groups_retired"`
}

type statusResponse struct {
	Running     bool             `json:"running"`
	LockFile    string           `json:"lock_file"`
	JournalPath string           `json:"journal_path,omitempty"`
	Workflows   []workflowStatus `json:"workflows"`
}

func newMetricsServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *metricsServer {
	bind := strings.TrimSpace(cfg.Metrics.Bind)
	if bind == "" {
		return nil
	}
	srv := &metricsServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the metrics, health, and status routes without binding a
// listener.
func (d *Daemon) Handler() http.Handler {
	srv := &metricsServer{logger: d.logger, daemon: d}
	return srv.routes()
}

func (s *metricsServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", s.daemon.metrics.Handler())
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

func (s *metricsServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("metrics server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("metrics server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *metricsServer) stop() {
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

func (s *metricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	if !status.Running {
		s.writeError(w, http.StatusServiceUnavailable, "daemon not running")
		return
	}
	for _, wf := range status.Workflows {
		if !wf.Running {
			s.writeError(w, http.StatusServiceUnavailable, "workflow "+wf.Folder+" stopped")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *metricsServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	resp := statusResponse{
		Running:     status.Running,
		LockFile:    status.LockFilePath,
		JournalPath: status.JournalPath,
		Workflows:   make([]workflowStatus, 0, len(status.Workflows)),
	}
	for _, wf := range status.Workflows {
		resp.Workflows = append(resp.Workflows, workflowStatus(wf))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *metricsServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *metricsServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *metricsServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "metrics-server"))
	}
	return logging.NewNop()
}
