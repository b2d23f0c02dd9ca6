// Package server provides the HTTP API of the proctrack daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/daemon/engine"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig holds the effective configuration of the daemon.
// This is exposed via the /api/config endpoint so clients can verify what config is active.
type RunningConfig struct {
	PID                int           `json:"pid"`
	Version            string        `json:"version,omitempty"`
	InitialDelay       time.Duration `json:"initial_delay"`
	RecurringDelay     time.Duration `json:"recurring_delay"`
	StatisticsInterval time.Duration `json:"statistics_interval"`
	Exclude            []string      `json:"exclude,omitempty"`
	DatabasePath       string        `json:"database_path"`
	SettingsPath       string        `json:"settings_path"`
	StartedAt          time.Time     `json:"started_at"`
}

// StatisticsProvider answers on-demand statistics queries. An empty group
// means every group.
type StatisticsProvider interface {
	Statistics(ctx context.Context, group string, filter models.StatisticsFilter) ([]models.GroupStatistics, error)
}

// Event is one message of the /api/stream feed.
type Event struct {
	Type    string      `json:"type"`
	Source  string      `json:"source,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventInitial is the first event of every stream and carries the full state.
const EventInitial = "initial"

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	engine        *engine.Engine
	statistics    StatisticsProvider
	runningConfig *RunningConfig
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		logger: logger,
	}
}

// SetEngine sets the collector engine for the server.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetStatistics sets the provider behind /api/statistics.
func (s *Server) SetStatistics(p StatisticsProvider) {
	s.statistics = p
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/processes", s.handleGetProcesses)
	mux.HandleFunc("/api/statistics", s.handleGetStatistics)
	mux.HandleFunc("/api/stream", s.handleStreamState)
	mux.HandleFunc("/api/config", s.handleGetConfig)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler: s.Handler(),
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	err = s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.engine.Store().Get())
}

func (s *Server) handleGetProcesses(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.engine.Store().Processes())
}

// handleGetStatistics aggregates on demand. Query parameters: group (name or
// id), query, from and to (epoch ms).
func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	if s.statistics == nil {
		http.Error(w, "statistics not initialized", http.StatusServiceUnavailable)
		return
	}

	params := r.URL.Query()
	filter := models.StatisticsFilter{Query: params.Get("query")}
	for _, bound := range []struct {
		name   string
		target *int64
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := params.Get(bound.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("%s must be epoch milliseconds", bound.name)))
			return
		}
		*bound.target = v
	}

	result, err := s.statistics.Statistics(r.Context(), params.Get("group"), filter)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrCodeNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, result)
}

// handleStreamState provides Server-Sent Events (SSE) for real-time state updates.
// Clients can subscribe to this endpoint to receive updates whenever the daemon state changes.
func (s *Server) handleStreamState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	client := s.logger.WithField("client", r.UserAgent())
	client.Debug("SSE client connected")

	// Send current state immediately so client has data right away
	s.writeEvent(w, Event{Type: EventInitial, Payload: s.engine.Store().Get()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			client.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			s.writeEvent(w, Event{
				Type:    string(update.Type),
				Source:  update.Source,
				Payload: update.Payload,
			})
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame: "event: type\ndata: {json}\n\n".
func (s *Server) writeEvent(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal update")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.runningConfig)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError encodes err as a ProcTrackError body.
func writeError(w http.ResponseWriter, status int, err error) {
	pe, ok := err.(*errors.ProcTrackError)
	if !ok {
		pe = errors.Wrap(err, errors.ErrCodeInternal, err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(pe)
}
