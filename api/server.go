package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gmykhailiuta/libcamera/internal/ipa/aiq"
	"github.com/gmykhailiuta/libcamera/internal/ipadb"
	"github.com/gmykhailiuta/libcamera/internal/monitoring"
	"github.com/gmykhailiuta/libcamera/internal/version"
)

var logf = monitoring.Category("api")

// Server handles the HTTP interface for monitoring the 3A loop. It
// provides endpoints for health checks, session status, decision history,
// and debug charts.
type Server struct {
	address string
	session *aiq.AIQ
	db      *ipadb.DB
	mux     *http.ServeMux
	server  *http.Server
	started time.Time
}

// ServerConfig contains configuration options for the web server
type ServerConfig struct {
	Address string
	Session *aiq.AIQ
	DB      *ipadb.DB
}

// NewServer creates a new web server with the provided configuration
func NewServer(config ServerConfig) *Server {
	s := &Server{
		address: config.Address,
		session: config.Session,
		db:      config.DB,
		started: time.Now(),
	}

	s.mux = s.setupRoutes()
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.mux,
	}

	return s
}

// Mux exposes the route table so callers can attach extra handlers
// (admin and debug routes) before Start.
func (s *Server) Mux() *http.ServeMux { return s.mux }

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logf("Starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}

	logf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/api/3a/status", s.handleStatus)
	mux.HandleFunc("/api/3a/decisions", s.handleDecisions)
	mux.HandleFunc("/debug/3a/exposure-chart", s.handleExposureChart)
	mux.HandleFunc("/debug/3a/color-chart", s.handleColorChart)

	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte("3A control loop monitor\n"))
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "3a", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus reports the live session state as JSON
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	status := map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"version":        version.Version,
	}
	if s.session != nil {
		status["state"] = s.session.State().String()
		status["degraded"] = s.session.Degraded()
		status["frames"] = s.session.FrameCount()
	}
	if s.db != nil {
		if id, err := s.db.LatestSessionID(); err == nil && id != "" {
			status["session_id"] = id
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleDecisions returns the most recent decisions as JSON.
// Query params:
//
//	limit (optional, default 50, max 1000)
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "decision store not configured")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
		if limit <= 0 || limit > 1000 {
			limit = 50
		}
	}

	rows, err := s.db.RecentDecisions(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query decisions: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
