// Package api provides the host's HTTP server: the authenticated controller
// WebSocket and the read-only diagnostics endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/input"
	"remotepad/internal/logging"
	"remotepad/internal/metrics"
	"remotepad/internal/osutils"
	"remotepad/internal/session"
	"remotepad/internal/translator"
)

// Config holds the collaborators of a Server.
type Config struct {
	Sessions *session.Manager
	Gate     *session.Gate
	Actuator input.Actuator
	Metrics  *metrics.Metrics
	Logger   hclog.Logger

	// Input returns the tunables applied to each new connection. It is
	// called once per connection so reloaded settings reach new clients.
	Input func() translator.Config

	// ExposeMetrics serves Metrics on /metrics.
	ExposeMetrics bool
}

// Server serves controllers on the listener of the current session
type Server struct {
	cfg    Config
	logger hclog.Logger
	hub    *hub

	// regenMu serializes regenerations so the installed server always
	// belongs to the latest epoch.
	regenMu    sync.Mutex
	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Input == nil {
		cfg.Input = translator.DefaultConfig
	}
	logger := cfg.Logger.Named("api")
	return &Server{
		cfg:    cfg,
		logger: logger,
		hub:    newHub(logger),
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	if s.cfg.ExposeMetrics && s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics.Handler())
	}
	return s.logMiddleware(s.recoverMiddleware(mux))
}

// Start issues the first session and serves on its listener
func (s *Server) Start(ctx context.Context) (*session.Session, error) {
	return s.Regenerate(ctx)
}

// Regenerate issues a new session, moves serving to its listener and
// disconnects every controller of the previous session.
func (s *Server) Regenerate(ctx context.Context) (*session.Session, error) {
	s.regenMu.Lock()
	defer s.regenMu.Unlock()

	sess, ln, err := s.cfg.Sessions.Regenerate(ctx)
	if err != nil {
		return nil, err
	}
	s.cfg.Metrics.SessionRegenerated(sess.Epoch)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.Standard(s.logger),
	}

	s.mu.Lock()
	old := s.httpServer
	s.httpServer = srv
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if n := s.hub.closeAll("session regenerated"); n > 0 {
		s.logger.Info("disconnected controllers of previous session", "count", n)
	}

	if err := osutils.EnsureFirewallRule(sess.Port); err != nil {
		s.logger.Warn("failed to ensure firewall rule", "port", sess.Port, "error", err)
	}

	go s.serve(srv, ln)
	return sess, nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener) {
	s.logger.Info("listening", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("server stopped", "error", err)
	}
}

// Shutdown stops serving and disconnects every controller
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	s.hub.closeAll("host shutting down")
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Connections returns the number of connected controllers
func (s *Server) Connections() int {
	return s.hub.count()
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "path", r.URL.Path, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// handleStatus handles GET /status. It never reveals the secret.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]any{
		"ok":          true,
		"platform":    runtime.GOOS,
		"arch":        runtime.GOARCH,
		"connections": s.hub.count(),
	}
	if sess := s.cfg.Sessions.Current(); sess != nil {
		resp["port"] = sess.Port
		resp["epoch"] = sess.Epoch
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// presentedSecret returns the secret from the Authorization header or the
// token query parameter.
func presentedSecret(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if secret, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(secret)
		}
	}
	return r.URL.Query().Get("token")
}
