// internal/api/api.go
// Package api wires the asset server, the live-reload hub and the file
// watcher into one HTTP server and runs it until the process is signalled.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/erilali/devserver/internal/assets"
	"github.com/erilali/devserver/internal/hub"
	"github.com/erilali/devserver/internal/logger"
	"github.com/erilali/devserver/internal/util"
	"github.com/erilali/devserver/internal/watcher"
	"github.com/nats-io/nats.go"
)

const (
	HealthPath = "/live-reload-health"
	version    = "1.0.0"
)

// Server is a running live-reload dev server.
type Server struct {
	Config  util.Config
	Hub     *hub.Hub
	Watcher watcher.Watcher

	httpServer *http.Server
	nc         *nats.Conn
	trigger    *nats.Subscription
	logger     *logger.Logger
}

// NewServer builds a server from a resolved config. It connects to NATS
// when a URL is configured; a failed connection only disables the relay.
func NewServer(cfg util.Config, serverLogger *logger.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{Config: cfg, logger: serverLogger}
	s.nc = connectNATS(cfg.NatsURL, serverLogger)
	s.Hub = hub.NewHub(s.nc, logger.NewLogger("hub"))

	w, err := watcher.New(cfg.WatchMode, cfg.WatchFiles, cfg.PollInterval(), logger.NewLogger("watcher"))
	if err != nil {
		s.closeNATS()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	s.Watcher = w

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: event streams stay open indefinitely.
	}
	return s, nil
}

func connectNATS(url string, serverLogger *logger.Logger) *nats.Conn {
	if url == "" {
		return nil
	}
	serverLogger.Infof("Connecting to NATS at %s", url)
	nc, err := nats.Connect(url, nats.Name("livereload-devserver"))
	if err != nil {
		serverLogger.Errorf("Error connecting to NATS: %v", err)
		serverLogger.Warn("Running without NATS relay. Reload triggers from other tools are disabled.")
		return nil
	}
	serverLogger.Info("Successfully connected to NATS")
	return nc
}

func (s *Server) closeNATS() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
	}
}

// Handler returns the routed handler wrapped in panic recovery. Routing is an
// exact match on the raw request path: http.ServeMux would clean ".." segments
// and redirect before the asset server could refuse them.
func (s *Server) Handler() http.Handler {
	files := assets.NewServer(s.Config.Root, s.Config.IndexFile, logger.NewLogger("assets"))
	return recoverer(s.logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case hub.EventsPath:
			s.Hub.ServeSSE(w, r)
		case hub.WebSocketPath:
			s.Hub.ServeWs(w, r)
		case HealthPath:
			s.handleHealth(w, r)
		default:
			files.ServeHTTP(w, r)
		}
	}))
}

// recoverer turns a panic in any handler into a 500 so the server keeps
// serving. It does not wrap the writer, so streaming handlers still see an
// http.Flusher.
func recoverer(serverLogger *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				serverLogger.Errorf("Server error: %v (path %s)", rec, r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	natsStatus := "disconnected"
	if s.nc != nil && s.nc.Status() == nats.CONNECTED {
		natsStatus = "connected"
	}
	health := map[string]interface{}{
		"status":  "ok",
		"clients": s.Hub.Count(),
		"nats":    natsStatus,
		"version": version,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Start runs the hub, the NATS trigger subscription and the watcher. It
// does not listen; Serve does.
func (s *Server) Start() error {
	go s.Hub.Run()

	sub, err := s.Hub.SubscribeTriggers()
	if err != nil {
		s.logger.Errorf("Error subscribing to %s: %v", hub.SubjectTrigger, err)
	}
	s.trigger = sub

	if err := s.Watcher.Start(s.Hub.NotifyChange); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	return nil
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Infof("Server running on http://%s", l.Addr())
	s.logger.Infof("Serving files from: %s", s.Config.Root)
	if len(s.Config.WatchFiles) > 0 {
		names := make([]string, 0, len(s.Config.WatchFiles))
		for _, f := range s.Config.WatchFiles {
			names = append(names, filepath.Base(f))
		}
		s.logger.Infof("Watching for changes in: %s", strings.Join(names, ", "))
	}
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops watching, closes every live-reload stream, drops the NATS
// connection and stops the HTTP server. Individual close failures are
// ignored.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Gracefully shutting down...")

	if err := s.Watcher.Stop(); err != nil {
		s.logger.Warnf("Error stopping watcher: %v", err)
	}
	s.Hub.Close()

	if s.trigger != nil {
		s.trigger.Unsubscribe()
	}
	s.closeNATS()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("HTTP server shutdown error: %v", err)
		return err
	}
	return nil
}

// StartServer listens on the configured address and runs until ctx is
// cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg util.Config, serverLogger *logger.Logger) error {
	s, err := NewServer(cfg, serverLogger)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		s.Watcher.Stop()
		s.closeNATS()
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}
	if err := s.Start(); err != nil {
		l.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		s.Shutdown(shutdownCtx)
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(l) }()

	select {
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		s.Shutdown(shutdownCtx)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
