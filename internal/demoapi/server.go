package demoapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"

	"github.com/daviddao/grillgauge_viewer/internal/config"
	"github.com/daviddao/grillgauge_viewer/internal/demo"
)

// Server represents the demo HTTP server
type Server struct {
	config *config.DemoConfig
	srv    *http.Server
	sim    *demo.Simulator
	store  demo.HistoryStore
	cancel context.CancelFunc
}

// Handler wraps the router with request logging, CORS for the web
// dashboard, and panic recovery.
func Handler(router http.Handler, accessLog io.Writer) http.Handler {
	h := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(router)
	h = handlers.CombinedLoggingHandler(accessLog, h)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

// OpenStore returns the history store selected by cfg.
func OpenStore(cfg config.DemoConfig) (demo.HistoryStore, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return demo.NewMemoryStore(cfg.History), nil
	default:
		return demo.OpenSQLStore(cfg.Store.Driver, cfg.Store.DSN, cfg.History)
	}
}

// New creates a new server instance, opening the history store and
// seeding the simulator.
func New(cfg *config.DemoConfig) (*Server, error) {
	store, err := OpenStore(*cfg)
	if err != nil {
		return nil, err
	}
	sim, err := demo.NewSimulator(context.Background(), store, demo.Options{Seed: cfg.Seed})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("seed demo hub: %w", err)
	}

	router := NewRouter(sim, NewDirectory("demo@grillgauge.local"), cfg.Token)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      Handler(router, os.Stdout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return &Server{config: cfg, srv: srv, sim: sim, store: store}, nil
}

// Start runs the simulator and begins listening for requests. It blocks
// until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.sim.Run(ctx, s.config.Step, func(err error) {
		nuts.L.Warnf("[Demo] Failed to advance simulation: %v", err)
	})

	errCh := make(chan error, 1)
	go func() {
		nuts.L.Infof("[Server] Starting demo server on %s%s", s.srv.Addr, Prefix)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return s.waitForShutdown(errCh)
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown(errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-errCh:
	}

	nuts.L.Infof("[Server] Shutting down server...")
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if err := s.store.Close(); err != nil {
		nuts.L.Warnf("[Server] Failed to close history store: %v", err)
	}
	if serveErr != nil {
		return fmt.Errorf("error starting server: %w", serveErr)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}
