// internal/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hostdiag/preflight/internal/config"
	"github.com/hostdiag/preflight/internal/diag"
	"github.com/hostdiag/preflight/internal/fix"
	"github.com/hostdiag/preflight/internal/monitor"
	"github.com/hostdiag/preflight/internal/store"
)

// Server is the diagnostics dashboard server
type Server struct {
	cfg       *config.ServerConfig
	db        *store.DB
	hub       *Hub
	collector *monitor.Collector
	server    *http.Server
}

// NewServer creates a new dashboard server
func NewServer(cfg *config.ServerConfig) (*Server, error) {
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	hub := NewHub()
	svc := diag.NewService(cfg.BaseDir, cfg.ProbePorts)
	collector := monitor.NewCollector()

	h := &handlers{
		store:     db,
		svc:       svc,
		orch:      diag.NewOrchestrator(db, hub, svc),
		engine:    fix.NewEngine(),
		executor:  fix.NewExecutor(cfg.BaseDir, cfg.FixTimeout),
		hub:       hub,
		collector: collector,
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      newMux(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		cfg:       cfg,
		db:        db,
		hub:       hub,
		collector: collector,
		server:    server,
	}, nil
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. TLS is used when both cert and key are configured.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("Dashboard starting on %s (app dir: %s)", s.cfg.ListenAddr, s.cfg.BaseDir)

	if s.cfg.MetricsEnabled {
		go s.collector.Run(ctx, s.cfg.MetricsEvery)
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			cert, loadErr := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
			if loadErr != nil {
				errCh <- fmt.Errorf("load TLS cert: %w", loadErr)
				return
			}
			s.server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			err = s.server.ListenAndServeTLS("", "")
		} else {
			err = s.server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("Dashboard shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.db.Close()
		return err
	}

	s.hub.Close()
	s.db.Close()
	return nil
}
