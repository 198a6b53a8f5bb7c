package server

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/wcag-check/internal/audit"
	"github.com/jonathan/wcag-check/internal/caption"
	"github.com/jonathan/wcag-check/internal/db"
	"github.com/jonathan/wcag-check/internal/remediation"
	"github.com/jonathan/wcag-check/internal/server/ratelimit"
)

// shutdownGrace bounds how long in-flight audits may finish after a stop signal.
const shutdownGrace = 30 * time.Second

// DefaultWriteTimeout bounds responses other than remediation runs, which lift it.
const DefaultWriteTimeout = 300 * time.Second

// Server serves audits, alt-text remediation and report summaries.
type Server struct {
	httpServer  *http.Server
	producer    audit.Producer
	captioner   caption.Captioner
	db          *db.DB
	remediation []remediation.Option
	rateLimiter *ratelimit.Limiter
	verbose     bool
}

// Config holds server configuration
type Config struct {
	Port      int
	Producer  audit.Producer
	Captioner caption.Captioner
	// DB enables the caption cache when set. The server closes it on shutdown.
	DB                 *db.DB
	RemediationOptions []remediation.Option
	// RateLimit defaults to ratelimit.LoadConfig() when nil.
	RateLimit *ratelimit.Config
	// WriteTimeout defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration
	Verbose      bool
}

// New wires the producer, captioner and optional cache into a server.
func New(cfg Config) (*Server, error) {
	if cfg.Producer == nil {
		return nil, errors.New("audit producer is required")
	}
	if cfg.Captioner == nil {
		return nil, errors.New("captioner is required")
	}

	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}

	s := &Server{
		producer:    cfg.Producer,
		captioner:   cfg.Captioner,
		db:          cfg.DB,
		remediation: cfg.RemediationOptions,
		rateLimiter: ratelimit.NewLimiter(rl),
		verbose:     cfg.Verbose,
	}
	if cfg.DB != nil {
		s.remediation = append(s.remediation, remediation.WithCache(cfg.DB))
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cmp.Or(cfg.WriteTimeout, DefaultWriteTimeout),
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wcag-check", s.handleWCAGCheck)
	mux.HandleFunc("POST /wcag-check", s.handleWCAGCheck)
	mux.HandleFunc("POST /alt-texts", s.handleAltTexts)
	mux.HandleFunc("POST /alt-texts/stream", s.handleAltTextsStream)
	mux.HandleFunc("POST /summary", s.handleSummary)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withRequestID(s.withRateLimit(s.withLogging(s.withCORS(mux))))
}

// Start serves until SIGINT or SIGTERM, then drains connections and releases resources.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Println("[SERVER] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("[SERVER] stopped")
	return nil
}

// Close releases the rate limiter, the captioner and the cache connection.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.captioner != nil {
		if err := s.captioner.Close(); err != nil {
			log.Printf("[SERVER] closing captioner: %v", err)
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
