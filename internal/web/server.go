// Package web provides the HTTP server and handlers for the FinReveal site.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/delivery"
	"github.com/finreveal/site/internal/site"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP server for the FinReveal site.
type Server struct {
	cfg       *Config
	mux       *http.ServeMux
	srv       *http.Server
	sessions  *sessionStore
	limiter   *submitLimiter
	metrics   *Metrics
	templates map[string]*template.Template
	pages     *site.Pages
	navbar    site.Navbar
	footer    site.Footer

	quit chan struct{}
	wg   sync.WaitGroup
}

// Config holds configuration for the web server.
type Config struct {
	Addr string

	// Client delivers contact messages. Required.
	Client delivery.Client

	// Routing and Validator are handed to every contact form.
	Routing   contact.Routing
	Validator *contact.Validator

	// SessionTTL is how long an idle visitor keeps its form.
	SessionTTL time.Duration

	// MaxSessions caps the live sessions. When full, a new visitor
	// evicts the least recently seen one.
	MaxSessions int

	// SubmitWait bounds how long a plain form post waits for delivery.
	SubmitWait time.Duration

	// SubmitRate and SubmitBurst shape the per-address submit limiter.
	SubmitRate  float64
	SubmitBurst int

	// Registry receives the web collectors and backs /metrics. Nil
	// creates a private registry.
	Registry *prometheus.Registry

	// Clock stamps submissions and drives session expiry.
	Clock func() time.Time
}

// DefaultMaxSessions is the session cap used when none is configured.
const DefaultMaxSessions = 10000

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":8080",
		Routing:     contact.DefaultRouting(),
		SessionTTL:  30 * time.Minute,
		MaxSessions: DefaultMaxSessions,
		SubmitWait:  20 * time.Second,
		SubmitRate:  0.2,
		SubmitBurst: 3,
		Clock:       time.Now,
	}
}

// NewServer creates a new web server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Client == nil {
		return nil, errors.New("web server needs a delivery client")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	pages, err := site.LoadPages()
	if err != nil {
		return nil, fmt.Errorf("failed to load page copy: %w", err)
	}

	metrics := NewMetrics(cfg.Registry)

	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		limiter:   newSubmitLimiter(cfg.SubmitRate, cfg.SubmitBurst, time.Hour),
		metrics:   metrics,
		templates: templates,
		pages:     pages,
		navbar:    site.DefaultNavbar(),
		footer:    site.DefaultFooter(),
		quit:      make(chan struct{}),
	}
	s.sessions = newSessionStore(
		cfg.SessionTTL, cfg.MaxSessions, s.newForm, metrics,
	)
	s.sessions.now = cfg.Clock

	// Register API v1 routes.
	s.registerAPIV1Routes()

	// Register WebSocket route.
	s.mux.HandleFunc("/ws/contact", s.handleContactStream)

	s.mux.Handle("/metrics", promhttp.HandlerFor(
		cfg.Registry, promhttp.HandlerOpts{},
	))

	// Server-rendered pages.
	s.mux.HandleFunc("/contact", s.handleContactPage)
	s.mux.HandleFunc("/", s.handleHome)

	return s, nil
}

// newForm builds the contact form of a new session.
func (s *Server) newForm(loc *site.Location) *contact.Controller {
	return contact.NewController(&contact.ControllerConfig{
		Client:    s.cfg.Client,
		Navigator: loc,
		Validator: s.cfg.Validator,
		Routing:   fn.Some(s.cfg.Routing),
		HomePath:  site.HomePath,
		Clock:     s.cfg.Clock,
	})
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server and the session janitor.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.cfg.SubmitWait + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		go s.runJanitor(ctx, janitorInterval(s.cfg.SessionTTL))
		<-s.quit
	}()

	log.Infof("Starting web server on %s", s.cfg.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes every open form.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	s.wg.Wait()

	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
	}
	s.sessions.CloseAll()

	return err
}

// janitorInterval runs expiry often enough that a session outlives its TTL
// by at most a quarter of it.
func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}

	return interval
}
