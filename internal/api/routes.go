// Package api wires the read-only HTTP/WebSocket observability surface
// around a Supervisor. Submission and cancellation are never exposed
// here; this package exists purely so an operator can watch the
// scheduler work.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sebaskun/taskscheduler/internal/api/handlers"
	apiMiddleware "github.com/sebaskun/taskscheduler/internal/api/middleware"
	"github.com/sebaskun/taskscheduler/internal/api/websocket"
	"github.com/sebaskun/taskscheduler/internal/config"
	"github.com/sebaskun/taskscheduler/internal/events"
	"github.com/sebaskun/taskscheduler/internal/scheduler"
)

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	supervisor   *scheduler.Supervisor
	config       *config.Config
	taskHandler  *handlers.TaskHandler
	adminHandler *handlers.AdminHandler
	wsHub        *websocket.Hub
	wsHandler    *websocket.Handler
	publisher    events.Publisher
}

// NewServer creates a new HTTP server over supervisor, fed lifecycle
// events by publisher for the WebSocket hub.
func NewServer(cfg *config.Config, supervisor *scheduler.Supervisor, publisher events.Publisher) *Server {
	wsHub := websocket.NewHub(publisher)

	s := &Server{
		router:       chi.NewRouter(),
		supervisor:   supervisor,
		config:       cfg,
		taskHandler:  handlers.NewTaskHandler(supervisor),
		adminHandler: handlers.NewAdminHandler(supervisor),
		wsHub:        wsHub,
		wsHandler:    websocket.NewHandler(wsHub),
		publisher:    publisher,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(apiMiddleware.RequestLogger())
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Heartbeat("/health"))

	if s.config.Auth.Enabled {
		keys := make(map[string]bool, len(s.config.Auth.APIKeys))
		for _, k := range s.config.Auth.APIKeys {
			keys[k] = true
		}
		s.router.Use(apiMiddleware.Auth(&apiMiddleware.AuthConfig{
			Enabled:   true,
			JWTSecret: s.config.Auth.JWTSecret,
			APIKeys:   keys,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		if s.config.Server.RateLimitRPS > 0 {
			r.Use(apiMiddleware.ClientRateLimit(s.config.Server.RateLimitRPS))
		}

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/{taskID}", s.taskHandler.Get)
			r.Get("/", s.taskHandler.List)
		})
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/health", s.adminHandler.HealthCheck)
		r.Get("/status", s.adminHandler.Status)

		r.Group(func(r chi.Router) {
			if s.config.Auth.Enabled {
				r.Use(apiMiddleware.RequireRole("admin"))
			}
			r.Get("/workers", s.adminHandler.ListWorkers)
			r.Get("/workers/{workerID}", s.adminHandler.GetWorker)
		})
	})

	s.router.Get("/ws", s.wsHandler.ServeWS)

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
}

// Start starts the WebSocket hub
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop stops the WebSocket hub
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publisher returns the event publisher
func (s *Server) Publisher() events.Publisher {
	return s.publisher
}
