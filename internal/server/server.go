// Package server exposes the TeamPlan REST API: project and task CRUD,
// resource management, auto-assignment, dependency cascades, KVI rollups
// and a realtime WebSocket feed, all scoped per organization.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/teamplan/internal/allocator"
	"github.com/me/teamplan/internal/cascade"
	"github.com/me/teamplan/internal/config"
	"github.com/me/teamplan/internal/kvi"
	"github.com/me/teamplan/internal/realtime"
	"github.com/me/teamplan/internal/store"
)

// Server is the TeamPlan REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time
	store     store.Store
	allocator *allocator.Allocator
	resolver  *cascade.Resolver
	kvi       *kvi.Service
	hub       *realtime.Hub
}

// New creates a Server with all routes registered.
func New(cfg config.Config, st store.Store, hub *realtime.Hub, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		allocator: allocator.New(st, logger, allocator.Options{
			ApplyAllocationPercent: cfg.Allocator.ApplyAllocationPercent,
		}),
		resolver: cascade.New(st, logger),
		kvi:      kvi.New(st, logger),
		hub:      hub,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		// Health and login need no org context.
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket authenticates via query token; it cannot carry an
		// Authorization header from a browser.
		r.Get("/ws", s.handleWebSocket)

		// Everything else is org scoped.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", s.handleListProjects)
				r.Post("/", s.handleCreateProject)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.Patch("/", s.handleUpdateProject)
					r.Delete("/", s.handleDeleteProject)
				})
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)
				r.Post("/auto-assign", s.handleAutoAssign)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTask)
					r.Patch("/", s.handleUpdateTask)
					r.Delete("/", s.handleDeleteTask)
					r.Get("/dependencies", s.handleTaskDependencies)
				})
			})

			r.Route("/resources", func(r chi.Router) {
				r.Get("/", s.handleListResources)
				r.Post("/", s.handleCreateResource)
				r.Get("/available", s.handleAvailableResources)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetResource)
					r.Patch("/", s.handleUpdateResource)
					r.Delete("/", s.handleDeleteResource)
					r.Post("/affiliations", s.handleCreateAffiliation)
				})
			})

			r.Route("/initiatives", func(r chi.Router) {
				r.Get("/", s.handleListInitiatives)
				r.Post("/", s.handleCreateInitiative)
			})

			r.Get("/kvi/portfolio", s.handlePortfolioKVI)
		})
	})
}
