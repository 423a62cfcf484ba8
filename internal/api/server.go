// Package api provides the HTTP API server and handlers for the Sproutling
// sync server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sproutlingapp/sproutling-server/internal/http/response"
	"github.com/sproutlingapp/sproutling-server/internal/ratelimit"
	"github.com/sproutlingapp/sproutling-server/internal/service"
	"github.com/sproutlingapp/sproutling-server/internal/sse"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// Services bundles the service layer dependencies of the HTTP handlers.
type Services struct {
	Auth        *service.AuthService
	Children    *service.ChildService
	Sharing     *service.SharingService
	Invitations *service.InvitationService
	Records     *service.RecordService
	Search      *service.SearchService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	services    Services
	sseHandler  *sse.Handler
	codeLimiter *ratelimit.KeyedRateLimiter
	router      *chi.Mux
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// codeLimiter throttles the public invite-code validation endpoint.
func NewServer(store *store.Store, services Services, sseHandler *sse.Handler, codeLimiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		store:       store,
		services:    services,
		sseHandler:  sseHandler,
		codeLimiter: codeLimiter,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://sproutling.app"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.With(s.requireAuth).Post("/logout", s.handleLogout)
			r.With(s.requireAuth).Get("/me", s.handleGetCurrentAccount)
		})

		// Invite code validation is public so the accept screen works
		// before sign-in, but rate-limited: six digit codes are guessable.
		r.With(RateLimitMiddleware(s.codeLimiter, s.logger)).
			Get("/invitations/code/{code}", s.handleValidateInviteCode)

		// Invitation lifecycle (the caller must be signed in).
		r.Route("/invitations", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/{id}/accept", s.handleAcceptInvitation)
			r.Post("/{id}/decline", s.handleDeclineInvitation)
		})

		// Child profiles and everything scoped to them.
		r.Route("/children", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateChild)
			r.Get("/", s.handleListChildren)
			r.Get("/{id}", s.handleGetChild)
			r.Patch("/{id}", s.handleUpdateChild)
			r.Delete("/{id}", s.handleDeleteChild)

			r.Post("/{id}/invitations", s.handleCreateInvitation)
			r.Get("/{id}/invitations", s.handleListInvitations)

			r.Get("/{id}/collaborators", s.handleListCollaborators)
			r.Post("/{id}/collaborators", s.handleAddCollaborator)
			r.Delete("/{id}/collaborators/{accountID}", s.handleRemoveCollaborator)

			r.Route("/{id}/records", s.childRecordRoutes)
			r.Get("/{id}/allergens", s.handleListAllergens)
		})

		// Owner-scoped records with their own share sets.
		r.Route("/recipes", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateRecipe)
			r.Get("/", s.handleListRecipes)
			r.Get("/{id}", s.handleGetRecipe)
			r.Patch("/{id}", s.handleUpdateRecipe)
			r.Delete("/{id}", s.handleDeleteRecipe)
			r.Post("/{id}/share", s.handleShareRecipe)
		})

		r.Route("/shopping", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateShoppingItem)
			r.Get("/", s.handleListShoppingItems)
			r.Patch("/{id}", s.handleUpdateShoppingItem)
			r.Delete("/{id}", s.handleDeleteShoppingItem)
		})

		r.With(s.requireAuth).Get("/search", s.handleSearch)

		// Change feed.
		r.Route("/sync", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/stream", s.sseHandler.ServeHTTP)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
