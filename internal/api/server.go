// Package api provides the HTTP API server and handlers for the Shelfmark catalog.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmarkapp/shelfmark-server/internal/backup"
	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	authService     *service.AuthService
	bookService     *service.BookService
	reviewService   *service.ReviewService
	categoryService *service.CategoryService
	backupService   *backup.Service
	restoreService  *backup.RestoreService
	router          *chi.Mux
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store *store.Store,
	authService *service.AuthService,
	bookService *service.BookService,
	reviewService *service.ReviewService,
	categoryService *service.CategoryService,
	backupService *backup.Service,
	restoreService *backup.RestoreService,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:           store,
		authService:     authService,
		bookService:     bookService,
		reviewService:   reviewService,
		categoryService: categoryService,
		backupService:   backupService,
		restoreService:  restoreService,
		router:          chi.NewRouter(),
		logger:          logger,
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
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		// Protected user endpoints.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)
		})

		// Catalog browsing (public; a valid token personalizes the detail view).
		r.Route("/books", func(r chi.Router) {
			r.Use(s.optionalAuth)
			r.Get("/", s.handleListBooks)
			r.Get("/{id}", s.handleGetBook)
			r.Get("/{id}/cover", s.handleGetCover)

			r.With(s.requireAuth).Post("/{id}/reviews", s.handleAddReview)
		})

		// A user's own reviews.
		r.Route("/reviews", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Patch("/{id}", s.handleEditReview)
			r.Delete("/{id}", s.handleDeleteReview)
		})

		// Categories (public listing).
		r.Get("/categories", s.handleListCategories)

		// Admin catalog management.
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.requireAdmin)

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", s.handleCreateCategory)
				r.Patch("/{id}", s.handleUpdateCategory)
				r.Delete("/{id}", s.handleDeleteCategory)
			})

			r.Route("/books", func(r chi.Router) {
				r.Post("/", s.handleCreateBook)
				r.Patch("/{id}", s.handleUpdateBook)
				r.Delete("/{id}", s.handleDeleteBook)
				r.Put("/{id}/cover", s.handleUploadCover)
			})

			r.Route("/backups", func(r chi.Router) {
				r.Get("/", s.handleListBackups)
				r.Post("/", s.handleCreateBackup)
				r.Get("/{id}", s.handleDownloadBackup)
				r.Delete("/{id}", s.handleDeleteBackup)
				r.Post("/{id}/restore", s.handleRestoreBackup)
			})
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
