package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/taskhive/taskhive-api/internal/auth"
	"github.com/taskhive/taskhive-api/internal/config"
	"github.com/taskhive/taskhive-api/internal/httputil"
	"github.com/taskhive/taskhive-api/internal/logging"
	"github.com/taskhive/taskhive-api/internal/report"
	"github.com/taskhive/taskhive-api/internal/task"
	"github.com/taskhive/taskhive-api/internal/user"
)

// Handlers bundles the route handlers the router mounts.
type Handlers struct {
	Auth   *auth.Handler
	Task   *task.Handler
	Report *report.Handler
	User   *user.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Client"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/signin", h.Auth.SignIn)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Post("/reset-password", h.Auth.ResetPassword)

			// Session required
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Post("/signout", h.Auth.SignOut)
				r.Post("/verification/send", h.Auth.SendVerificationCode)
				r.Post("/verification/verify", h.Auth.VerifyVerificationCode)
				r.Patch("/change-password", h.Auth.ChangePassword)
				r.Get("/profile", h.Auth.GetProfile)
				r.Put("/profile", h.Auth.UpdateProfile)
				r.Put("/profile/email", h.Auth.UpdateEmail)
			})
		})

		// Task routes
		r.Route("/tasks", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)

			r.Get("/", h.Task.List)
			r.Get("/dashboard-data", h.Task.UserDashboard)
			r.Get("/{id}", h.Task.Get)
			r.Put("/{id}", h.Task.Update)
			r.Put("/{id}/status", h.Task.UpdateStatus)
			r.Put("/{id}/todo", h.Task.UpdateChecklist)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAdmin)
				r.Post("/", h.Task.Create)
				r.Delete("/{id}", h.Task.Delete)
				r.Get("/admin-dashboard-data", h.Task.AdminDashboard)
			})
		})

		// Report routes (admin only)
		r.Route("/reports", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Use(authMiddleware.RequireAdmin)

			r.Get("/export/tasks", h.Report.ExportTasks)
			r.Get("/export/users", h.Report.ExportUsers)
		})

		// User admin routes
		r.Route("/users", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Use(authMiddleware.RequireAdmin)

			r.Get("/", h.User.ListMembers)
			r.Get("/{id}", h.User.GetByID)
			r.Delete("/{id}", h.User.Delete)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
