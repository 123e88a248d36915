package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/leadboard/internal/api/handlers"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/kanban"
	"github.com/hugh/leadboard/internal/settings"
	"github.com/hugh/leadboard/internal/storage"
	"github.com/hugh/leadboard/internal/tenancy"
	"github.com/hugh/leadboard/internal/visibility"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiter *middleware.RateLimiter
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	ResetService   *auth.ResetService
	Tenancy        *tenancy.Resolver
	Graph          *hierarchy.Graph
	Scopes         *visibility.Resolver
	Kanban         *kanban.Service
	Settings       *settings.Cache
	Storage        *storage.Service
	Registry       *prometheus.Registry // nil disables /metrics
	AllowedOrigins []string             // CORS allowed origins
	RateLimitReqs  int                  // Rate limit requests per window on the auth routes
	RateLimitSecs  int                  // Rate limit window in seconds
	SecureCookies  bool
	MaxImportBytes int64
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.Registry != nil {
		r.Use(middleware.NewMetrics(cfg.Registry).Middleware)
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Auth-Token",
			tenancy.HeaderSlug,
		},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(cfg.Tenancy.Middleware)
	r.Use(middleware.CSRF)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.ResetService, cfg.Tenancy, cfg.Logger, cfg.SecureCookies)
	tenantHandler := handlers.NewTenantHandler(cfg.DB, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.DB, cfg.Logger)
	attendantHandler := handlers.NewAttendantHandler(cfg.DB, cfg.Graph, cfg.Scopes, cfg.Logger)
	columnHandler := handlers.NewColumnHandler(cfg.Kanban, cfg.Logger)
	leadHandler := handlers.NewLeadHandler(cfg.Kanban, cfg.Logger, cfg.MaxImportBytes)
	settingsHandler := handlers.NewSettingsHandler(cfg.Settings, cfg.Logger)
	uploadHandler := handlers.NewUploadHandler(cfg.Storage, cfg.Logger)

	orgUnits := map[string]*handlers.OrgUnitHandler{
		"/departments": handlers.NewOrgUnitHandler(cfg.DB, models.OrgUnitDepartment, cfg.Logger),
		"/positions":   handlers.NewOrgUnitHandler(cfg.DB, models.OrgUnitPosition, cfg.Logger),
		"/functions":   handlers.NewOrgUnitHandler(cfg.DB, models.OrgUnitFunction, cfg.Logger),
	}

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// Public auth endpoints share one sliding-window limiter per client IP.
	authLimit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitReqs > 0 {
		router.limiter = middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		authLimit = middleware.RateLimit(router.limiter, middleware.ByIP)
	}

	admin := middleware.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/logout", authHandler.Logout)
			r.Post("/auth/forgot-password", authHandler.ForgotPassword)
			r.Post("/auth/reset-password", authHandler.ResetPassword)
		})

		// Back office
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.Tenancy))

			r.Get("/me", authHandler.Me)

			r.Route("/tenants", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleSuperAdmin))
				r.Get("/", tenantHandler.List)
				r.Post("/", tenantHandler.Create)
				r.Get("/{id}", tenantHandler.Get)
				r.Put("/{id}", tenantHandler.Update)
				r.Delete("/{id}", tenantHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.With(admin).Post("/", userHandler.Create)
				r.With(admin).Put("/{id}", userHandler.Update)
				r.With(admin).Delete("/{id}", userHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTenant)

				r.Route("/attendants", func(r chi.Router) {
					staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
					r.Get("/", attendantHandler.List)
					r.Get("/{id}", attendantHandler.Get)
					r.With(staff).Post("/", attendantHandler.Create)
					r.With(staff).Put("/{id}", attendantHandler.Update)
					r.With(staff).Delete("/{id}", attendantHandler.Delete)
				})

				r.Route("/columns", func(r chi.Router) {
					r.Get("/", columnHandler.List)
					r.Post("/", columnHandler.Create)
					r.Put("/reorder", columnHandler.Reorder)
					r.Put("/{id}", columnHandler.Update)
					r.Delete("/{id}", columnHandler.Delete)
				})

				r.Route("/leads", func(r chi.Router) {
					r.Get("/", leadHandler.List)
					r.Post("/", leadHandler.Create)
					r.Get("/board", leadHandler.Board)
					r.Get("/trash", leadHandler.Trash)
					r.Put("/reorder", leadHandler.Reorder)
					r.Post("/import", leadHandler.Import)
					r.Get("/{id}", leadHandler.Get)
					r.Put("/{id}", leadHandler.Update)
					r.Delete("/{id}", leadHandler.Delete)
					r.Post("/{id}/move", leadHandler.Move)
					r.Post("/{id}/assign", leadHandler.Assign)
					r.Post("/{id}/restore", leadHandler.Restore)
					r.Delete("/{id}/permanent", leadHandler.Purge)
					r.Get("/{id}/attendances", leadHandler.ListAttendances)
					r.Post("/{id}/attendances", leadHandler.CreateAttendance)
				})

				r.Route("/attendances", func(r chi.Router) {
					r.Put("/{id}", leadHandler.UpdateAttendance)
					r.Delete("/{id}", leadHandler.DeleteAttendance)
				})

				for path, h := range orgUnits {
					r.Route(path, func(r chi.Router) {
						r.Get("/", h.List)
						r.Get("/{id}", h.Get)
						r.With(admin).Post("/", h.Create)
						r.With(admin).Put("/{id}", h.Update)
						r.With(admin).Delete("/{id}", h.Delete)
					})
				}

				r.Route("/settings", func(r chi.Router) {
					r.Use(admin)
					r.Get("/", settingsHandler.List)
					r.Put("/", settingsHandler.Put)
					r.Delete("/{key}", settingsHandler.Delete)
				})

				r.Get("/stats/dashboard", leadHandler.Stats)

				r.Route("/uploads", func(r chi.Router) {
					r.Post("/", uploadHandler.Create)
					r.Delete("/", uploadHandler.Delete)
				})
			})
		})

		// Attendant area
		r.Route("/attendant", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimit)
				r.Post("/auth/login", authHandler.AttendantLogin)
				r.Post("/auth/logout", authHandler.AttendantLogout)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.AttendantAuth(cfg.JWTService))
				r.Use(middleware.RequireTenant)

				r.Get("/me", authHandler.AttendantMe)
				r.Get("/board", leadHandler.Board)
				r.Get("/leads", leadHandler.List)
				r.Post("/leads", leadHandler.Create)
				r.Get("/leads/{id}", leadHandler.Get)
				r.Put("/leads/{id}", leadHandler.Update)
				r.Post("/leads/{id}/claim", leadHandler.Claim)
				r.Post("/leads/{id}/move", leadHandler.Move)
				r.Get("/leads/{id}/attendances", leadHandler.ListAttendances)
				r.Post("/leads/{id}/attendances", leadHandler.CreateAttendance)
				r.Put("/attendances/{id}", leadHandler.UpdateAttendance)
			})
		})
	})

	return router
}

// Close stops the rate limiter's background sweep.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}
