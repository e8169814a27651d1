package api

import (
	"net/http"
	"time"

	_ "github.com/athebyme/gomarket-platform/feed-service/docs"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/metrics"
	"github.com/athebyme/gomarket-platform/feed-service/internal/api/handlers"
	"github.com/athebyme/gomarket-platform/feed-service/internal/api/middleware"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/auth"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig настройки HTTP слоя
type RouterConfig struct {
	CORSAllowOrigins []string
	RequestTimeout   time.Duration
	RateLimit        float64
	RateBurst        int
	AdminRoles       []string
}

// Dependencies обработчики и сервисы, которые подключает маршрутизатор
type Dependencies struct {
	GoogleProducts *handlers.GoogleProductHandler
	OAuth          *handlers.OAuthHandler
	Auth           interfaces.AuthPort
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Logger         interfaces.LoggerPort
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(deps Dependencies, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.CORS(cfg.CORSAllowOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Google перенаправляет браузер без bearer-токена; запрос защищен одноразовым state
		if deps.OAuth != nil {
			r.Get("/google/oauth/callback", deps.OAuth.Callback)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(deps.Auth, deps.Logger))
			if len(cfg.AdminRoles) > 0 {
				r.Use(auth.RequireAnyRole(cfg.AdminRoles...))
			}

			if deps.OAuth != nil {
				r.Get("/google/oauth/authorize", deps.OAuth.Authorize)
			}

			gp := deps.GoogleProducts
			r.Route("/google-products", func(r chi.Router) {
				r.Post("/", gp.Ensure)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", gp.Get)
					r.Put("/", gp.Update)
					r.Post("/upload", gp.Upload)
					r.Get("/remote", gp.FetchRemote)
					r.Delete("/remote", gp.DeleteRemote)
					r.Get("/history", gp.History)
					r.Get("/status", gp.Status)
				})
			})
		})
	})

	return r
}
