package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/config"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/cache"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/metrics"
	"github.com/athebyme/gomarket-platform/feed-service/internal/api"
	"github.com/athebyme/gomarket-platform/feed-service/internal/api/handlers"
	"github.com/athebyme/gomarket-platform/feed-service/internal/bootstrap"
	"github.com/athebyme/gomarket-platform/feed-service/internal/infrastructure/postgres"
	"github.com/athebyme/gomarket-platform/feed-service/internal/security"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/auth"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title           Feed Service API
// @version         1.0
// @description     Синхронизация вариантов товаров с Google Merchant Center
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	postgresCon, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации строки подключения базы", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	testCtx, testCancel := context.WithTimeout(ctx, 5*time.Second)
	defer testCancel()

	pool, err := postgres.NewPool(testCtx, postgresCon)
	if err != nil {
		log.Fatal("Ошибка подключения к PostgreSQL", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с PostgreSQL проверено")

	cacheClient, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Кэш инициализирован")

	if err := checkRedisConnection(testCtx, cacheClient); err != nil {
		log.Fatal("Ошибка подключения к Redis",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с Redis проверено")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	googleSync, err := bootstrap.NewGoogleSync(ctx, cfg, pool, metrics.NewSyncMetrics(registry), log)
	if err != nil {
		log.Fatal("Ошибка инициализации синхронизации с Google", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Сервис синхронизации с Google инициализирован",
		interfaces.LogField{Key: "merchant_id", Value: cfg.Google.MerchantID})

	authValidator, err := newAuthValidator(ctx, cfg)
	if err != nil {
		log.Fatal("Ошибка инициализации аутентификации", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Аутентификация настроена",
		interfaces.LogField{Key: "keycloak", Value: cfg.Keycloak.Enabled})

	router := api.SetupRouter(api.Dependencies{
		GoogleProducts: handlers.NewGoogleProductHandler(googleSync.Service, log),
		OAuth:          handlers.NewOAuthHandler(googleSync.Session, googleSync.Tokens, cacheClient, log),
		Auth:           authValidator,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:         log,
	}, api.RouterConfig{
		CORSAllowOrigins: cfg.Security.CORSAllowOrigins,
		RequestTimeout:   cfg.Server.RequestTimeout,
		RateLimit:        cfg.Security.RateLimit,
		RateBurst:        cfg.Security.RateBurst,
		AdminRoles:       cfg.Security.AdminRoles,
	})
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка при graceful shutdown", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		log.Info("HTTP сервер остановлен")

		log.Info("Закрытие соединений с зависимостями...")

		if err := cacheClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Redis",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		pool.Close()

		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
	_ = log.Sync()
}

// newAuthValidator выбирает проверку токенов: Keycloak или локальный HS256
func newAuthValidator(ctx context.Context, cfg *config.Config) (interfaces.AuthPort, error) {
	if cfg.Keycloak.Enabled {
		return auth.NewKeycloakClient(ctx, cfg.Keycloak.GetKeycloakConfig())
	}
	return security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpirationMin, cfg.Security.JWTIssuer)
}

// Проверка соединения с Redis
func checkRedisConnection(ctx context.Context, cacheClient interfaces.CachePort) error {
	testKey := "test:connection"
	testValue := []byte("test-value")

	if err := cacheClient.Set(ctx, testKey, testValue, 10*time.Second); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}

	value, err := cacheClient.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("failed to read from redis: %w", err)
	}

	if string(value) != string(testValue) {
		return fmt.Errorf("unexpected value from redis: got %s, want %s", string(value), string(testValue))
	}

	if err := cacheClient.Delete(ctx, testKey); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}
