package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/config"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/cache"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/messaging"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/metrics"
	"github.com/athebyme/gomarket-platform/feed-service/internal/bootstrap"
	"github.com/athebyme/gomarket-platform/feed-service/internal/infrastructure/postgres"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/internal/worker"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

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
	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: metricsServer.Addr})
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	connectionStr, err := utils.GenerateConnectionString(
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
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	pool, err := postgres.NewPool(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer pool.Close()
	log.Info("Хранилище инициализировано")

	cacheClient, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации Redis",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer cacheClient.Close()
	log.Info("Redis инициализирован")

	messagingClient, err := messaging.NewKafkaMessaging(
		cfg.Kafka.Brokers,
		interfaces.ConsumerConfig{
			GroupID:         cfg.Kafka.GroupID,
			AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
			PollTimeout:     cfg.Kafka.PollTimeout,
			SessionTimeout:  cfg.Kafka.SessionTimeout,
		},
		log,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer messagingClient.Close()
	log.Info("Система обмена сообщениями инициализирована")

	syncMetrics := metrics.NewSyncMetrics(registry)
	googleSync, err := bootstrap.NewGoogleSync(ctx, cfg, pool, syncMetrics, log)
	if err != nil {
		log.Fatal("Ошибка инициализации синхронизации с Google",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Сервис синхронизации с Google инициализирован")

	handler := worker.NewCommandHandler(
		googleSync.Service,
		cacheClient,
		messagingClient,
		cfg.Worker.LockTTL,
		syncMetrics,
		metrics.NewWorkerMetrics(registry),
		log,
	).WithMaxAttempts(cfg.Worker.MaxAttempts)

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	subscribeToGoogleProductCommands(ctx, messagingClient, handler, log, &wg)

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")
		cancel()
		wg.Wait()

		if metricsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Error("Ошибка остановки HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}
		close(done)
	}()

	log.Info("Воркер запущен и готов к обработке сообщений")
	<-done
	log.Info("Воркер корректно завершил работу")
	_ = log.Sync()
}

// Подписка на команды синхронизации с Google
func subscribeToGoogleProductCommands(ctx context.Context, messagingClient interfaces.MessagingPort,
	handler *worker.CommandHandler, logger interfaces.LoggerPort, wg *sync.WaitGroup) {

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, messaging.TopicGoogleProductCommands, handler.Handle)
		if err != nil {
			logger.Error("Ошибка подписки на команды синхронизации",
				interfaces.LogField{Key: "topic", Value: messaging.TopicGoogleProductCommands},
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer func() {
			if err := unsubscribe(); err != nil {
				logger.Warn("Ошибка отмены подписки",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()

		logger.Info("Подписка на команды синхронизации установлена",
			interfaces.LogField{Key: "topic", Value: messaging.TopicGoogleProductCommands})

		<-ctx.Done()
		logger.Info("Отмена подписки на команды синхронизации")
	}()
}
