package bootstrap

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-platform/feed-service/config"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/googleauth"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/metrics"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/feed"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
)

// GoogleSync собранный стек синхронизации с Google Merchant
type GoogleSync struct {
	Service *services.GoogleProductService
	Session *googleauth.Session
	Tokens  *storage.TokenStorage
	Metrics *metrics.SyncMetrics
}

// NewGoogleSync собирает хранилище, OAuth-сессию, клиент Content API и сервис
// поверх общего пула соединений. Сохраненный токен загружается из базы
// при старте и перечитывается сессией при ошибке авторизации.
func NewGoogleSync(
	ctx context.Context,
	cfg *config.Config,
	db storage.DB,
	syncMetrics *metrics.SyncMetrics,
	logger interfaces.LoggerPort,
) (*GoogleSync, error) {
	repo, err := storage.NewGoogleProductStorage(db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create google product storage: %w", err)
	}
	tokens := storage.NewTokenStorage(db)

	token, err := tokens.LoadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load google token: %w", err)
	}
	if token == nil {
		logger.Warn("Токен Google не найден, требуется авторизация через /api/v1/google/oauth/authorize")
	}
	// токен может появиться позже через callback в другом процессе
	session := googleauth.NewSession(cfg.GoogleAuthConfig(), token).WithTokenLoader(tokens)

	api, err := contentapi.NewClient(cfg.ContentAPIConfig(), session)
	if err != nil {
		return nil, fmt.Errorf("failed to create content api client: %w", err)
	}

	registry, err := feed.NewRegistryBuilder().WithDefaults(cfg.FeedDefaults()).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build attribute registry: %w", err)
	}
	mapper := feed.NewMapper(registry)

	syncClient, err := services.NewSyncClient(
		cfg.Google.MerchantID,
		api,
		mapper,
		session,
		tokens,
		services.NewRecorder(repo),
		syncMetrics,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync client: %w", err)
	}

	return &GoogleSync{
		Service: services.NewGoogleProductService(repo, syncClient, mapper, logger),
		Session: session,
		Tokens:  tokens,
		Metrics: syncMetrics,
	}, nil
}
