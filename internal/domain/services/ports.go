package services

import (
	"context"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"golang.org/x/oauth2"
)

// GoogleProductRepository хранилище записей синхронизации
type GoogleProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.GoogleProduct, error)
	GetByVariantID(ctx context.Context, variantID int64) (*models.GoogleProduct, error)
	Create(ctx context.Context, product *models.GoogleProduct) error
	UpdateLocal(ctx context.Context, product *models.GoogleProduct) error
	SyncStateSaver
	ListHistory(ctx context.Context, productID int64, limit, offset int) ([]*models.SyncHistoryRecord, int64, error)
}

// SyncStateSaver сохраняет результат синхронизации атомарно: либо полностью, либо ошибка
type SyncStateSaver interface {
	SaveSyncState(ctx context.Context, product *models.GoogleProduct, record *models.SyncHistoryRecord) error
}

// ProductsAPI ресурс products Content API
type ProductsAPI interface {
	Get(ctx context.Context, merchantID, productID string) (*contentapi.Response, error)
	Insert(ctx context.Context, merchantID string, body any) (*contentapi.Response, error)
	Delete(ctx context.Context, merchantID, productID string) (*contentapi.Response, error)
}

// AuthSession учетные данные OAuth, общие для всех вызовов
type AuthSession interface {
	// Reload перечитывает токен, сохраненный другим процессом
	Reload(ctx context.Context) error
	HasRefreshToken() bool
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// TokenStore хранилище настроек, из которого берется токен при следующем запуске
type TokenStore interface {
	SaveToken(ctx context.Context, token *oauth2.Token) error
}
