package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/tx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DB общий интерфейс *pgxpool.Pool и pgxmock
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const defaultHistoryLimit = 50

// GoogleProductStorage хранилище записей синхронизации с Google Merchant в PostgreSQL
type GoogleProductStorage struct {
	db        DB
	txManager tx.TxManager
	now       func() time.Time
}

// NewGoogleProductStorage создает хранилище поверх пула соединений
func NewGoogleProductStorage(db DB, logger interfaces.LoggerPort) (*GoogleProductStorage, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	return &GoogleProductStorage{
		db:        db,
		txManager: tx.NewTxManager(db, logger),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// getExecutor возвращает исполнителя запросов (транзакцию из контекста или пул)
func (r *GoogleProductStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return r.db
}

const selectGoogleProduct = `
	SELECT gp.id, gp.variant_id, gp.remote_product_id, gp.last_sync_error, gp.last_sync_at,
		gp.auto_update, gp.attribute_overrides, gp.created_at, gp.updated_at,
		v.id, v.product_id, v.sku, p.name, COALESCE(p.description, ''), p.slug,
		v.price::text, v.sale_price::text, COALESCE(v.currency, ''), COALESCE(v.weight, 0)::text,
		COALESCE(p.brand, ''), COALESCE(v.gtin, ''), COALESCE(v.mpn, ''), COALESCE(v.color, ''), COALESCE(v.size, ''),
		COALESCE(v.image_urls, '{}'), v.count_on_hand, v.backorderable,
		COALESCE(p.google_category, ''), COALESCE(p.product_type, '')
	FROM google_shopping.products gp
	JOIN catalog.variants v ON v.id = gp.variant_id
	JOIN catalog.products p ON p.id = v.product_id
`

// GetByID получает запись вместе с вариантом по ID
func (r *GoogleProductStorage) GetByID(ctx context.Context, id int64) (*models.GoogleProduct, error) {
	if id <= 0 {
		return nil, utils.ErrInvalidGoogleProductID
	}
	row := r.getExecutor(ctx).QueryRow(ctx, selectGoogleProduct+` WHERE gp.id = $1`, id)
	return scanGoogleProduct(row)
}

// GetByVariantID получает запись по ID варианта
func (r *GoogleProductStorage) GetByVariantID(ctx context.Context, variantID int64) (*models.GoogleProduct, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, selectGoogleProduct+` WHERE gp.variant_id = $1`, variantID)
	return scanGoogleProduct(row)
}

func scanGoogleProduct(row pgx.Row) (*models.GoogleProduct, error) {
	var (
		product   models.GoogleProduct
		variant   models.Variant
		overrides []byte
		price     string
		salePrice *string
		weight    string
		imageURLs []string
	)

	err := row.Scan(
		&product.ID, &product.VariantID, &product.RemoteProductID, &product.LastSyncError, &product.LastSyncAt,
		&product.AutoUpdate, &overrides, &product.CreatedAt, &product.UpdatedAt,
		&variant.ID, &variant.ProductID, &variant.SKU, &variant.Name, &variant.Description, &variant.Slug,
		&price, &salePrice, &variant.Currency, &weight,
		&variant.Brand, &variant.GTIN, &variant.MPN, &variant.Color, &variant.Size, &imageURLs,
		&variant.CountOnHand, &variant.Backorderable, &variant.GoogleCategory, &variant.ProductType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrGoogleProductNotFound
		}
		return nil, fmt.Errorf("failed to get google product: %w", err)
	}

	if variant.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to parse variant price: %w", err)
	}
	if salePrice != nil {
		sp, err := decimal.NewFromString(*salePrice)
		if err != nil {
			return nil, fmt.Errorf("failed to parse variant sale price: %w", err)
		}
		variant.SalePrice = &sp
	}
	if variant.Weight, err = decimal.NewFromString(weight); err != nil {
		return nil, fmt.Errorf("failed to parse variant weight: %w", err)
	}
	variant.ImageURLs = imageURLs

	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &product.AttributeOverrides); err != nil {
			return nil, fmt.Errorf("failed to decode attribute overrides: %w", err)
		}
	}

	product.Variant = &variant
	return &product, nil
}

// Create создает запись для варианта. Вызывается владельцем каталога при создании варианта.
func (r *GoogleProductStorage) Create(ctx context.Context, product *models.GoogleProduct) error {
	overrides, err := encodeOverrides(product.AttributeOverrides)
	if err != nil {
		return err
	}

	now := r.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
		INSERT INTO google_shopping.products (variant_id, auto_update, attribute_overrides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = r.getExecutor(ctx).QueryRow(ctx, query,
		product.VariantID, product.AutoUpdate, overrides, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to create google product: %w", err)
	}
	return nil
}

// UpdateLocal сохраняет локально редактируемые свойства записи
func (r *GoogleProductStorage) UpdateLocal(ctx context.Context, product *models.GoogleProduct) error {
	overrides, err := encodeOverrides(product.AttributeOverrides)
	if err != nil {
		return err
	}

	product.UpdatedAt = r.now()

	query := `
		UPDATE google_shopping.products
		SET auto_update = $2, attribute_overrides = $3, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.getExecutor(ctx).Exec(ctx, query, product.ID, product.AutoUpdate, overrides, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update google product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrGoogleProductNotFound
	}
	return nil
}

// SaveSyncState сохраняет результат вызова Google API и добавляет запись в историю
// в одной транзакции.
func (r *GoogleProductStorage) SaveSyncState(ctx context.Context, product *models.GoogleProduct, record *models.SyncHistoryRecord) error {
	return r.txManager.Do(ctx, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)

		product.UpdatedAt = r.now()
		tag, err := exec.Exec(ctx, `
			UPDATE google_shopping.products
			SET last_sync_error = $2, last_sync_at = $3, updated_at = $4
			WHERE id = $1
		`, product.ID, product.LastSyncError, product.LastSyncAt, product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save sync state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return utils.ErrGoogleProductNotFound
		}

		if record == nil {
			return nil
		}
		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		record.GoogleProductID = product.ID

		_, err = exec.Exec(ctx, `
			INSERT INTO google_shopping.sync_history (id, google_product_id, operation, success, errors, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, record.ID, record.GoogleProductID, record.Operation, record.Success, record.Errors, record.SyncedAt)
		if err != nil {
			return fmt.Errorf("failed to save sync history record: %w", err)
		}
		return nil
	})
}

// ListHistory возвращает историю синхронизаций записи, новые записи первыми
func (r *GoogleProductStorage) ListHistory(ctx context.Context, productID int64, limit, offset int) ([]*models.SyncHistoryRecord, int64, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	exec := r.getExecutor(ctx)

	var total int64
	err := exec.QueryRow(ctx,
		`SELECT COUNT(*) FROM google_shopping.sync_history WHERE google_product_id = $1`, productID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sync history: %w", err)
	}
	if total == 0 {
		return []*models.SyncHistoryRecord{}, 0, nil
	}

	rows, err := exec.Query(ctx, `
		SELECT id, google_product_id, operation, success, errors, synced_at
		FROM google_shopping.sync_history
		WHERE google_product_id = $1
		ORDER BY synced_at DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sync history: %w", err)
	}
	defer rows.Close()

	records := make([]*models.SyncHistoryRecord, 0, limit)
	for rows.Next() {
		var record models.SyncHistoryRecord
		if err := rows.Scan(&record.ID, &record.GoogleProductID, &record.Operation,
			&record.Success, &record.Errors, &record.SyncedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan sync history row: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during sync history rows iteration: %w", err)
	}

	return records, total, nil
}

func encodeOverrides(overrides map[string]string) ([]byte, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attribute overrides: %w", err)
	}
	return data, nil
}
