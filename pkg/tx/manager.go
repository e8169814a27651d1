package tx

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/jackc/pgx/v5"
)

// txKeyType ключ для хранения транзакции в контексте
type txKeyType struct{}

var txKey = txKeyType{}

// TxManager управляет жизненным циклом транзакций БД.
type TxManager interface {
	// Do выполняет fn внутри транзакции. Ошибка fn откатывает транзакцию,
	// успешное завершение фиксирует ее. Контекст fn содержит транзакцию.
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Beginner источник транзакций (*pgxpool.Pool или pgxmock)
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgxTxManager реализация TxManager для pgx.
type pgxTxManager struct {
	db     Beginner
	logger interfaces.LoggerPort
}

// NewTxManager создает новый менеджер транзакций.
func NewTxManager(db Beginner, logger interfaces.LoggerPort) TxManager {
	return &pgxTxManager{db: db, logger: logger}
}

// Do реализует метод интерфейса TxManager.
func (m *pgxTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// вложенный вызов переиспользует уже открытую транзакцию
	if _, ok := GetTxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx.Begin failed: %w", err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && m.logger != nil {
			m.logger.WarnWithContext(ctx, "Не удалось откатить транзакцию",
				interfaces.LogField{Key: "rollback_error", Value: rollbackErr.Error()},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
		finished = true
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx.Commit failed: %w", err)
	}
	finished = true

	return nil
}

// GetTxFromContext извлекает транзакцию из контекста.
func GetTxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}
