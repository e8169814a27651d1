package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
)

// Operation операция над ресурсом products
type Operation string

const (
	OperationGet    Operation = "get"
	OperationInsert Operation = "insert"
	OperationDelete Operation = "delete"
)

// Outcome итог одного вызова Content API
type Outcome struct {
	Success   bool                    `json:"success"`
	Errors    []contentapi.ErrorEntry `json:"errors,omitempty"`
	ErrorBlob *string                 `json:"-"`
	// RemoteID id товара из ответа; в записи не сохраняется
	RemoteID string    `json:"remote_id,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// ClassifyResponse считает ответ неуспешным только при непустом списке ошибок верхнего уровня
func ClassifyResponse(resp *contentapi.Response) (bool, []contentapi.ErrorEntry) {
	errs := resp.Errors()
	return len(errs) == 0, errs
}

// Recorder переносит итог вызова в запись и сохраняет ее
type Recorder struct {
	store SyncStateSaver
	now   func() time.Time
}

// NewRecorder создает Recorder
func NewRecorder(store SyncStateSaver) *Recorder {
	return &Recorder{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock подменяет источник времени
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record записывает last_sync_error и last_sync_at и сохраняет запись синхронно.
// Ошибка сохранения возвращается вызывающему.
func (r *Recorder) Record(ctx context.Context, product *models.GoogleProduct, op Operation, resp *contentapi.Response) (Outcome, error) {
	success, errs := ClassifyResponse(resp)
	syncedAt := r.now()

	outcome := Outcome{
		Success:  success,
		Errors:   errs,
		RemoteID: resp.ProductID(),
		SyncedAt: syncedAt,
	}

	if !success {
		blob, err := json.Marshal(errs)
		if err != nil {
			return outcome, fmt.Errorf("failed to encode sync errors: %w", err)
		}
		s := string(blob)
		outcome.ErrorBlob = &s
	}

	product.LastSyncError = outcome.ErrorBlob
	product.LastSyncAt = &syncedAt

	history := &models.SyncHistoryRecord{
		Operation: string(op),
		Success:   success,
		Errors:    outcome.ErrorBlob,
		SyncedAt:  syncedAt,
	}
	if err := r.store.SaveSyncState(ctx, product, history); err != nil {
		return outcome, fmt.Errorf("failed to persist sync outcome: %w", err)
	}

	return outcome, nil
}
