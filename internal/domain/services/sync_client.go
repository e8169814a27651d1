package services

import (
	"context"
	"errors"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/contentapi"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/metrics"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/feed"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
)

// SyncStatus итог операции синхронизации для вызывающего кода
type SyncStatus string

const (
	// SyncStatusSkipped у записи нет remote id, вызов не выполнялся
	SyncStatusSkipped SyncStatus = "skipped"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncResult результат Fetch, CreateOrUpdate или Delete
type SyncResult struct {
	Operation Operation            `json:"operation"`
	Status    SyncStatus           `json:"status"`
	Retried   bool                 `json:"retried"`
	Outcome   Outcome              `json:"outcome"`
	Response  *contentapi.Response `json:"-"`
}

// Skipped сообщает, что вызов не выполнялся
func (r *SyncResult) Skipped() bool {
	return r.Status == SyncStatusSkipped
}

// SyncClient выполняет одну операцию Content API для записи с однократным
// обновлением токена и повтором при ошибке авторизации
type SyncClient struct {
	merchantID string
	api        ProductsAPI
	mapper     *feed.Mapper
	session    AuthSession
	tokens     TokenStore
	recorder   *Recorder
	metrics    *metrics.SyncMetrics
	logger     interfaces.LoggerPort
}

// NewSyncClient создает клиент синхронизации. tokens и syncMetrics могут быть nil.
func NewSyncClient(
	merchantID string,
	api ProductsAPI,
	mapper *feed.Mapper,
	session AuthSession,
	tokens TokenStore,
	recorder *Recorder,
	syncMetrics *metrics.SyncMetrics,
	logger interfaces.LoggerPort,
) (*SyncClient, error) {
	switch {
	case merchantID == "":
		return nil, errors.New("merchant id is empty")
	case api == nil:
		return nil, errors.New("content api client is nil")
	case mapper == nil:
		return nil, errors.New("attribute mapper is nil")
	case session == nil:
		return nil, errors.New("auth session is nil")
	case recorder == nil:
		return nil, errors.New("recorder is nil")
	case logger == nil:
		return nil, errors.New("logger is nil")
	}

	return &SyncClient{
		merchantID: merchantID,
		api:        api,
		mapper:     mapper,
		session:    session,
		tokens:     tokens,
		recorder:   recorder,
		metrics:    syncMetrics,
		logger:     logger,
	}, nil
}

type remoteCall func(ctx context.Context) (*contentapi.Response, error)

// Fetch запрашивает товар в Google. Без remote id возвращает SyncStatusSkipped.
func (c *SyncClient) Fetch(ctx context.Context, product *models.GoogleProduct) (*SyncResult, error) {
	if !product.HasRemoteID() {
		return c.skip(OperationGet), nil
	}
	remoteID := product.RemoteID()
	return c.execute(ctx, product, OperationGet, func(ctx context.Context) (*contentapi.Response, error) {
		return c.api.Get(ctx, c.merchantID, remoteID)
	})
}

// CreateOrUpdate отправляет полный набор атрибутов; Google создает или заменяет товар
func (c *SyncClient) CreateOrUpdate(ctx context.Context, product *models.GoogleProduct) (*SyncResult, error) {
	payload := c.mapper.Attributes(product, true)
	return c.execute(ctx, product, OperationInsert, func(ctx context.Context) (*contentapi.Response, error) {
		return c.api.Insert(ctx, c.merchantID, payload)
	})
}

// Delete удаляет товар в Google. Без remote id возвращает SyncStatusSkipped.
func (c *SyncClient) Delete(ctx context.Context, product *models.GoogleProduct) (*SyncResult, error) {
	if !product.HasRemoteID() {
		return c.skip(OperationDelete), nil
	}
	remoteID := product.RemoteID()
	return c.execute(ctx, product, OperationDelete, func(ctx context.Context) (*contentapi.Response, error) {
		return c.api.Delete(ctx, c.merchantID, remoteID)
	})
}

func (c *SyncClient) skip(op Operation) *SyncResult {
	c.metrics.ObserveOutcome(string(op), string(SyncStatusSkipped))
	return &SyncResult{Operation: op, Status: SyncStatusSkipped}
}

// execute выполняет вызов, при ошибке авторизации обновляет токен и повторяет
// вызов не более одного раза, затем записывает итог последнего ответа.
// Ошибки транспорта возвращаются без записи итога.
func (c *SyncClient) execute(ctx context.Context, product *models.GoogleProduct, op Operation, call remoteCall) (*SyncResult, error) {
	log := c.logger.WithFields(
		interfaces.LogField{Key: "google_product_id", Value: product.ID},
		interfaces.LogField{Key: "operation", Value: string(op)},
	)

	resp, err := c.call(ctx, op, call)
	if err != nil {
		return nil, err
	}

	retried := false
	if hasAuthError(resp) {
		if err := c.session.Reload(ctx); err != nil {
			log.WarnWithContext(ctx, "Не удалось перечитать токен Google из хранилища",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		if c.session.HasRefreshToken() {
			if c.refresh(ctx, log) {
				log.InfoWithContext(ctx, "Google отклонил авторизацию, токен обновлен, повторяем запрос")
				resp, err = c.call(ctx, op, call)
				if err != nil {
					return nil, err
				}
				retried = true
				if hasAuthError(resp) {
					log.WarnWithContext(ctx, "Авторизация в Google отклонена и после обновления токена")
				}
			}
		} else {
			log.WarnWithContext(ctx, "Нет refresh token, требуется OAuth авторизация в Google")
		}
	}

	outcome, err := c.recorder.Record(ctx, product, op, resp)
	if err != nil {
		return nil, err
	}

	status := SyncStatusSuccess
	if !outcome.Success {
		status = SyncStatusFailed
	}
	c.metrics.ObserveOutcome(string(op), string(status))

	return &SyncResult{
		Operation: op,
		Status:    status,
		Retried:   retried,
		Outcome:   outcome,
		Response:  resp,
	}, nil
}

// refresh обновляет токен в сессии и сохраняет его в хранилище настроек.
// Возвращает true, если сессия получила новый токен.
func (c *SyncClient) refresh(ctx context.Context, log interfaces.LoggerPort) bool {
	token, err := c.session.Refresh(ctx)
	c.metrics.ObserveTokenRefresh(err == nil)
	if err != nil {
		log.WarnWithContext(ctx, "Не удалось обновить access token Google",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return false
	}

	if c.tokens != nil {
		if err := c.tokens.SaveToken(ctx, token); err != nil {
			log.ErrorWithContext(ctx, "Не удалось сохранить обновленный токен Google",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	return true
}

func (c *SyncClient) call(ctx context.Context, op Operation, call remoteCall) (*contentapi.Response, error) {
	start := time.Now()
	resp, err := call(ctx)
	switch {
	case err != nil:
		c.metrics.ObserveRemoteCall(string(op), metrics.ResultTransportError, time.Since(start))
	case resp.HasErrors():
		c.metrics.ObserveRemoteCall(string(op), metrics.ResultRemoteError, time.Since(start))
	default:
		c.metrics.ObserveRemoteCall(string(op), metrics.ResultOK, time.Since(start))
	}
	return resp, err
}

func hasAuthError(resp *contentapi.Response) bool {
	_, found := resp.FindError(contentapi.ErrorEntry.IsInvalidCredentials)
	return found
}
