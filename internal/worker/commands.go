package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/messaging"
	"github.com/athebyme/gomarket-platform/feed-service/internal/adapters/metrics"
	"github.com/athebyme/gomarket-platform/feed-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
)

const (
	defaultLockTTL     = 2 * time.Minute
	defaultMaxAttempts = 5
)

// Статусы обработки для метрик
const (
	statusSuccess = "success"
	statusError   = "error"
	statusUnknown = "unknown"
	statusInvalid = "invalid"
	statusLocked  = "locked"
	statusRetry   = "retry"
	statusDropped = "dropped"
)

// GoogleProductSyncer операции синхронизации по id записи
type GoogleProductSyncer interface {
	Fetch(ctx context.Context, id int64) (*services.SyncResult, error)
	Upload(ctx context.Context, id int64) (*services.SyncResult, error)
	DeleteRemote(ctx context.Context, id int64) (*services.SyncResult, error)
}

// Publisher публикация сообщений в брокер
type Publisher interface {
	Publish(ctx context.Context, topic, key string, message []byte) error
}

// Locker распределенная блокировка записи
type Locker interface {
	Lock(ctx context.Context, key string, expiration time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// LockKey ключ блокировки записи google_product
func LockKey(recordID int64) string {
	return "google_product:" + strconv.FormatInt(recordID, 10) + ":lock"
}

// CommandHandler обрабатывает команды из google-product-commands
type CommandHandler struct {
	syncer        GoogleProductSyncer
	locker        Locker
	publisher     Publisher
	lockTTL       time.Duration
	maxAttempts   int
	syncMetrics   *metrics.SyncMetrics
	workerMetrics *metrics.WorkerMetrics
	logger        interfaces.LoggerPort
}

// NewCommandHandler создает обработчик команд. Метрики могут быть nil.
func NewCommandHandler(
	syncer GoogleProductSyncer,
	locker Locker,
	publisher Publisher,
	lockTTL time.Duration,
	syncMetrics *metrics.SyncMetrics,
	workerMetrics *metrics.WorkerMetrics,
	logger interfaces.LoggerPort,
) *CommandHandler {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &CommandHandler{
		syncer:        syncer,
		locker:        locker,
		publisher:     publisher,
		lockTTL:       lockTTL,
		maxAttempts:   defaultMaxAttempts,
		syncMetrics:   syncMetrics,
		workerMetrics: workerMetrics,
		logger:        logger,
	}
}

// WithMaxAttempts ограничивает число попыток обработки одной команды
func (h *CommandHandler) WithMaxAttempts(n int) *CommandHandler {
	if n > 0 {
		h.maxAttempts = n
	}
	return h
}

// Handle реализует interfaces.MessageHandler. Команда, упавшая на ошибке
// блокировки или транспорта, публикуется в очередь повторно со счетчиком попыток.
// Ошибка возвращается, только если повторно опубликовать команду не удалось.
func (h *CommandHandler) Handle(ctx context.Context, msg *interfaces.Message) error {
	done := h.workerMetrics.Start(msg.Topic)

	log := h.logger.WithFields(
		interfaces.LogField{Key: "message_id", Value: msg.ID},
		interfaces.LogField{Key: "topic", Value: msg.Topic},
	)
	log.InfoWithContext(ctx, "Получена команда записи Google")

	cmd, err := messaging.DecodeCommand(msg.Value)
	if err != nil {
		log.ErrorWithContext(ctx, "Ошибка декодирования команды",
			interfaces.LogField{Key: "error", Value: err.Error()})
		done(statusInvalid)
		return nil
	}

	log = log.WithFields(
		interfaces.LogField{Key: "command_type", Value: cmd.CommandType},
		interfaces.LogField{Key: "record_id", Value: cmd.RecordID},
	)

	run, err := h.operation(cmd.CommandType)
	if err != nil {
		log.WarnWithContext(ctx, "Неизвестный тип команды")
		done(statusUnknown)
		return nil
	}

	key := LockKey(cmd.RecordID)
	token, acquired, err := h.locker.Lock(ctx, key, h.lockTTL)
	if err != nil {
		log.ErrorWithContext(ctx, "Ошибка получения блокировки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return h.retry(ctx, msg, cmd, log, done)
	}
	if !acquired {
		h.syncMetrics.ObserveLockConflict()
		log.InfoWithContext(ctx, "Запись обрабатывается другим воркером, команда возвращена в очередь")
		done(statusLocked)
		return h.requeue(ctx, msg)
	}
	defer func() {
		if err := h.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn("Ошибка снятия блокировки",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	result, err := run(ctx, cmd.RecordID)
	if err != nil {
		if errors.Is(err, utils.ErrGoogleProductNotFound) {
			log.WarnWithContext(ctx, "Запись не найдена, команда пропущена")
			done(statusInvalid)
			return nil
		}
		log.ErrorWithContext(ctx, "Ошибка обработки команды",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return h.retry(ctx, msg, cmd, log, done)
	}

	if err := h.publishSynced(ctx, cmd.RecordID, result); err != nil {
		log.ErrorWithContext(ctx, "Ошибка публикации события синхронизации",
			interfaces.LogField{Key: "error", Value: err.Error()})
		done(statusError)
		return nil
	}

	log.InfoWithContext(ctx, "Команда успешно обработана",
		interfaces.LogField{Key: "status", Value: string(result.Status)},
		interfaces.LogField{Key: "retried", Value: result.Retried},
	)
	done(statusSuccess)
	return nil
}

func (h *CommandHandler) operation(commandType messaging.CommandType) (func(context.Context, int64) (*services.SyncResult, error), error) {
	switch commandType {
	case messaging.CommandUpload:
		return h.syncer.Upload, nil
	case messaging.CommandFetch:
		return h.syncer.Fetch, nil
	case messaging.CommandDelete:
		return h.syncer.DeleteRemote, nil
	default:
		return nil, fmt.Errorf("%w: %q", utils.ErrUnknownCommand, commandType)
	}
}

// requeue отправляет команду в конец очереди
func (h *CommandHandler) requeue(ctx context.Context, msg *interfaces.Message) error {
	if err := h.publisher.Publish(ctx, messaging.TopicGoogleProductCommands, msg.Key, msg.Value); err != nil {
		return fmt.Errorf("failed to requeue locked command: %w", err)
	}
	return nil
}

// retry публикует команду повторно с увеличенным счетчиком попыток.
// После maxAttempts команда отбрасывается.
func (h *CommandHandler) retry(
	ctx context.Context,
	msg *interfaces.Message,
	cmd messaging.GoogleProductCommand,
	log interfaces.LoggerPort,
	done func(status string),
) error {
	cmd.Attempt++
	if cmd.Attempt >= h.maxAttempts {
		log.ErrorWithContext(ctx, "Команда отброшена после исчерпания попыток",
			interfaces.LogField{Key: "attempts", Value: cmd.Attempt})
		done(statusDropped)
		return nil
	}

	data, err := cmd.Encode()
	if err != nil {
		done(statusError)
		return err
	}
	if err := h.publisher.Publish(ctx, messaging.TopicGoogleProductCommands, msg.Key, data); err != nil {
		done(statusError)
		return fmt.Errorf("failed to republish failed command: %w", err)
	}

	log.InfoWithContext(ctx, "Команда возвращена в очередь для повторной попытки",
		interfaces.LogField{Key: "attempt", Value: cmd.Attempt})
	done(statusRetry)
	return nil
}

func (h *CommandHandler) publishSynced(ctx context.Context, recordID int64, result *services.SyncResult) error {
	event := messaging.GoogleProductSynced{
		RecordID:  recordID,
		Operation: string(result.Operation),
		Status:    string(result.Status),
		Retried:   result.Retried,
	}
	if !result.Skipped() {
		event.Success = result.Outcome.Success
		event.RemoteID = result.Outcome.RemoteID
		syncedAt := result.Outcome.SyncedAt
		event.SyncedAt = &syncedAt
		if len(result.Outcome.Errors) > 0 {
			errs, err := json.Marshal(result.Outcome.Errors)
			if err != nil {
				return fmt.Errorf("failed to encode sync errors: %w", err)
			}
			event.Errors = errs
		}
	}

	data, err := event.Encode()
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, messaging.TopicGoogleProductEvents, strconv.FormatInt(recordID, 10), data)
}
