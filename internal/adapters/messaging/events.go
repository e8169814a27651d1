package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/internal/utils"
)

const (
	TopicGoogleProductCommands = "google-product-commands"
	TopicGoogleProductEvents   = "google-product-events"
)

type CommandType = string

const (
	CommandUpload CommandType = "upload"
	CommandFetch  CommandType = "fetch"
	CommandDelete CommandType = "delete"
)

type EventType = string

const GoogleProductSyncedEvent EventType = "google_product_synced"

// GoogleProductCommand команда на синхронизацию записи
type GoogleProductCommand struct {
	CommandType CommandType `json:"command_type"`
	RecordID    int64       `json:"record_id"`
	Attempt     int         `json:"attempt,omitempty"` // число неудачных попыток обработки
}

// Encode сериализует команду
func (c GoogleProductCommand) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return data, nil
}

// DecodeCommand разбирает команду; тип команды не проверяется
func DecodeCommand(data []byte) (GoogleProductCommand, error) {
	var cmd GoogleProductCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", utils.ErrInvalidCommand, err)
	}
	if cmd.RecordID <= 0 {
		return cmd, fmt.Errorf("%w: record_id must be positive", utils.ErrInvalidCommand)
	}
	return cmd, nil
}

// GoogleProductSynced событие с результатом синхронизации
type GoogleProductSynced struct {
	EventType EventType       `json:"event_type"`
	RecordID  int64           `json:"record_id"`
	Operation string          `json:"operation"`
	Status    string          `json:"status"`
	Retried   bool            `json:"retried"`
	Success   bool            `json:"success"`
	Errors    json.RawMessage `json:"errors,omitempty"`
	RemoteID  string          `json:"remote_id,omitempty"`
	SyncedAt  *time.Time      `json:"synced_at,omitempty"`
}

// Encode сериализует событие
func (e GoogleProductSynced) Encode() ([]byte, error) {
	e.EventType = GoogleProductSyncedEvent
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", GoogleProductSyncedEvent, err)
	}
	return data, nil
}
