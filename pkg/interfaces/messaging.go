package interfaces

import (
	"context"
	"time"
)

// Message представляет сообщение, полученное из брокера
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Key         string            `json:"key"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers"`
	PublishedAt time.Time         `json:"published_at"`
}

// MessageHandler определяет функцию обработчика сообщений.
// Ошибка обработчика оставляет сообщение неподтвержденным.
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig содержит настройки для подписчика на сообщения
type ConsumerConfig struct {
	GroupID         string
	AutoOffsetReset string
	PollTimeout     time.Duration
	SessionTimeout  time.Duration
}

type MessagingPort interface {
	// Publish публикует сообщение; key задает партицию (может быть пустым)
	Publish(ctx context.Context, topic, key string, message []byte) error

	Subscribe(ctx context.Context, topic string, handler MessageHandler) (func() error, error)

	Close() error
}
