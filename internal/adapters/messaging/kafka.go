package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/athebyme/gomarket-platform/feed-service/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

const (
	headerMessageID = "message_id"
	headerTimestamp = "timestamp"
)

const (
	seekTimeoutMs     = 5000
	redeliveryBackoff = time.Second
)

// offsetControl часть kafka.Consumer, управляющая позицией чтения
type offsetControl interface {
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, timeoutMs int) error
}

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer       *kafka.Producer
	consumers      map[string]*subscription
	consumersMutex sync.Mutex
	brokers        string
	consumerConfig interfaces.ConsumerConfig
	logger         interfaces.LoggerPort
}

// subscription активная подписка с собственным циклом чтения
type subscription struct {
	consumer *kafka.Consumer
	stop     context.CancelFunc
	done     chan struct{}
}

// close останавливает цикл чтения и закрывает consumer
func (s *subscription) close() error {
	s.stop()
	<-s.done
	return s.consumer.Close()
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(brokers []string, consumerConfig interfaces.ConsumerConfig, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	bootstrap := strings.Join(brokers, ",")

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"client.id":          "feed-service-producer",
		"acks":               "all",
		"retries":            5,
		"retry.backoff.ms":   500,
		"compression.type":   "snappy",
		"linger.ms":          10,
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	if consumerConfig.PollTimeout <= 0 {
		consumerConfig.PollTimeout = 100 * time.Millisecond
	}
	if consumerConfig.SessionTimeout <= 0 {
		consumerConfig.SessionTimeout = 30 * time.Second
	}
	if consumerConfig.AutoOffsetReset == "" {
		consumerConfig.AutoOffsetReset = "earliest"
	}

	return &KafkaMessaging{
		producer:       producer,
		consumers:      make(map[string]*subscription),
		brokers:        bootstrap,
		consumerConfig: consumerConfig,
		logger:         logger,
	}, nil
}

// toKafkaMessage собирает kafka.Message со служебными заголовками
func toKafkaMessage(topic, key string, value []byte, now time.Time) *kafka.Message {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
		Headers: []kafka.Header{
			{Key: headerMessageID, Value: []byte(uuid.New().String())},
			{Key: headerTimestamp, Value: []byte(now.UTC().Format(time.RFC3339Nano))},
		},
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg
}

// fromKafkaMessage преобразует kafka.Message в Message
func fromKafkaMessage(msg *kafka.Message) *interfaces.Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	var topic string
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	publishedAt := msg.Timestamp
	if ts, ok := headers[headerTimestamp]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			publishedAt = parsed
		}
	}

	return &interfaces.Message{
		ID:          headers[headerMessageID],
		Topic:       topic,
		Key:         string(msg.Key),
		Value:       msg.Value,
		Headers:     headers,
		PublishedAt: publishedAt,
	}
}

// Publish публикует сообщение и ждет подтверждения доставки
func (k *KafkaMessaging) Publish(ctx context.Context, topic, key string, message []byte) error {
	delivery := make(chan kafka.Event, 1)

	if err := k.producer.Produce(toKafkaMessage(topic, key, message, time.Now()), delivery); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", topic, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("failed to deliver message to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	}
}

// Subscribe подписывается на тему. Смещение фиксируется только после
// успешной обработки сообщения.
func (k *KafkaMessaging) Subscribe(ctx context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":     k.brokers,
		"group.id":              k.consumerConfig.GroupID,
		"auto.offset.reset":     k.consumerConfig.AutoOffsetReset,
		"enable.auto.commit":    false,
		"session.timeout.ms":    int(k.consumerConfig.SessionTimeout.Milliseconds()),
		"heartbeat.interval.ms": 3000,
		"max.poll.interval.ms":  300000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	consumeCtx, stop := context.WithCancel(ctx)
	sub := &subscription{consumer: consumer, stop: stop, done: make(chan struct{})}

	id := uuid.New().String()
	k.consumersMutex.Lock()
	k.consumers[id] = sub
	k.consumersMutex.Unlock()

	go func() {
		defer close(sub.done)
		k.consume(consumeCtx, consumer, handler)
	}()

	unsubscribe := func() error {
		k.consumersMutex.Lock()
		_, active := k.consumers[id]
		delete(k.consumers, id)
		k.consumersMutex.Unlock()

		if !active {
			return nil
		}
		return sub.close()
	}

	return unsubscribe, nil
}

// consume читает сообщения, пока контекст не отменен
func (k *KafkaMessaging) consume(ctx context.Context, consumer *kafka.Consumer, handler interfaces.MessageHandler) {
	pollTimeout := int(k.consumerConfig.PollTimeout.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := consumer.Poll(pollTimeout)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if !k.process(ctx, consumer, e, handler) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(redeliveryBackoff):
				}
			}

		case kafka.Error:
			k.logger.Error("Ошибка Kafka",
				interfaces.LogField{Key: "code", Value: e.Code().String()},
				interfaces.LogField{Key: "error", Value: e.Error()},
			)
			if e.IsFatal() {
				return
			}

		case kafka.PartitionEOF:
			k.logger.Debug("Достигнут конец партиции",
				interfaces.LogField{Key: "partition", Value: e.String()})
		}
	}
}

// process передает сообщение обработчику и фиксирует смещение при успехе.
// При ошибке позиция возвращается на это сообщение, чтобы следующий Poll
// прочитал его снова, а не зафиксировал смещение дальше.
func (k *KafkaMessaging) process(ctx context.Context, offsets offsetControl, e *kafka.Message, handler interfaces.MessageHandler) bool {
	msg := fromKafkaMessage(e)
	if err := handler(ctx, msg); err != nil {
		k.logger.ErrorWithContext(ctx, "Ошибка обработки сообщения, сообщение будет прочитано повторно",
			interfaces.LogField{Key: "topic", Value: msg.Topic},
			interfaces.LogField{Key: "message_id", Value: msg.ID},
			interfaces.LogField{Key: "offset", Value: e.TopicPartition.Offset.String()},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		if err := offsets.Seek(e.TopicPartition, seekTimeoutMs); err != nil {
			k.logger.ErrorWithContext(ctx, "Не удалось вернуть позицию чтения",
				interfaces.LogField{Key: "topic", Value: msg.Topic},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
		return false
	}

	if _, err := offsets.CommitMessage(e); err != nil {
		k.logger.Warn("Не удалось зафиксировать смещение",
			interfaces.LogField{Key: "topic", Value: msg.Topic},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
	return true
}

// Close останавливает потребителей и отправляет накопленные сообщения
func (k *KafkaMessaging) Close() error {
	k.consumersMutex.Lock()
	consumers := k.consumers
	k.consumers = make(map[string]*subscription)
	k.consumersMutex.Unlock()

	for _, sub := range consumers {
		if err := sub.close(); err != nil {
			k.logger.Warn("Ошибка закрытия Kafka consumer",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	if remaining := k.producer.Flush(15 * 1000); remaining > 0 {
		k.logger.Warn("Не все сообщения отправлены перед закрытием",
			interfaces.LogField{Key: "remaining", Value: remaining})
	}
	k.producer.Close()

	return nil
}
