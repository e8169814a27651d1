package interfaces

import "context"

// LogField представляет дополнительное поле в логе
type LogField struct {
	Key   string
	Value interface{}
}

// LoggerPort структурированный логгер сервиса.
// Аргументы после msg передаются как LogField.
type LoggerPort interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// Fatal логирует сообщение и завершает процесс
	Fatal(msg string, args ...interface{})

	// Варианты с контекстом добавляют request_id и trace_id
	DebugWithContext(ctx context.Context, msg string, args ...interface{})
	InfoWithContext(ctx context.Context, msg string, args ...interface{})
	WarnWithContext(ctx context.Context, msg string, args ...interface{})
	ErrorWithContext(ctx context.Context, msg string, args ...interface{})

	// WithFields возвращает логгер, который добавляет fields к каждой записи
	WithFields(fields ...LogField) LoggerPort

	WithField(key string, value interface{}) LoggerPort

	// Sync сбрасывает буферы логгера
	Sync() error
}
