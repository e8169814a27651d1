package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается, если ключ не найден
var ErrCacheMiss = errors.New("cache miss")

// CachePort определяет интерфейс для работы с системой кэширования
type CachePort interface {
	// Get получает значение по ключу, ErrCacheMiss если значения нет
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным сроком действия (0 без срока)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete удаляет значение по ключу
	Delete(ctx context.Context, key string) error

	// Take атомарно получает и удаляет значение, ErrCacheMiss если значения нет
	Take(ctx context.Context, key string) ([]byte, error)

	// Lock пытается получить распределенную блокировку.
	// Возвращает токен владельца и true, если блокировка получена.
	Lock(ctx context.Context, key string, expiration time.Duration) (string, bool, error)

	// Unlock освобождает блокировку, только если она принадлежит token
	Unlock(ctx context.Context, key, token string) error

	// Ping проверяет соединение
	Ping(ctx context.Context) error

	// Close закрывает соединение с системой кэширования
	Close() error
}
