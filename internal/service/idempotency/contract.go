package idempotency

import (
	"context"
	"encoding/json"
	"time"

	storage "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/idempotency"
)

// Storage интерфейс хранилища записей идемпотентности
type Storage interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*storage.AcquireResult, error)
	Complete(ctx context.Context, key string, result json.RawMessage) error
	Release(ctx context.Context, key string) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
