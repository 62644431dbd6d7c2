package update_room

import (
	"context"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// RoomRepository интерфейс репозитория комнат
type RoomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	GetVersion(ctx context.Context, id int64) (int64, error)
	UpdateWithVersion(ctx context.Context, id int64, expectedVersion int64, patch domain.RoomPatch) (int64, error)
	DeleteWithVersion(ctx context.Context, id int64, expectedVersion int64) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
