package rooms

import (
	"context"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// RoomRepository доступ к хранилищу комнат
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) (*domain.Room, error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
