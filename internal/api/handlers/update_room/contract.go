package update_room

import (
	"context"

	updateRoom "github.com/m04kA/SMC-RoomBookingService/internal/usecase/update_room"
)

type UpdateRoomUseCase interface {
	Execute(ctx context.Context, req *updateRoom.Request) (*updateRoom.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
