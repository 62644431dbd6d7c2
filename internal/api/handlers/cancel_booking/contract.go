package cancel_booking

import (
	"context"

	cancelBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
)

type CancelBookingUseCase interface {
	Execute(ctx context.Context, bookingID int64, actorID int64) (*cancelBooking.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
