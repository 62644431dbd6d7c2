package confirm_booking

import (
	"context"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

type ConfirmBookingUseCase interface {
	Execute(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
