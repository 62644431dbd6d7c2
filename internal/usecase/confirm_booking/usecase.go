package confirm_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/booking"
)

// UseCase подтверждение бронирования: pending -> confirmed
type UseCase struct {
	bookingRepo BookingRepository
	txManager   TransactionManager
	logger      Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(bookingRepo BookingRepository, txManager TransactionManager, logger Logger) *UseCase {
	return &UseCase{
		bookingRepo: bookingRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// Execute подтверждает бронирование. Повторное подтверждение - успешный no-op.
func (uc *UseCase) Execute(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	uc.logger.Info("ConfirmBooking: booking=%d", bookingID)

	var result *domain.Booking

	err := uc.txManager.DoReadCommitted(ctx, "confirm_booking", func(txCtx context.Context) error {
		booking, err := uc.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}

		if booking.Status == domain.StatusConfirmed {
			result = booking
			return nil
		}

		if !domain.CanTransition(booking.Status, domain.StatusConfirmed) {
			uc.logger.Warn("ConfirmBooking: booking id=%d cannot be confirmed, status=%s",
				bookingID, booking.Status)
			return fmt.Errorf("%w: current status is %s", ErrNotConfirmable, booking.Status)
		}

		if err := uc.bookingRepo.TransitionStatus(txCtx, bookingID, booking.Status, domain.StatusConfirmed); err != nil {
			return fmt.Errorf("%w: failed to transition status: %v", ErrInternal, err)
		}

		updated, err := uc.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			return fmt.Errorf("%w: failed to reread booking: %v", ErrInternal, err)
		}

		result = updated
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("ConfirmBooking: booking id=%d confirmed", bookingID)
	return result, nil
}
