package create_booking

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.RoomID <= 0 {
		return fmt.Errorf("%w: roomID must be positive", ErrInvalidInput)
	}

	if req.UserID <= 0 {
		return fmt.Errorf("%w: userID must be positive", ErrInvalidInput)
	}

	if req.CheckIn.IsZero() || req.CheckOut.IsZero() {
		return fmt.Errorf("%w: checkIn and checkOut are required", ErrInvalidInput)
	}

	// Полуоткрытый интервал: check_in строго раньше check_out
	if !req.CheckIn.Before(req.CheckOut) {
		return ErrInvalidDateRange
	}

	if req.GuestCount < domain.MinGuestCount || req.GuestCount > domain.MaxGuestCount {
		return fmt.Errorf("%w: guestCount must be between %d and %d",
			ErrInvalidInput, domain.MinGuestCount, domain.MaxGuestCount)
	}

	if len(req.GuestName) > domain.MaxGuestNameLength {
		return fmt.Errorf("%w: guestName is too long", ErrInvalidInput)
	}

	return nil
}

// validateDates проверяет даты относительно текущего момента
func validateDates(req *Request, now time.Time) error {
	today := truncateToDay(now)

	if req.CheckIn.Before(today) {
		return ErrDateInPast
	}

	if req.CheckOut.Sub(req.CheckIn) > domain.MaxStayNights*24*time.Hour {
		return ErrStayTooLong
	}

	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
