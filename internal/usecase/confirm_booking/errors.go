package confirm_booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("confirm_booking: booking not found")

	// ErrNotConfirmable возвращается, когда бронирование не в статусе pending
	ErrNotConfirmable = errors.New("confirm_booking: booking cannot be confirmed")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("confirm_booking: internal error")
)
