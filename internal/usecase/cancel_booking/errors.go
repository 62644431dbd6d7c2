package cancel_booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("cancel_booking: booking not found")

	// ErrCannotCancel возвращается, когда бронирование нельзя отменить.
	// Обертка всегда называет текущий статус.
	ErrCannotCancel = errors.New("cancel_booking: booking cannot be cancelled")

	// ErrRefundExhausted возвращается, когда внешний возврат не удался после
	// всех попыток. Бронирование припарковано в refund_failed - состояние
	// переживает рестарт процесса и видно reconciliation и операторам.
	ErrRefundExhausted = errors.New("cancel_booking: refund failed after all attempts")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("cancel_booking: internal error")
)
