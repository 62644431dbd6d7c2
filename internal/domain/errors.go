package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDateRange возвращается, когда check_in не раньше check_out
	ErrInvalidDateRange = errors.New("domain: check_in must be before check_out")
)

// InvalidTransitionError нарушение таблицы переходов статусов.
// Это ошибка программирования, а не бизнес-отказ: в корректном коде
// она не возникает и должна логироваться с полным контекстом.
type InvalidTransitionError struct {
	BookingID int64
	From      BookingStatus
	To        BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("domain: invalid status transition %s -> %s for booking id=%d",
		e.From, e.To, e.BookingID)
}

// InvariantViolationError нарушение инварианта данных бронирования.
// Как и InvalidTransitionError, фатальна и не должна возникать в корректном коде.
type InvariantViolationError struct {
	BookingID int64
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("domain: invariant violation for booking id=%d: %s", e.BookingID, e.Detail)
}
