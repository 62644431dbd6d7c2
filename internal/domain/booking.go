package domain

import (
	"time"
)

// BookingStatus статус бронирования
type BookingStatus string

const (
	StatusPending       BookingStatus = "pending"
	StatusConfirmed     BookingStatus = "confirmed"
	StatusRefundPending BookingStatus = "refund_pending"
	StatusCancelled     BookingStatus = "cancelled"
	StatusRefundFailed  BookingStatus = "refund_failed"
)

// RefundStatus статус возврата средств по бронированию
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// transitions таблица допустимых переходов статусов.
// Любое изменение статуса обязано проверяться через CanTransition -
// прямые записи статуса в обход таблицы запрещены.
var transitions = map[BookingStatus]map[BookingStatus]bool{
	StatusPending: {
		StatusConfirmed:     true,
		StatusCancelled:     true,
		StatusRefundPending: true,
	},
	StatusConfirmed: {
		StatusRefundPending: true,
		StatusCancelled:     true,
	},
	StatusRefundPending: {
		StatusCancelled:    true,
		StatusRefundFailed: true,
	},
	StatusRefundFailed: {
		StatusRefundPending: true,
		StatusCancelled:     true,
	},
	// Cancelled - терминальный статус, переходов из него нет
	StatusCancelled: {},
}

// CanTransition возвращает true, если переход from -> to допустим
func CanTransition(from, to BookingStatus) bool {
	return transitions[from][to]
}

// ValidStatus возвращает true, если статус известен системе
func ValidStatus(s BookingStatus) bool {
	_, ok := transitions[s]
	return ok
}

// Booking бронирование комнаты на полуоткрытый интервал дат [CheckIn, CheckOut).
// CheckOut не включается: выезд и заезд в один день не пересекаются.
type Booking struct {
	ID     int64
	RoomID int64
	UserID int64

	CheckIn  time.Time
	CheckOut time.Time
	Status   BookingStatus

	GuestName  string
	GuestCount int

	// Данные платежа и возврата
	PaymentReference *string
	RefundReference  *string
	RefundStatus     *RefundStatus
	RefundAmount     *int64 // в минорных единицах валюты
	RefundAttempts   int

	// NeedsAttention выставляется reconciliation-процессом, когда возврат
	// исчерпал общий лимит попыток и требует ручного вмешательства
	NeedsAttention bool

	CancelledAt *time.Time
	CancelledBy *int64

	DeletedAt *time.Time
	DeletedBy *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCancellable возвращает true, если бронирование можно отменить
func (b *Booking) IsCancellable() bool {
	return b.Status == StatusPending ||
		b.Status == StatusConfirmed ||
		b.Status == StatusRefundFailed
}

// IsTerminal возвращает true только для отмененного бронирования
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCancelled
}

// IsRefundInProgress возвращает true, если возврат средств уже запущен
func (b *Booking) IsRefundInProgress() bool {
	return b.Status == StatusRefundPending
}

// IsActive возвращает true, если бронирование занимает комнату
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// HasPayment возвращает true, если по бронированию было списание
func (b *Booking) HasPayment() bool {
	return b.PaymentReference != nil && *b.PaymentReference != ""
}

// OverlapsWith возвращает true, если интервал бронирования пересекается
// с [checkIn, checkOut)
func (b *Booking) OverlapsWith(checkIn, checkOut time.Time) bool {
	return Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut)
}

// Overlaps стандартный тест пересечения полуоткрытых интервалов:
// a.start < b.end && a.end > b.start. Смежные интервалы не пересекаются.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// Validate проверяет инварианты бронирования перед записью.
// Вызывается явно каждым пишущим путем оркестратора, а не хуком
// персистентности, чтобы проверка была видимой и тестируемой.
func (b *Booking) Validate() error {
	if !ValidStatus(b.Status) {
		return &InvariantViolationError{
			BookingID: b.ID,
			Detail:    "unknown booking status " + string(b.Status),
		}
	}

	if !b.CheckIn.Before(b.CheckOut) {
		return ErrInvalidDateRange
	}

	// refund_status = succeeded допустим только у отмененного бронирования
	if b.RefundStatus != nil && *b.RefundStatus == RefundStatusSucceeded && b.Status != StatusCancelled {
		return &InvariantViolationError{
			BookingID: b.ID,
			Detail:    "refund succeeded but booking is not cancelled",
		}
	}

	return nil
}
