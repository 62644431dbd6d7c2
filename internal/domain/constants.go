package domain

// Business validation constants
const (
	MinGuestCount      = 1
	MaxGuestCount      = 100
	MaxGuestNameLength = 255
	MaxStayNights      = 365
)

// Time format constants
const (
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// ActiveStatuses статусы, при которых бронирование занимает комнату.
// Используется при проверке пересечения дат: всё, что ещё не отменено,
// блокирует интервал.
var ActiveStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusRefundPending,
	StatusRefundFailed,
}
