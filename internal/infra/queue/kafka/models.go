package kafka

import "time"

// RefundJob сообщение очереди возвратов.
// Доставка at-least-once: обработка обязана быть идемпотентной.
type RefundJob struct {
	BookingID  int64     `json:"bookingId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
