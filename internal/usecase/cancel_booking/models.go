package cancel_booking

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// Config настройки Phase 2 (повторы внешнего возврата).
// Передается явно в конструктор, без глобального состояния.
type Config struct {
	// MaxAttempts максимальное количество попыток возврата за один прогон Phase 2
	MaxAttempts int

	// BaseDelay база экспоненциального backoff между попытками
	BaseDelay time.Duration
}

// DefaultConfig значения по умолчанию: 3 попытки, backoff от 500мс
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	return c
}

// Response результат отмены бронирования
type Response struct {
	ID           int64
	RoomID       int64
	UserID       int64
	Status       string
	RefundStatus *string
	RefundAmount *int64
	CancelledAt  *time.Time
}

// FromDomain конвертирует domain.Booking в Response
func FromDomain(b *domain.Booking) *Response {
	resp := &Response{
		ID:           b.ID,
		RoomID:       b.RoomID,
		UserID:       b.UserID,
		Status:       string(b.Status),
		RefundAmount: b.RefundAmount,
		CancelledAt:  b.CancelledAt,
	}
	if b.RefundStatus != nil {
		s := string(*b.RefundStatus)
		resp.RefundStatus = &s
	}
	return resp
}

// RefundKey детерминированный ключ идемпотентности возврата.
// Строится из id бронирования: повторные и продублированные вызовы
// схлопываются на один ключ.
func RefundKey(bookingID int64) string {
	return fmt.Sprintf("refund:%d", bookingID)
}
