package reconcile_refunds

import (
	"context"
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	ListStaleRefundPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Booking, error)
	MarkNeedsAttention(ctx context.Context, id int64) error
}

// RefundProcessor повторно выполняет Phase 2 отмены для зависшего бронирования
type RefundProcessor interface {
	ProcessRefund(ctx context.Context, bookingID int64) error
}

// IdempotencyCleaner чистит истекшие записи идемпотентности
type IdempotencyCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
