package cancel_booking

import (
	"context"
	"encoding/json"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	"github.com/m04kA/SMC-RoomBookingService/internal/integrations/paymentgateway"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	MarkCancelled(ctx context.Context, id int64, from domain.BookingStatus, cancelledBy int64) error
	MarkRefundPending(ctx context.Context, id int64, from domain.BookingStatus, cancelledBy int64, refundAmount int64) error
	MarkRefundSucceeded(ctx context.Context, id int64, refundReference string) error
	MarkRefundFailed(ctx context.Context, id int64) error
	IncrementRefundAttempts(ctx context.Context, id int64) error
}

// RoomRepository интерфейс репозитория комнат (для расчета суммы возврата)
type RoomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoReadCommitted(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

// IdempotencyGuard дедуплицирует вызов внешнего возврата по ключу
type IdempotencyGuard interface {
	Execute(ctx context.Context, key string, fn func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, bool, error)
}

// PaymentGateway интерфейс клиента платежного шлюза
type PaymentGateway interface {
	Refund(ctx context.Context, req *paymentgateway.RefundRequest, idempotencyKey string) (*paymentgateway.RefundResponse, error)
}

// RefundDispatcher ставит Phase 2 (внешний возврат) в очередь после коммита Phase 1.
// Доставка at-least-once: дубликаты схлопываются guard'ом идемпотентности.
type RefundDispatcher interface {
	DispatchRefund(ctx context.Context, bookingID int64) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
