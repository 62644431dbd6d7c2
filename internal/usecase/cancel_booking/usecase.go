package cancel_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/booking"
	roomRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
	"github.com/m04kA/SMC-RoomBookingService/pkg/metrics"
)

// UseCase оркестратор отмены бронирования с возвратом средств.
//
// Отмена двухфазная. Phase 1 - локальная транзакция: бронирование без платежа
// сразу переводится в cancelled; с платежом - в промежуточный refund_pending.
// Phase 2 - внешний вызов возврата, выполняется строго после коммита Phase 1,
// вне каких-либо транзакций и блокировок БД. Закоммиченный промежуточный статус
// делает повтор Phase 2 безопасным, а частичный отказ - видимым именованным
// состоянием, а не порчей данных.
type UseCase struct {
	bookingRepo BookingRepository
	roomRepo    RoomRepository
	txManager   TransactionManager
	guard       IdempotencyGuard
	gateway     PaymentGateway
	dispatcher  RefundDispatcher
	cfg         Config
	logger      Logger
	metrics     *metrics.Metrics // опционально, может быть nil
}

// NewUseCase создает новый экземпляр оркестратора отмены
func NewUseCase(
	bookingRepo BookingRepository,
	roomRepo RoomRepository,
	txManager TransactionManager,
	guard IdempotencyGuard,
	gateway PaymentGateway,
	dispatcher RefundDispatcher,
	cfg Config,
	logger Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		bookingRepo: bookingRepo,
		roomRepo:    roomRepo,
		txManager:   txManager,
		guard:       guard,
		gateway:     gateway,
		dispatcher:  dispatcher,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		metrics:     m,
	}
}

// Execute отменяет бронирование. Идемпотентна при произвольном повторении:
// повторный вызов на уже отмененном или возвращаемом бронировании - это
// успешный no-op, а не ошибка и не второй возврат средств.
func (uc *UseCase) Execute(ctx context.Context, bookingID int64, actorID int64) (*Response, error) {
	uc.logger.Info("CancelBooking: booking=%d, actor=%d", bookingID, actorID)

	var result *domain.Booking
	var needsRefund bool

	// Phase 1: локальный переход статуса одной транзакцией.
	// GetByID внутри транзакции блокирует строку (FOR UPDATE), поэтому
	// конкурентные отмены одного бронирования сериализуются.
	err := uc.txManager.DoReadCommitted(ctx, "cancel_booking", func(txCtx context.Context) error {
		booking, err := uc.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}

		// Отмена идемпотентна: терминальный статус - успешный no-op
		if booking.IsTerminal() {
			uc.logger.Info("CancelBooking: booking id=%d is already cancelled, no-op", bookingID)
			result = booking
			return nil
		}

		// Возврат уже в полете - им владеет предыдущий вызов, второй возврат
		// не запускаем
		if booking.IsRefundInProgress() {
			uc.logger.Info("CancelBooking: booking id=%d has refund in progress, no-op", bookingID)
			result = booking
			return nil
		}

		if !booking.IsCancellable() {
			uc.logger.Warn("CancelBooking: booking id=%d cannot be cancelled, status=%s",
				bookingID, booking.Status)
			return fmt.Errorf("%w: current status is %s", ErrCannotCancel, booking.Status)
		}

		if booking.HasPayment() {
			return uc.toRefundPending(txCtx, booking, actorID, &result, &needsRefund)
		}
		return uc.toCancelled(txCtx, booking, actorID, &result)
	})

	if err != nil {
		return nil, err
	}

	// Phase 2 ставится в очередь только после коммита Phase 1.
	// Если dispatch не удался, бронирование остается в refund_pending -
	// его добьет reconciliation.
	if needsRefund {
		if err := uc.dispatcher.DispatchRefund(ctx, bookingID); err != nil {
			uc.logger.Error("CancelBooking: failed to dispatch refund for booking id=%d, reconciliation will retry: %v",
				bookingID, err)
		}
	}

	return FromDomain(result), nil
}

// toCancelled переводит бронирование без платежа сразу в cancelled
func (uc *UseCase) toCancelled(ctx context.Context, booking *domain.Booking, actorID int64, result **domain.Booking) error {
	if err := uc.checkTransition(booking, domain.StatusCancelled); err != nil {
		return err
	}

	if err := uc.bookingRepo.MarkCancelled(ctx, booking.ID, booking.Status, actorID); err != nil {
		return fmt.Errorf("%w: failed to mark cancelled: %v", ErrInternal, err)
	}

	updated, err := uc.bookingRepo.GetByID(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to reread booking: %v", ErrInternal, err)
	}

	if err := updated.Validate(); err != nil {
		uc.logger.Error("CancelBooking: invariant violation after phase 1 for booking id=%d: %v", booking.ID, err)
		return err
	}

	*result = updated
	uc.observeCancellation("cancelled")
	uc.logger.Info("CancelBooking: booking id=%d cancelled without refund", booking.ID)
	return nil
}

// toRefundPending переводит бронирование с платежом в refund_pending
// с рассчитанной суммой возврата
func (uc *UseCase) toRefundPending(ctx context.Context, booking *domain.Booking, actorID int64, result **domain.Booking, needsRefund *bool) error {
	if err := uc.checkTransition(booking, domain.StatusRefundPending); err != nil {
		return err
	}

	amount, err := uc.refundAmount(ctx, booking)
	if err != nil {
		return err
	}

	if err := uc.bookingRepo.MarkRefundPending(ctx, booking.ID, booking.Status, actorID, amount); err != nil {
		return fmt.Errorf("%w: failed to mark refund pending: %v", ErrInternal, err)
	}

	updated, err := uc.bookingRepo.GetByID(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to reread booking: %v", ErrInternal, err)
	}

	if err := updated.Validate(); err != nil {
		uc.logger.Error("CancelBooking: invariant violation after phase 1 for booking id=%d: %v", booking.ID, err)
		return err
	}

	*result = updated
	*needsRefund = true
	uc.observeCancellation("refund_pending")
	uc.logger.Info("CancelBooking: booking id=%d moved to refund_pending, amount=%d", booking.ID, amount)
	return nil
}

// checkTransition валидирует переход по таблице статусов.
// Нарушение - фатальная ошибка программирования, а не бизнес-отказ:
// логируется с полным контекстом и пробрасывается как есть.
func (uc *UseCase) checkTransition(booking *domain.Booking, to domain.BookingStatus) error {
	if !domain.CanTransition(booking.Status, to) {
		err := &domain.InvalidTransitionError{
			BookingID: booking.ID,
			From:      booking.Status,
			To:        to,
		}
		uc.logger.Error("CancelBooking: INVARIANT VIOLATION: %v", err)
		return err
	}
	return nil
}

// refundAmount сумма возврата: уже рассчитанная при прошлой попытке отмены
// (повторная отмена из refund_failed), иначе полная стоимость проживания
func (uc *UseCase) refundAmount(ctx context.Context, booking *domain.Booking) (int64, error) {
	if booking.RefundAmount != nil {
		return *booking.RefundAmount, nil
	}

	room, err := uc.roomRepo.GetByID(ctx, booking.RoomID)
	if err != nil {
		if errors.Is(err, roomRepo.ErrRoomNotFound) {
			return 0, fmt.Errorf("%w: room id=%d not found for refund calculation", ErrInternal, booking.RoomID)
		}
		return 0, fmt.Errorf("%w: failed to get room: %v", ErrInternal, err)
	}

	nights := int64(booking.CheckOut.Sub(booking.CheckIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}

	return room.Price * nights, nil
}

func (uc *UseCase) observeCancellation(outcome string) {
	if uc.metrics != nil {
		uc.metrics.CancellationsTotal.WithLabelValues(outcome).Inc()
	}
}
