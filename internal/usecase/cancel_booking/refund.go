package cancel_booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-RoomBookingService/internal/integrations/paymentgateway"
	idempotencyService "github.com/m04kA/SMC-RoomBookingService/internal/service/idempotency"
)

// ProcessRefund выполняет Phase 2 отмены: внешний возврат средств и финальный
// переход в cancelled. Вызывается воркером очереди после Phase 1 и
// reconciliation-процессом для зависших бронирований.
//
// Выполняется вне каких-либо транзакций БД: сетевой вызов шлюза не должен
// держать ни соединение, ни блокировки. Благодаря закоммиченному refund_pending
// и guard'у идемпотентности функцию можно безопасно вызывать сколько угодно раз.
func (uc *UseCase) ProcessRefund(ctx context.Context, bookingID int64) error {
	booking, err := uc.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("%w: ProcessRefund - failed to get booking: %v", ErrInternal, err)
	}

	// Повторная доставка job'а после завершения возврата - нормальный no-op
	if !booking.IsRefundInProgress() {
		uc.logger.Info("ProcessRefund: booking id=%d is in status %s, nothing to do",
			bookingID, booking.Status)
		return nil
	}

	if !booking.HasPayment() || booking.RefundAmount == nil {
		// refund_pending без платежа или суммы - так Phase 1 записать не могла
		uc.logger.Error("ProcessRefund: INVARIANT VIOLATION: booking id=%d is refund_pending without payment data",
			bookingID)
		return fmt.Errorf("%w: booking id=%d has no payment data", ErrInternal, bookingID)
	}

	key := RefundKey(bookingID)

	var lastErr error
	for attempt := 1; attempt <= uc.cfg.MaxAttempts; attempt++ {
		refund, err := uc.executeRefund(ctx, key, booking.PaymentReference, *booking.RefundAmount)
		if err == nil {
			return uc.completeRefund(ctx, bookingID, refund.RefundReference)
		}

		// Ключ занят параллельным вызовом - возвратом владеет он
		if errors.Is(err, idempotencyService.ErrInProgress) {
			uc.logger.Info("ProcessRefund: booking id=%d refund is owned by a concurrent caller", bookingID)
			return nil
		}

		lastErr = err
		uc.observeRefund("failure")
		if incErr := uc.bookingRepo.IncrementRefundAttempts(ctx, bookingID); incErr != nil {
			uc.logger.Error("ProcessRefund: failed to increment refund attempts for booking id=%d: %v",
				bookingID, incErr)
		}

		// Окончательный отказ шлюза повторять бессмысленно
		if errors.Is(err, paymentgateway.ErrRefundRejected) {
			uc.logger.Error("ProcessRefund: refund rejected by gateway for booking id=%d: %v", bookingID, err)
			break
		}

		uc.logger.Warn("ProcessRefund: attempt %d/%d failed for booking id=%d: %v",
			attempt, uc.cfg.MaxAttempts, bookingID, err)

		if attempt < uc.cfg.MaxAttempts {
			delay := uc.cfg.BaseDelay * (1 << uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return uc.parkRefundFailed(ctx, bookingID, lastErr)
}

// executeRefund один вызов шлюза через guard идемпотентности.
// Под одним ключом шлюз вызывается не больше одного раза: повторы и дубликаты
// получают сохраненный результат первого успешного вызова.
func (uc *UseCase) executeRefund(ctx context.Context, key string, paymentReference *string, amount int64) (*paymentgateway.RefundResponse, error) {
	raw, executed, err := uc.guard.Execute(ctx, key, func(fnCtx context.Context) (json.RawMessage, error) {
		resp, err := uc.gateway.Refund(fnCtx, &paymentgateway.RefundRequest{
			PaymentReference: *paymentReference,
			Amount:           amount,
		}, key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return nil, err
	}

	if !executed {
		uc.logger.Info("ProcessRefund: key=%s returned cached gateway result", key)
	}

	var refund paymentgateway.RefundResponse
	if err := json.Unmarshal(raw, &refund); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal cached refund result: %v", ErrInternal, err)
	}

	return &refund, nil
}

// completeRefund короткая транзакция финального перехода:
// refund_pending -> cancelled, refund_status = succeeded
func (uc *UseCase) completeRefund(ctx context.Context, bookingID int64, refundReference string) error {
	err := uc.txManager.DoReadCommitted(ctx, "complete_refund", func(txCtx context.Context) error {
		booking, err := uc.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}

		// Конкурентный вызов уже завершил возврат
		if booking.IsTerminal() {
			return nil
		}

		if err := uc.checkTransition(booking, domain.StatusCancelled); err != nil {
			return err
		}

		if err := uc.bookingRepo.MarkRefundSucceeded(txCtx, bookingID, refundReference); err != nil {
			if errors.Is(err, bookingRepo.ErrStaleStatus) {
				// Финальный переход сделал кто-то другой - это успех
				return nil
			}
			return fmt.Errorf("%w: failed to mark refund succeeded: %v", ErrInternal, err)
		}

		updated, err := uc.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			return fmt.Errorf("%w: failed to reread booking: %v", ErrInternal, err)
		}

		if err := updated.Validate(); err != nil {
			uc.logger.Error("ProcessRefund: invariant violation after completion for booking id=%d: %v",
				bookingID, err)
			return err
		}

		return nil
	})

	if err != nil {
		return err
	}

	uc.observeRefund("success")
	uc.logger.Info("ProcessRefund: booking id=%d refunded and cancelled, refund_reference=%s",
		bookingID, refundReference)
	return nil
}

// parkRefundFailed паркует бронирование в refund_failed после исчерпания попыток.
// Отказ не проглатывается: состояние персистентно, видно операторам, и
// бронирование остается отменяемым (refund_failed -> refund_pending).
func (uc *UseCase) parkRefundFailed(ctx context.Context, bookingID int64, lastErr error) error {
	if err := uc.bookingRepo.MarkRefundFailed(ctx, bookingID); err != nil {
		if !errors.Is(err, bookingRepo.ErrStaleStatus) {
			uc.logger.Error("ProcessRefund: failed to park booking id=%d in refund_failed: %v", bookingID, err)
			return fmt.Errorf("%w: failed to mark refund failed: %v", ErrInternal, err)
		}
	}

	uc.observeRefund("exhausted")
	uc.logger.Error("ProcessRefund: refund exhausted for booking id=%d after %d attempts, parked in refund_failed: %v",
		bookingID, uc.cfg.MaxAttempts, lastErr)

	return fmt.Errorf("%w: booking id=%d: %v", ErrRefundExhausted, bookingID, lastErr)
}

func (uc *UseCase) observeRefund(outcome string) {
	if uc.metrics != nil {
		uc.metrics.RefundAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}
