package reconcile_refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	cancelBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
	"github.com/m04kA/SMC-RoomBookingService/pkg/metrics"
)

// Config настройки reconciliation-процесса
type Config struct {
	// StaleAfter через сколько refund_pending считается зависшим
	StaleAfter time.Duration

	// MaxTotalAttempts общий потолок попыток возврата на бронирование.
	// Достигшие его помечаются для ручного вмешательства и больше не повторяются.
	MaxTotalAttempts int

	// BatchSize максимум бронирований за один проход
	BatchSize int
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		StaleAfter:       10 * time.Minute,
		MaxTotalAttempts: 10,
		BatchSize:        100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.MaxTotalAttempts <= 0 {
		c.MaxTotalAttempts = d.MaxTotalAttempts
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

// UseCase периодическое добивание возвратов, зависших в refund_pending.
// Покрывает окно между коммитом Phase 1 и постановкой job'а в очередь
// (процесс упал между ними) и потерянные/не доставленные job'ы.
// Ни одно бронирование не повторяется бесконечно: достигшие общего потолка
// попыток отдаются оператору через needs_attention.
type UseCase struct {
	bookingRepo  BookingRepository
	processor    RefundProcessor
	cleaner      IdempotencyCleaner
	cfg          Config
	timeProvider TimeProvider
	logger       Logger
	metrics      *metrics.Metrics // опционально, может быть nil
}

// NewUseCase создает новый экземпляр reconciliation use case
func NewUseCase(
	bookingRepo BookingRepository,
	processor RefundProcessor,
	cleaner IdempotencyCleaner,
	cfg Config,
	logger Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		processor:    processor,
		cleaner:      cleaner,
		cfg:          cfg.withDefaults(),
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		metrics:      m,
	}
}

// Run один проход reconciliation. Ошибки отдельных бронирований логируются
// и не прерывают проход.
func (uc *UseCase) Run(ctx context.Context) error {
	if uc.metrics != nil {
		uc.metrics.ReconciliationRunsTotal.Inc()
	}

	cutoff := uc.timeProvider.Now().Add(-uc.cfg.StaleAfter)

	stale, err := uc.bookingRepo.ListStaleRefundPending(ctx, cutoff, uc.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("reconcile_refunds: failed to list stale bookings: %w", err)
	}

	if len(stale) == 0 {
		uc.logger.Info("ReconcileRefunds: no stale refund_pending bookings")
		uc.cleanupIdempotency(ctx)
		return nil
	}

	uc.logger.Warn("ReconcileRefunds: found %d stale refund_pending booking(s)", len(stale))

	for _, booking := range stale {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if booking.RefundAttempts >= uc.cfg.MaxTotalAttempts {
			uc.logger.Error("ReconcileRefunds: booking id=%d exceeded %d total refund attempts, flagging for manual intervention",
				booking.ID, uc.cfg.MaxTotalAttempts)
			if err := uc.bookingRepo.MarkNeedsAttention(ctx, booking.ID); err != nil {
				uc.logger.Error("ReconcileRefunds: failed to flag booking id=%d: %v", booking.ID, err)
			}
			continue
		}

		uc.logger.Info("ReconcileRefunds: re-driving refund for booking id=%d (attempts so far: %d)",
			booking.ID, booking.RefundAttempts)

		if err := uc.processor.ProcessRefund(ctx, booking.ID); err != nil {
			// refund_failed - ожидаемый исход исчерпания, его добьет следующий
			// проход или оператор после повторной отмены
			if errors.Is(err, cancelBooking.ErrRefundExhausted) {
				uc.logger.Warn("ReconcileRefunds: booking id=%d parked in refund_failed", booking.ID)
				continue
			}
			uc.logger.Error("ReconcileRefunds: failed to process refund for booking id=%d: %v", booking.ID, err)
		}
	}

	uc.cleanupIdempotency(ctx)
	return nil
}

func (uc *UseCase) cleanupIdempotency(ctx context.Context) {
	deleted, err := uc.cleaner.DeleteExpired(ctx)
	if err != nil {
		uc.logger.Error("ReconcileRefunds: failed to delete expired idempotency records: %v", err)
		return
	}
	if deleted > 0 {
		uc.logger.Info("ReconcileRefunds: deleted %d expired idempotency record(s)", deleted)
	}
}
