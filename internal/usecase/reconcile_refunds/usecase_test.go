package reconcile_refunds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	cancelBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fakeBookingRepo struct {
	stale   []*domain.Booking
	listErr error

	gotOlderThan time.Time
	gotLimit     int
	flagged      []int64
}

func (r *fakeBookingRepo) ListStaleRefundPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Booking, error) {
	r.gotOlderThan = olderThan
	r.gotLimit = limit
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.stale, nil
}

func (r *fakeBookingRepo) MarkNeedsAttention(ctx context.Context, id int64) error {
	r.flagged = append(r.flagged, id)
	return nil
}

type fakeProcessor struct {
	processed []int64
	errs      map[int64]error
}

func (p *fakeProcessor) ProcessRefund(ctx context.Context, bookingID int64) error {
	p.processed = append(p.processed, bookingID)
	return p.errs[bookingID]
}

type fakeCleaner struct {
	deleted int64
	calls   int
}

func (c *fakeCleaner) DeleteExpired(ctx context.Context) (int64, error) {
	c.calls++
	return c.deleted, nil
}

type fixedTime struct {
	now time.Time
}

func (p fixedTime) Now() time.Time { return p.now }

func staleBooking(id int64, attempts int) *domain.Booking {
	return &domain.Booking{
		ID:             id,
		Status:         domain.StatusRefundPending,
		RefundAttempts: attempts,
	}
}

func newTestUseCase(repo *fakeBookingRepo, proc *fakeProcessor, cleaner *fakeCleaner, now time.Time) *UseCase {
	cfg := Config{StaleAfter: 10 * time.Minute, MaxTotalAttempts: 10, BatchSize: 100}
	uc := NewUseCase(repo, proc, cleaner, cfg, nopLogger{}, nil)
	uc.timeProvider = fixedTime{now: now}
	return uc
}

func TestRun_RedrivesStaleRefunds(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{stale: []*domain.Booking{
		staleBooking(1, 2),
		staleBooking(2, 0),
	}}
	proc := &fakeProcessor{}
	cleaner := &fakeCleaner{}
	uc := newTestUseCase(repo, proc, cleaner, now)

	err := uc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, proc.processed)
	assert.Equal(t, now.Add(-10*time.Minute), repo.gotOlderThan)
	assert.Equal(t, 100, repo.gotLimit)
	assert.Empty(t, repo.flagged)
}

func TestRun_ExceededTotalAttemptsFlaggedNotRetried(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{stale: []*domain.Booking{
		staleBooking(1, 10), // достиг потолка
		staleBooking(2, 3),
	}}
	proc := &fakeProcessor{}
	uc := newTestUseCase(repo, proc, &fakeCleaner{}, now)

	err := uc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{1}, repo.flagged)
	assert.Equal(t, []int64{2}, proc.processed, "помеченное бронирование не повторяется")
}

func TestRun_ExhaustedRefundDoesNotStopPass(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{stale: []*domain.Booking{
		staleBooking(1, 2),
		staleBooking(2, 2),
	}}
	proc := &fakeProcessor{errs: map[int64]error{1: cancelBooking.ErrRefundExhausted}}
	uc := newTestUseCase(repo, proc, &fakeCleaner{}, now)

	err := uc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, proc.processed)
}

func TestRun_ProcessorErrorDoesNotStopPass(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{stale: []*domain.Booking{
		staleBooking(1, 2),
		staleBooking(2, 2),
	}}
	proc := &fakeProcessor{errs: map[int64]error{1: assert.AnError}}
	uc := newTestUseCase(repo, proc, &fakeCleaner{}, now)

	err := uc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, proc.processed)
}

func TestRun_CleansIdempotencyEvenWithoutStaleBookings(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	cleaner := &fakeCleaner{deleted: 5}
	uc := newTestUseCase(&fakeBookingRepo{}, &fakeProcessor{}, cleaner, now)

	err := uc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, cleaner.calls)
}

func TestRun_ListFailure(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{listErr: assert.AnError}
	uc := newTestUseCase(repo, &fakeProcessor{}, &fakeCleaner{}, now)

	err := uc.Run(context.Background())

	require.ErrorIs(t, err, assert.AnError)
}

func TestRun_CancelledContextStopsPass(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{stale: []*domain.Booking{staleBooking(1, 2)}}
	proc := &fakeProcessor{}
	uc := newTestUseCase(repo, proc, &fakeCleaner{}, now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uc.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, proc.processed)
}
