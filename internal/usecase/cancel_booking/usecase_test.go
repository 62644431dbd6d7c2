package cancel_booking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-RoomBookingService/internal/integrations/paymentgateway"
	idempotencyService "github.com/m04kA/SMC-RoomBookingService/internal/service/idempotency"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fakeTxManager struct{}

func (fakeTxManager) DoReadCommitted(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeBookingRepo хранит одно бронирование и применяет переходы к нему,
// как это делал бы настоящий репозиторий
type fakeBookingRepo struct {
	booking  *domain.Booking
	notFound bool

	markCancelledCalls      int
	markRefundPendingCalls  int
	markRefundPendingAmount int64
	markSucceededCalls      int
	markFailedCalls         int
	incAttemptsCalls        int
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	if r.notFound || r.booking == nil {
		return nil, bookingRepo.ErrBookingNotFound
	}
	copy := *r.booking
	return &copy, nil
}

func (r *fakeBookingRepo) MarkCancelled(ctx context.Context, id int64, from domain.BookingStatus, cancelledBy int64) error {
	r.markCancelledCalls++
	now := time.Now()
	r.booking.Status = domain.StatusCancelled
	r.booking.CancelledAt = &now
	r.booking.CancelledBy = &cancelledBy
	return nil
}

func (r *fakeBookingRepo) MarkRefundPending(ctx context.Context, id int64, from domain.BookingStatus, cancelledBy int64, refundAmount int64) error {
	r.markRefundPendingCalls++
	r.markRefundPendingAmount = refundAmount
	now := time.Now()
	pending := domain.RefundStatusPending
	r.booking.Status = domain.StatusRefundPending
	r.booking.RefundStatus = &pending
	r.booking.RefundAmount = &refundAmount
	r.booking.CancelledAt = &now
	r.booking.CancelledBy = &cancelledBy
	return nil
}

func (r *fakeBookingRepo) MarkRefundSucceeded(ctx context.Context, id int64, refundReference string) error {
	r.markSucceededCalls++
	succeeded := domain.RefundStatusSucceeded
	r.booking.Status = domain.StatusCancelled
	r.booking.RefundStatus = &succeeded
	r.booking.RefundReference = &refundReference
	return nil
}

func (r *fakeBookingRepo) MarkRefundFailed(ctx context.Context, id int64) error {
	r.markFailedCalls++
	failed := domain.RefundStatusFailed
	r.booking.Status = domain.StatusRefundFailed
	r.booking.RefundStatus = &failed
	return nil
}

func (r *fakeBookingRepo) IncrementRefundAttempts(ctx context.Context, id int64) error {
	r.incAttemptsCalls++
	r.booking.RefundAttempts++
	return nil
}

type fakeRoomRepo struct {
	room *domain.Room
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	return r.room, nil
}

// fakeGuard выполняет fn напрямую, без персистентных записей
type fakeGuard struct {
	cached json.RawMessage
	err    error
	calls  int
}

func (g *fakeGuard) Execute(ctx context.Context, key string, fn func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, bool, error) {
	g.calls++
	if g.err != nil {
		return nil, false, g.err
	}
	if g.cached != nil {
		return g.cached, false, nil
	}
	raw, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

type fakeGateway struct {
	calls    int
	failN    int // первые failN вызовов падают транзиентной ошибкой
	finalErr error
}

func (g *fakeGateway) Refund(ctx context.Context, req *paymentgateway.RefundRequest, idempotencyKey string) (*paymentgateway.RefundResponse, error) {
	g.calls++
	if g.finalErr != nil {
		return nil, g.finalErr
	}
	if g.calls <= g.failN {
		return nil, paymentgateway.ErrUnavailable
	}
	return &paymentgateway.RefundResponse{
		RefundReference: "rf-001",
		Status:          "succeeded",
	}, nil
}

type fakeDispatcher struct {
	calls []int64
	err   error
}

func (d *fakeDispatcher) DispatchRefund(ctx context.Context, bookingID int64) error {
	d.calls = append(d.calls, bookingID)
	return d.err
}

func strPtr(s string) *string { return &s }

func pendingBooking(paymentRef *string) *domain.Booking {
	return &domain.Booking{
		ID:               10,
		RoomID:           1,
		UserID:           7,
		CheckIn:          time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:         time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		Status:           domain.StatusConfirmed,
		GuestName:        "Ivanov",
		GuestCount:       2,
		PaymentReference: paymentRef,
	}
}

type env struct {
	uc         *UseCase
	bookings   *fakeBookingRepo
	guard      *fakeGuard
	gateway    *fakeGateway
	dispatcher *fakeDispatcher
}

func newEnv(booking *domain.Booking) *env {
	e := &env{
		bookings:   &fakeBookingRepo{booking: booking},
		guard:      &fakeGuard{},
		gateway:    &fakeGateway{},
		dispatcher: &fakeDispatcher{},
	}
	rooms := &fakeRoomRepo{room: &domain.Room{ID: 1, Price: 10000, MaxGuests: 4, Status: domain.RoomStatusAvailable}}
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Microsecond}
	e.uc = NewUseCase(e.bookings, rooms, fakeTxManager{}, e.guard, e.gateway, e.dispatcher, cfg, nopLogger{}, nil)
	return e
}

func TestExecute_NoPayment_CancelsImmediately(t *testing.T) {
	e := newEnv(pendingBooking(nil))

	resp, err := e.uc.Execute(context.Background(), 10, 7)

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), resp.Status)
	assert.Equal(t, 1, e.bookings.markCancelledCalls)
	assert.Zero(t, e.bookings.markRefundPendingCalls)
	assert.Empty(t, e.dispatcher.calls, "возврат без платежа не ставится в очередь")
}

func TestExecute_WithPayment_MovesToRefundPendingAndDispatches(t *testing.T) {
	e := newEnv(pendingBooking(strPtr("pay-123")))

	resp, err := e.uc.Execute(context.Background(), 10, 7)

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusRefundPending), resp.Status)
	// полная стоимость: 3 ночи по 10000
	assert.Equal(t, int64(30000), e.bookings.markRefundPendingAmount)
	require.NotNil(t, resp.RefundAmount)
	assert.Equal(t, int64(30000), *resp.RefundAmount)
	assert.Equal(t, []int64{10}, e.dispatcher.calls)
}

func TestExecute_AlreadyCancelled_NoOp(t *testing.T) {
	booking := pendingBooking(nil)
	booking.Status = domain.StatusCancelled
	e := newEnv(booking)

	resp, err := e.uc.Execute(context.Background(), 10, 7)

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), resp.Status)
	assert.Zero(t, e.bookings.markCancelledCalls)
	assert.Empty(t, e.dispatcher.calls)
}

func TestExecute_RefundInProgress_NoOp(t *testing.T) {
	booking := pendingBooking(strPtr("pay-123"))
	booking.Status = domain.StatusRefundPending
	amount := int64(30000)
	booking.RefundAmount = &amount
	e := newEnv(booking)

	resp, err := e.uc.Execute(context.Background(), 10, 7)

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusRefundPending), resp.Status)
	assert.Zero(t, e.bookings.markRefundPendingCalls, "второй возврат не запускается")
	assert.Empty(t, e.dispatcher.calls)
}

func TestExecute_BookingNotFound(t *testing.T) {
	e := newEnv(nil)

	_, err := e.uc.Execute(context.Background(), 99, 7)

	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExecute_RetryFromRefundFailed_ReusesAmount(t *testing.T) {
	// повторная отмена из refund_failed: сумма уже рассчитана прошлой попыткой
	booking := pendingBooking(strPtr("pay-123"))
	booking.Status = domain.StatusRefundFailed
	failed := domain.RefundStatusFailed
	booking.RefundStatus = &failed
	amount := int64(12345)
	booking.RefundAmount = &amount
	now := time.Now()
	booking.CancelledAt = &now
	e := newEnv(booking)

	resp, err := e.uc.Execute(context.Background(), 10, 7)

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusRefundPending), resp.Status)
	assert.Equal(t, int64(12345), e.bookings.markRefundPendingAmount)
	assert.Equal(t, []int64{10}, e.dispatcher.calls)
}

func TestExecute_DispatchFailureDoesNotFailCancel(t *testing.T) {
	// отказ очереди не откатывает Phase 1: бронирование остается
	// в refund_pending, его добьет reconciliation
	e := newEnv(pendingBooking(strPtr("pay-123")))
	e.dispatcher.err = assert.AnError

	resp, err := e.uc.Execute(context.Background(), 10, 7)

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusRefundPending), resp.Status)
}

func refundPendingBooking() *domain.Booking {
	booking := pendingBooking(strPtr("pay-123"))
	booking.Status = domain.StatusRefundPending
	pending := domain.RefundStatusPending
	booking.RefundStatus = &pending
	amount := int64(30000)
	booking.RefundAmount = &amount
	now := time.Now()
	booking.CancelledAt = &now
	return booking
}

func TestProcessRefund_Success(t *testing.T) {
	e := newEnv(refundPendingBooking())

	err := e.uc.ProcessRefund(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, e.gateway.calls, "шлюз вызывается ровно один раз")
	assert.Equal(t, 1, e.bookings.markSucceededCalls)
	assert.Equal(t, domain.StatusCancelled, e.bookings.booking.Status)
	require.NotNil(t, e.bookings.booking.RefundReference)
	assert.Equal(t, "rf-001", *e.bookings.booking.RefundReference)
}

func TestProcessRefund_NotRefundPending_NoOp(t *testing.T) {
	e := newEnv(pendingBooking(strPtr("pay-123")))

	err := e.uc.ProcessRefund(context.Background(), 10)

	require.NoError(t, err)
	assert.Zero(t, e.gateway.calls)
	assert.Zero(t, e.bookings.markSucceededCalls)
}

func TestProcessRefund_TransientFailuresExhaustAttempts(t *testing.T) {
	e := newEnv(refundPendingBooking())
	e.gateway.finalErr = paymentgateway.ErrUnavailable

	err := e.uc.ProcessRefund(context.Background(), 10)

	require.ErrorIs(t, err, ErrRefundExhausted)
	assert.Equal(t, 3, e.gateway.calls)
	assert.Equal(t, 3, e.bookings.incAttemptsCalls)
	assert.Equal(t, 1, e.bookings.markFailedCalls)
	assert.Equal(t, domain.StatusRefundFailed, e.bookings.booking.Status)
}

func TestProcessRefund_RecoversAfterTransientFailure(t *testing.T) {
	e := newEnv(refundPendingBooking())
	e.gateway.failN = 2 // третья попытка успешна

	err := e.uc.ProcessRefund(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 3, e.gateway.calls)
	assert.Equal(t, 2, e.bookings.incAttemptsCalls)
	assert.Equal(t, domain.StatusCancelled, e.bookings.booking.Status)
}

func TestProcessRefund_RejectedBreaksEarly(t *testing.T) {
	// окончательный отказ шлюза не повторяется
	e := newEnv(refundPendingBooking())
	e.gateway.finalErr = paymentgateway.ErrRefundRejected

	err := e.uc.ProcessRefund(context.Background(), 10)

	require.ErrorIs(t, err, ErrRefundExhausted)
	assert.Equal(t, 1, e.gateway.calls)
	assert.Equal(t, 1, e.bookings.markFailedCalls)
}

func TestProcessRefund_ConcurrentOwner_NoOp(t *testing.T) {
	// ключ занят параллельным вызовом - возвратом владеет он
	e := newEnv(refundPendingBooking())
	e.guard.err = idempotencyService.ErrInProgress

	err := e.uc.ProcessRefund(context.Background(), 10)

	require.NoError(t, err)
	assert.Zero(t, e.gateway.calls)
	assert.Zero(t, e.bookings.markFailedCalls)
}

func TestProcessRefund_CachedResultCompletesWithoutGatewayCall(t *testing.T) {
	// повторная доставка после падения между возвратом и финальным переходом:
	// guard отдает сохраненный результат, шлюз не трогается
	e := newEnv(refundPendingBooking())
	cached, err := json.Marshal(&paymentgateway.RefundResponse{RefundReference: "rf-cached", Status: "succeeded"})
	require.NoError(t, err)
	e.guard.cached = cached

	err = e.uc.ProcessRefund(context.Background(), 10)

	require.NoError(t, err)
	assert.Zero(t, e.gateway.calls)
	assert.Equal(t, 1, e.bookings.markSucceededCalls)
	require.NotNil(t, e.bookings.booking.RefundReference)
	assert.Equal(t, "rf-cached", *e.bookings.booking.RefundReference)
}

func TestProcessRefund_BookingNotFound(t *testing.T) {
	e := newEnv(nil)

	err := e.uc.ProcessRefund(context.Background(), 99)

	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRefundKey_Deterministic(t *testing.T) {
	assert.Equal(t, "refund:10", RefundKey(10))
	assert.Equal(t, RefundKey(7), RefundKey(7))
}
