package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkago "github.com/segmentio/kafka-go"

	cancelBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fakeProcessor struct {
	err       error
	processed []int64
}

func (p *fakeProcessor) ProcessRefund(ctx context.Context, bookingID int64) error {
	p.processed = append(p.processed, bookingID)
	return p.err
}

func refundJobMessage(t *testing.T, bookingID int64) kafkago.Message {
	t.Helper()
	value, err := json.Marshal(RefundJob{BookingID: bookingID, EnqueuedAt: time.Now()})
	require.NoError(t, err)
	return kafkago.Message{Value: value}
}

func TestHandle_SuccessCommits(t *testing.T) {
	proc := &fakeProcessor{}
	w := &Worker{processor: proc, log: nopLogger{}}

	done := w.handle(context.Background(), refundJobMessage(t, 10))

	assert.True(t, done)
	assert.Equal(t, []int64{10}, proc.processed)
}

func TestHandle_MalformedMessageCommits(t *testing.T) {
	// сломанное сообщение не станет валидным при повторной доставке
	proc := &fakeProcessor{}
	w := &Worker{processor: proc, log: nopLogger{}}

	done := w.handle(context.Background(), kafkago.Message{Value: []byte("not json")})

	assert.True(t, done)
	assert.Empty(t, proc.processed)
}

func TestHandle_ExhaustedRefundCommits(t *testing.T) {
	// бронирование припарковано в refund_failed, job выполнен
	proc := &fakeProcessor{err: cancelBooking.ErrRefundExhausted}
	w := &Worker{processor: proc, log: nopLogger{}}

	done := w.handle(context.Background(), refundJobMessage(t, 10))

	assert.True(t, done)
}

func TestHandle_BookingNotFoundCommits(t *testing.T) {
	proc := &fakeProcessor{err: cancelBooking.ErrBookingNotFound}
	w := &Worker{processor: proc, log: nopLogger{}}

	done := w.handle(context.Background(), refundJobMessage(t, 10))

	assert.True(t, done)
}

func TestHandle_TransientErrorRedelivers(t *testing.T) {
	// offset не коммитится, сообщение придет снова
	proc := &fakeProcessor{err: assert.AnError}
	w := &Worker{processor: proc, log: nopLogger{}}

	done := w.handle(context.Background(), refundJobMessage(t, 10))

	assert.False(t, done)
}
