package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Dispatcher публикует job'ы возврата в kafka после коммита Phase 1 отмены.
// Ключ сообщения - id бронирования: job'ы одного бронирования попадают
// в одну партицию и обрабатываются по порядку.
type Dispatcher struct {
	writer *kafkago.Writer
	log    Logger
}

// NewDispatcher создает производителя job'ов возврата
func NewDispatcher(brokers []string, topic string, log Logger) *Dispatcher {
	return &Dispatcher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}
}

// DispatchRefund ставит Phase 2 отмены бронирования в очередь
func (d *Dispatcher) DispatchRefund(ctx context.Context, bookingID int64) error {
	job := RefundJob{
		BookingID:  bookingID,
		EnqueuedAt: time.Now(),
	}

	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("kafka dispatcher: failed to marshal refund job: %w", err)
	}

	err = d.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(strconv.FormatInt(bookingID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("kafka dispatcher: failed to write refund job for booking id=%d: %w", bookingID, err)
	}

	d.log.Info("KafkaDispatcher: refund job enqueued for booking id=%d", bookingID)
	return nil
}

// Close закрывает writer
func (d *Dispatcher) Close() error {
	return d.writer.Close()
}
