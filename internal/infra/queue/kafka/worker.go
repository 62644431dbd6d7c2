package kafka

import (
	"context"
	"encoding/json"
	"errors"

	kafkago "github.com/segmentio/kafka-go"

	cancelBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
)

// RefundProcessor выполняет Phase 2 отмены для бронирования из job'а
type RefundProcessor interface {
	ProcessRefund(ctx context.Context, bookingID int64) error
}

// Worker потребитель очереди возвратов.
// Коммитит offset только после завершенной обработки: транзиентная ошибка
// оставляет сообщение недокоммиченным, и оно будет доставлено повторно.
// Дубликаты доставок безопасны - и ProcessRefund, и guard идемпотентности
// превращают повтор в no-op.
type Worker struct {
	reader    *kafkago.Reader
	processor RefundProcessor
	log       Logger
}

// NewWorker создает потребителя job'ов возврата
func NewWorker(brokers []string, topic, groupID string, processor RefundProcessor, log Logger) *Worker {
	return &Worker{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		processor: processor,
		log:       log,
	}
}

// Run читает и обрабатывает job'ы до отмены контекста
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("KafkaWorker: started")

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				w.log.Info("KafkaWorker: stopped")
				return nil
			}
			return err
		}

		if done := w.handle(ctx, msg); done {
			if err := w.reader.CommitMessages(ctx, msg); err != nil {
				w.log.Error("KafkaWorker: failed to commit offset: %v", err)
			}
		}
	}
}

// handle обрабатывает одно сообщение. Возвращает true, если offset можно
// коммитить (обработано или повторять бессмысленно).
func (w *Worker) handle(ctx context.Context, msg kafkago.Message) bool {
	var job RefundJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		// Сломанное сообщение не станет валидным при повторной доставке
		w.log.Error("KafkaWorker: malformed refund job, skipping: %v", err)
		return true
	}

	w.log.Info("KafkaWorker: processing refund job for booking id=%d", job.BookingID)

	err := w.processor.ProcessRefund(ctx, job.BookingID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, cancelBooking.ErrRefundExhausted):
		// Бронирование припарковано в refund_failed - дальше им занимаются
		// reconciliation и оператор, job выполнен
		w.log.Warn("KafkaWorker: refund exhausted for booking id=%d: %v", job.BookingID, err)
		return true
	case errors.Is(err, cancelBooking.ErrBookingNotFound):
		w.log.Error("KafkaWorker: booking id=%d not found, dropping job", job.BookingID)
		return true
	default:
		// Транзиентная ошибка: offset не коммитим, сообщение придет снова
		w.log.Error("KafkaWorker: failed to process refund for booking id=%d, will be redelivered: %v",
			job.BookingID, err)
		return false
	}
}

// Close закрывает reader
func (w *Worker) Close() error {
	return w.reader.Close()
}
