package local

import (
	"context"
	"errors"
	"time"
)

// RefundProcessor выполняет Phase 2 отмены
type RefundProcessor interface {
	ProcessRefund(ctx context.Context, bookingID int64) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Dispatcher выполняет Phase 2 в отдельной горутине того же процесса.
// Используется, когда очередь выключена (dev-окружение, тесты).
// Потерю job'а при падении процесса компенсирует reconciliation.
type Dispatcher struct {
	processor RefundProcessor
	timeout   time.Duration
	log       Logger
}

// NewDispatcher создает локальный диспетчер возвратов.
// Processor привязывается позже через Bind: диспетчер нужен конструктору
// use case отмены, который сам же и является processor'ом.
func NewDispatcher(timeout time.Duration, log Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Dispatcher{
		timeout: timeout,
		log:     log,
	}
}

// Bind привязывает processor. Вызывается один раз при сборке приложения,
// до запуска HTTP сервера.
func (d *Dispatcher) Bind(processor RefundProcessor) {
	d.processor = processor
}

// DispatchRefund запускает обработку возврата в фоне.
// Контекст запроса не используется: Phase 2 не должна отменяться
// вместе с HTTP-запросом, который её породил.
func (d *Dispatcher) DispatchRefund(_ context.Context, bookingID int64) error {
	if d.processor == nil {
		return errors.New("local dispatcher: processor is not bound")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.processor.ProcessRefund(ctx, bookingID); err != nil {
			d.log.Error("LocalDispatcher: refund processing failed for booking id=%d: %v", bookingID, err)
		}
	}()

	return nil
}
