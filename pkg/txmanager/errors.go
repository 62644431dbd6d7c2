package txmanager

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQL коды ошибок, классифицируемые как транзиентные
const (
	pqCodeDeadlockDetected     = "40P01"
	pqCodeSerializationFailure = "40001"
)

// FailureKind вид транзиентной ошибки транзакции
type FailureKind string

const (
	// KindDeadlock взаимная блокировка строк (deadlock_detected)
	KindDeadlock FailureKind = "deadlock"

	// KindSerialization конфликт сериализации (serialization_failure)
	KindSerialization FailureKind = "serialization"
)

// ExhaustedError возвращается, когда все попытки повтора транзакции исчерпаны.
// Kind различает исчерпание по deadlock и по конфликту сериализации.
type ExhaustedError struct {
	Kind      FailureKind
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("txmanager: %s retries exhausted for %q after %d attempts: %v",
		e.Kind, e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// AsExhausted возвращает ExhaustedError из цепочки ошибок, если он там есть
func AsExhausted(err error) (*ExhaustedError, bool) {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted, true
	}
	return nil, false
}

// classify определяет вид транзиентной ошибки.
// Возвращает ("", false) для ошибок, которые повторять нельзя.
func classify(err error) (FailureKind, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}

	switch string(pqErr.Code) {
	case pqCodeDeadlockDetected:
		return KindDeadlock, true
	case pqCodeSerializationFailure:
		return KindSerialization, true
	default:
		return "", false
	}
}
