package idempotency

import "errors"

var (
	// ErrInProgress возвращается, когда операция с этим ключом уже выполняется
	// параллельным вызовом. Вызывающая сторона повторяет позже.
	ErrInProgress = errors.New("idempotency: operation with this key is in progress")

	// ErrInternal возвращается при внутренних ошибках guard'а
	ErrInternal = errors.New("idempotency: internal error")
)
