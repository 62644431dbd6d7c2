package idempotency

import "errors"

var (
	// ErrRecordNotFound возвращается, когда записи по ключу нет
	ErrRecordNotFound = errors.New("idempotency.repository: record not found")

	// ErrInProgress возвращается, когда операция с этим ключом уже выполняется
	// другим вызовом и его lock ещё свежий
	ErrInProgress = errors.New("idempotency.repository: operation is in progress")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("idempotency.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("idempotency.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("idempotency.repository: failed to scan row")
)
