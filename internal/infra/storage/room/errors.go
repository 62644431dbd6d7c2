package room

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound возвращается, когда комната не найдена
	ErrRoomNotFound = errors.New("room.repository: room not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("room.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("room.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("room.repository: failed to scan row")
)

// VersionConflictError конфликт optimistic locking: переданная версия
// не совпала с текущей. Actual даёт клиенту актуальную версию для
// перечитывания и повтора.
type VersionConflictError struct {
	RoomID   int64
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("room.repository: version conflict for room id=%d: expected=%d, actual=%d",
		e.RoomID, e.Expected, e.Actual)
}

// AsVersionConflict возвращает VersionConflictError из цепочки ошибок, если он там есть
func AsVersionConflict(err error) (*VersionConflictError, bool) {
	var conflict *VersionConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
