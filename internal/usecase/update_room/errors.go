package update_room

import "errors"

var (
	// ErrRoomNotFound возвращается, когда комната не найдена
	ErrRoomNotFound = errors.New("update_room: room not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("update_room: invalid input data")

	// ErrEmptyPatch возвращается, когда запрос не меняет ни одного поля
	ErrEmptyPatch = errors.New("update_room: patch is empty")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("update_room: internal error")
)
