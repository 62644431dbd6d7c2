package rooms

import "errors"

var (
	// ErrRoomNotFound комната не найдена
	ErrRoomNotFound = errors.New("service/rooms: room not found")

	// ErrInvalidInput некорректные данные комнаты
	ErrInvalidInput = errors.New("service/rooms: invalid room data")

	// ErrInternal внутренняя ошибка сервиса
	ErrInternal = errors.New("service/rooms: internal error")
)
