package bookings

import "errors"

var (
	// ErrBookingNotFound бронирование не найдено
	ErrBookingNotFound = errors.New("service/bookings: booking not found")

	// ErrAccessDenied бронирование принадлежит другому пользователю
	ErrAccessDenied = errors.New("service/bookings: access denied")

	// ErrInvalidStatus неизвестный статус в фильтре
	ErrInvalidStatus = errors.New("service/bookings: invalid status filter")

	// ErrInternal внутренняя ошибка сервиса
	ErrInternal = errors.New("service/bookings: internal error")
)
