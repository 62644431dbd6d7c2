package create_booking

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInvalidDateRange возвращается, когда check_in не раньше check_out
	ErrInvalidDateRange = errors.New("create_booking: check_in must be before check_out")

	// ErrDateInPast возвращается при попытке бронирования на прошедшую дату
	ErrDateInPast = errors.New("create_booking: check_in date is in the past")

	// ErrStayTooLong возвращается, когда длительность проживания превышает лимит
	ErrStayTooLong = errors.New("create_booking: stay is too long")

	// ErrRoomNotFound возвращается, когда комната не найдена
	ErrRoomNotFound = errors.New("create_booking: room not found")

	// ErrRoomNotBookable возвращается, когда комната выведена из инвентаря
	ErrRoomNotBookable = errors.New("create_booking: room is not bookable")

	// ErrTooManyGuests возвращается, когда гостей больше, чем вмещает комната
	ErrTooManyGuests = errors.New("create_booking: guest count exceeds room capacity")

	// ErrRoomNotAvailable возвращается, когда даты пересекаются с существующим
	// активным бронированием. Это бизнес-отказ, транзакция не повторяется.
	ErrRoomNotAvailable = errors.New("create_booking: room is not available for these dates")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
