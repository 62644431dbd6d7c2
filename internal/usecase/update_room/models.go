package update_room

import (
	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// Request запрос на изменение комнаты.
// ExpectedVersion - версия, которую вызывающая сторона наблюдала последней.
// nil допускается только для legacy-клиентов: версия будет прочитана
// непосредственно перед обновлением (см. UseCase.resolveVersion).
type Request struct {
	RoomID          int64
	ExpectedVersion *int64

	Price     *int64
	MaxGuests *int
	Status    *string
}

// Patch конвертирует запрос в domain.RoomPatch
func (r *Request) Patch() (domain.RoomPatch, error) {
	patch := domain.RoomPatch{
		Price:     r.Price,
		MaxGuests: r.MaxGuests,
	}

	if r.Status != nil {
		status := domain.RoomStatus(*r.Status)
		switch status {
		case domain.RoomStatusAvailable, domain.RoomStatusMaintenance, domain.RoomStatusRetired:
			patch.Status = &status
		default:
			return domain.RoomPatch{}, ErrInvalidInput
		}
	}

	return patch, nil
}

// Response результат изменения комнаты
type Response struct {
	RoomID     int64
	NewVersion int64
}
