package update_room

import (
	updateRoom "github.com/m04kA/SMC-RoomBookingService/internal/usecase/update_room"
)

// UpdateRoomRequest HTTP request model.
// ExpectedVersion опционален только для legacy-клиентов: без него
// обновление теряет защиту от конкурентных изменений.
type UpdateRoomRequest struct {
	ExpectedVersion *int64  `json:"expectedVersion,omitempty"`
	Price           *int64  `json:"price,omitempty"`
	MaxGuests       *int    `json:"maxGuests,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP request в модель use case
func (r *UpdateRoomRequest) ToUseCaseRequest(roomID int64) *updateRoom.Request {
	return &updateRoom.Request{
		RoomID:          roomID,
		ExpectedVersion: r.ExpectedVersion,
		Price:           r.Price,
		MaxGuests:       r.MaxGuests,
		Status:          r.Status,
	}
}

// UpdateRoomResponse HTTP response model
type UpdateRoomResponse struct {
	RoomID     int64 `json:"roomId"`
	NewVersion int64 `json:"newVersion"`
}

// VersionConflictResponse тело ответа 409: клиенту возвращается
// актуальная версия для перечитывания и повтора
type VersionConflictResponse struct {
	Message         string `json:"message"`
	ExpectedVersion int64  `json:"expectedVersion"`
	ActualVersion   int64  `json:"actualVersion"`
}
