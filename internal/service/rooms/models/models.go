package models

import (
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// RoomResponse модель комнаты для вызывающего слоя
type RoomResponse struct {
	ID          int64     `json:"id"`
	Price       int64     `json:"price"`
	MaxGuests   int       `json:"maxGuests"`
	Status      string    `json:"status"`
	LockVersion int64     `json:"lockVersion"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateRoomRequest запрос на добавление комнаты в инвентарь
type CreateRoomRequest struct {
	Price     int64
	MaxGuests int
}

// ToDomainRoom конвертирует запрос в domain.Room
func (r *CreateRoomRequest) ToDomainRoom() *domain.Room {
	return &domain.Room{
		Price:     r.Price,
		MaxGuests: r.MaxGuests,
		Status:    domain.RoomStatusAvailable,
	}
}

// FromDomainRoom конвертирует domain.Room в RoomResponse
func FromDomainRoom(r *domain.Room) *RoomResponse {
	return &RoomResponse{
		ID:          r.ID,
		Price:       r.Price,
		MaxGuests:   r.MaxGuests,
		Status:      string(r.Status),
		LockVersion: r.LockVersion,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
