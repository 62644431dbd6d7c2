package domain

import "time"

// RoomStatus статус комнаты в инвентаре
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusMaintenance RoomStatus = "maintenance"
	RoomStatusRetired     RoomStatus = "retired"
)

// Room единица инвентаря для бронирования.
// Мутируется только через optimistic locking: каждое успешное изменение
// атомарно увеличивает LockVersion на 1, версия никогда не убывает.
type Room struct {
	ID          int64
	Price       int64 // за ночь, в минорных единицах валюты
	MaxGuests   int
	Status      RoomStatus
	LockVersion int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomPatch изменяемые поля комнаты. nil-поля не трогаются.
type RoomPatch struct {
	Price     *int64
	MaxGuests *int
	Status    *RoomStatus
}

// IsEmpty возвращает true, если patch не меняет ни одного поля
func (p RoomPatch) IsEmpty() bool {
	return p.Price == nil && p.MaxGuests == nil && p.Status == nil
}
