package create_booking

import (
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// Request входные данные создания бронирования
type Request struct {
	RoomID     int64
	UserID     int64
	CheckIn    time.Time
	CheckOut   time.Time
	GuestName  string
	GuestCount int

	// PaymentReference идентификатор списания, если оплата прошла до создания
	PaymentReference *string
}

// Response созданное бронирование
type Response struct {
	ID         int64
	RoomID     int64
	UserID     int64
	CheckIn    time.Time
	CheckOut   time.Time
	Status     string
	GuestName  string
	GuestCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FromDomain конвертирует domain.Booking в Response
func FromDomain(b *domain.Booking) *Response {
	return &Response{
		ID:         b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Status:     string(b.Status),
		GuestName:  b.GuestName,
		GuestCount: b.GuestCount,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}
