package models

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
)

// BookingResponse модель бронирования для вызывающего слоя
type BookingResponse struct {
	ID         int64      `json:"id"`
	RoomID     int64      `json:"roomId"`
	UserID     int64      `json:"userId"`
	CheckIn    time.Time  `json:"checkIn"`
	CheckOut   time.Time  `json:"checkOut"`
	Status     string     `json:"status"`
	GuestName  string     `json:"guestName"`
	GuestCount int        `json:"guestCount"`

	RefundStatus *string `json:"refundStatus,omitempty"`
	RefundAmount *int64  `json:"refundAmount,omitempty"`

	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingListResponse список бронирований
type BookingListResponse struct {
	Bookings []*BookingResponse `json:"bookings"`
	Total    int                `json:"total"`
}

// GetUserBookingsRequest запрос истории бронирований пользователя
type GetUserBookingsRequest struct {
	UserID int64
	Status *string
}

// FromDomainBooking конвертирует domain.Booking в BookingResponse
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:         b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Status:     string(b.Status),
		GuestName:  b.GuestName,
		GuestCount: b.GuestCount,
		RefundAmount: b.RefundAmount,
		CancelledAt:  b.CancelledAt,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}

	if b.RefundStatus != nil {
		s := string(*b.RefundStatus)
		resp.RefundStatus = &s
	}

	return resp
}

// FromDomainBookingList конвертирует список бронирований
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	result := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, FromDomainBooking(b))
	}

	return &BookingListResponse{
		Bookings: result,
		Total:    len(result),
	}
}

// ToDomainBookingStatus конвертирует строку в domain.BookingStatus
func ToDomainBookingStatus(s string) (domain.BookingStatus, error) {
	status := domain.BookingStatus(s)
	if !domain.ValidStatus(status) {
		return "", fmt.Errorf("unknown booking status: %s", s)
	}
	return status, nil
}
