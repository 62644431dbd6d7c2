package cancel_booking

import (
	"time"

	cancelBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
)

// CancelBookingResponse HTTP response model
type CancelBookingResponse struct {
	ID           int64      `json:"id"`
	Status       string     `json:"status"`
	RefundStatus *string    `json:"refundStatus,omitempty"`
	RefundAmount *int64     `json:"refundAmount,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *cancelBooking.Response) *CancelBookingResponse {
	return &CancelBookingResponse{
		ID:           resp.ID,
		Status:       resp.Status,
		RefundStatus: resp.RefundStatus,
		RefundAmount: resp.RefundAmount,
		CancelledAt:  resp.CancelledAt,
	}
}
