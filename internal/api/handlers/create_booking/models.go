package create_booking

import (
	"time"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	createBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/create_booking"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	RoomID           int64   `json:"roomId"`
	CheckIn          string  `json:"checkIn"`  // YYYY-MM-DD
	CheckOut         string  `json:"checkOut"` // YYYY-MM-DD
	GuestName        string  `json:"guestName"`
	GuestCount       int     `json:"guestCount"`
	PaymentReference *string `json:"paymentReference,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP request в модель use case (с парсингом дат)
func (r *CreateBookingRequest) ToUseCaseRequest(userID int64) (*createBooking.Request, error) {
	checkIn, err := time.Parse(domain.DateFormat, r.CheckIn)
	if err != nil {
		return nil, err
	}

	checkOut, err := time.Parse(domain.DateFormat, r.CheckOut)
	if err != nil {
		return nil, err
	}

	return &createBooking.Request{
		RoomID:           r.RoomID,
		UserID:           userID,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		GuestName:        r.GuestName,
		GuestCount:       r.GuestCount,
		PaymentReference: r.PaymentReference,
	}, nil
}

// CreateBookingResponse HTTP response model
type CreateBookingResponse struct {
	ID         int64  `json:"id"`
	RoomID     int64  `json:"roomId"`
	UserID     int64  `json:"userId"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
	Status     string `json:"status"`
	GuestName  string `json:"guestName"`
	GuestCount int    `json:"guestCount"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *CreateBookingResponse {
	return &CreateBookingResponse{
		ID:         resp.ID,
		RoomID:     resp.RoomID,
		UserID:     resp.UserID,
		CheckIn:    resp.CheckIn.Format(domain.DateFormat),
		CheckOut:   resp.CheckOut.Format(domain.DateFormat),
		Status:     resp.Status,
		GuestName:  resp.GuestName,
		GuestCount: resp.GuestCount,
	}
}
