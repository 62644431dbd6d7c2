package confirm_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-RoomBookingService/internal/api/handlers"
	confirmBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/confirm_booking"
	"github.com/m04kA/SMC-RoomBookingService/pkg/txmanager"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgNotFound         = "бронирование не найдено"
	msgNotConfirmable   = "бронирование не может быть подтверждено"
	msgTryAgain         = "сервис перегружен, повторите запрос"
)

// ConfirmBookingResponse HTTP response model
type ConfirmBookingResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type Handler struct {
	useCase ConfirmBookingUseCase
	logger  Logger
}

func NewHandler(useCase ConfirmBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings/{bookingId}/confirm
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookingIDStr := vars["bookingId"]

	bookingID, err := strconv.ParseInt(bookingIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/confirm - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	booking, err := h.useCase.Execute(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, confirmBooking.ErrBookingNotFound):
			h.logger.Warn("POST /bookings/{id}/confirm - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, confirmBooking.ErrNotConfirmable):
			h.logger.Warn("POST /bookings/{id}/confirm - Not confirmable: booking_id=%d", bookingID)
			handlers.RespondConflict(w, msgNotConfirmable)

		default:
			if _, ok := txmanager.AsExhausted(err); ok {
				h.logger.Warn("POST /bookings/{id}/confirm - Transaction retries exhausted: booking_id=%d, error=%v",
					bookingID, err)
				handlers.RespondError(w, http.StatusServiceUnavailable, msgTryAgain)
				return
			}

			h.logger.Error("POST /bookings/{id}/confirm - Failed to confirm booking: booking_id=%d, error=%v",
				bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/confirm - Booking confirmed: booking_id=%d", bookingID)
	handlers.RespondJSON(w, http.StatusOK, &ConfirmBookingResponse{
		ID:     booking.ID,
		Status: string(booking.Status),
	})
}
