package create_room

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-RoomBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-RoomBookingService/internal/service/rooms"
	"github.com/m04kA/SMC-RoomBookingService/internal/service/rooms/models"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidInput       = "некорректные данные комнаты"
)

// CreateRoomRequest HTTP request model
type CreateRoomRequest struct {
	Price     int64 `json:"price"`
	MaxGuests int   `json:"maxGuests"`
}

type Handler struct {
	service RoomService
	logger  Logger
}

func NewHandler(service RoomService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/rooms
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /rooms - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	room, err := h.service.Create(r.Context(), &models.CreateRoomRequest{
		Price:     req.Price,
		MaxGuests: req.MaxGuests,
	})
	if err != nil {
		if errors.Is(err, rooms.ErrInvalidInput) {
			h.logger.Warn("POST /rooms - Invalid input: price=%d, max_guests=%d", req.Price, req.MaxGuests)
			handlers.RespondBadRequest(w, msgInvalidInput)
			return
		}

		h.logger.Error("POST /rooms - Failed to create room: %v", err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("POST /rooms - Room created successfully: room_id=%d", room.ID)
	handlers.RespondJSON(w, http.StatusCreated, room)
}
