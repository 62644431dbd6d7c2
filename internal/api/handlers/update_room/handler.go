package update_room

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-RoomBookingService/internal/api/handlers"
	roomStorage "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
	updateRoom "github.com/m04kA/SMC-RoomBookingService/internal/usecase/update_room"
)

const (
	msgInvalidRoomID      = "некорректный ID комнаты"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgNotFound           = "комната не найдена"
	msgEmptyPatch         = "запрос не меняет ни одного поля"
	msgInvalidInput       = "некорректные данные комнаты"
	msgVersionConflict    = "комната была изменена параллельно, перечитайте и повторите"
)

type Handler struct {
	useCase UpdateRoomUseCase
	logger  Logger
}

func NewHandler(useCase UpdateRoomUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PUT /api/v1/rooms/{roomId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// Извлекаем roomId из URL
	vars := mux.Vars(r)
	roomIDStr := vars["roomId"]

	roomID, err := strconv.ParseInt(roomIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("PUT /rooms/{id} - Invalid room ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRoomID)
		return
	}

	// Декодируем body
	var req UpdateRoomRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /rooms/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Вызываем use case
	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(roomID))
	if err != nil {
		// Конфликт версий - 409 с актуальной версией в теле
		if conflict, ok := roomStorage.AsVersionConflict(err); ok {
			h.logger.Warn("PUT /rooms/{id} - Version conflict: room_id=%d, expected=%d, actual=%d",
				roomID, conflict.Expected, conflict.Actual)
			handlers.RespondJSON(w, http.StatusConflict, &VersionConflictResponse{
				Message:         msgVersionConflict,
				ExpectedVersion: conflict.Expected,
				ActualVersion:   conflict.Actual,
			})
			return
		}

		switch {
		case errors.Is(err, updateRoom.ErrRoomNotFound):
			h.logger.Warn("PUT /rooms/{id} - Room not found: room_id=%d", roomID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, updateRoom.ErrEmptyPatch):
			h.logger.Warn("PUT /rooms/{id} - Empty patch: room_id=%d", roomID)
			handlers.RespondBadRequest(w, msgEmptyPatch)

		case errors.Is(err, updateRoom.ErrInvalidInput):
			h.logger.Warn("PUT /rooms/{id} - Invalid input: room_id=%d", roomID)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			h.logger.Error("PUT /rooms/{id} - Failed to update room: room_id=%d, error=%v", roomID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /rooms/{id} - Room updated successfully: room_id=%d, new_version=%d",
		roomID, result.NewVersion)
	handlers.RespondJSON(w, http.StatusOK, &UpdateRoomResponse{
		RoomID:     result.RoomID,
		NewVersion: result.NewVersion,
	})
}
