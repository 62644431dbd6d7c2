package delete_room

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
	msgInvalidRoomID   = "некорректный ID комнаты"
	msgInvalidVersion  = "некорректная версия в параметре expectedVersion"
	msgNotFound        = "комната не найдена"
	msgVersionConflict = "комната была изменена параллельно, перечитайте и повторите"
)

type Handler struct {
	useCase DeleteRoomUseCase
	logger  Logger
}

func NewHandler(useCase DeleteRoomUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/rooms/{roomId}?expectedVersion=N
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomIDStr := vars["roomId"]

	roomID, err := strconv.ParseInt(roomIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("DELETE /rooms/{id} - Invalid room ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRoomID)
		return
	}

	// expectedVersion опционален только для legacy-клиентов
	var expectedVersion *int64
	if raw := r.URL.Query().Get("expectedVersion"); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.logger.Warn("DELETE /rooms/{id} - Invalid expected version: %v", err)
			handlers.RespondBadRequest(w, msgInvalidVersion)
			return
		}
		expectedVersion = &version
	}

	err = h.useCase.Delete(r.Context(), &updateRoom.Request{
		RoomID:          roomID,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		if conflict, ok := roomStorage.AsVersionConflict(err); ok {
			h.logger.Warn("DELETE /rooms/{id} - Version conflict: room_id=%d, expected=%d, actual=%d",
				roomID, conflict.Expected, conflict.Actual)
			handlers.RespondConflict(w, msgVersionConflict)
			return
		}

		if errors.Is(err, updateRoom.ErrRoomNotFound) {
			h.logger.Warn("DELETE /rooms/{id} - Room not found: room_id=%d", roomID)
			handlers.RespondNotFound(w, msgNotFound)
			return
		}

		h.logger.Error("DELETE /rooms/{id} - Failed to delete room: room_id=%d, error=%v", roomID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("DELETE /rooms/{id} - Room deleted successfully: room_id=%d", roomID)
	handlers.RespondJSON(w, http.StatusNoContent, nil)
}
