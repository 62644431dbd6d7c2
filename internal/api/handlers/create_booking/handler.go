package create_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-RoomBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-RoomBookingService/internal/api/middleware"
	createBooking "github.com/m04kA/SMC-RoomBookingService/internal/usecase/create_booking"
	"github.com/m04kA/SMC-RoomBookingService/pkg/txmanager"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidDate        = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgRoomNotAvailable   = "комната занята на выбранные даты"
	msgRoomNotFound       = "комната не найдена"
	msgRoomNotBookable    = "комната недоступна для бронирования"
	msgTooManyGuests      = "количество гостей превышает вместимость комнаты"
	msgInvalidDateRange   = "дата заезда должна быть раньше даты выезда"
	msgDateInPast         = "дата заезда уже прошла"
	msgStayTooLong        = "длительность проживания превышает лимит"
	msgInvalidInput       = "некорректные данные бронирования"
	msgTryAgain           = "сервис перегружен, повторите запрос"
)

type Handler struct {
	useCase CreateBookingUseCase
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Получаем userID из контекста (через middleware Auth)
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	// Конвертируем HTTP запрос в модель use case (с парсингом дат)
	useCaseReq, err := req.ToUseCaseRequest(userID)
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	// Вызываем use case
	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		// Обработка ошибок use case
		switch {
		case errors.Is(err, createBooking.ErrRoomNotAvailable):
			h.logger.Warn("POST /bookings - Room not available: user_id=%d, room_id=%d", userID, req.RoomID)
			handlers.RespondConflict(w, msgRoomNotAvailable)

		case errors.Is(err, createBooking.ErrRoomNotFound):
			h.logger.Warn("POST /bookings - Room not found: room_id=%d", req.RoomID)
			handlers.RespondNotFound(w, msgRoomNotFound)

		case errors.Is(err, createBooking.ErrRoomNotBookable):
			h.logger.Warn("POST /bookings - Room not bookable: room_id=%d", req.RoomID)
			handlers.RespondConflict(w, msgRoomNotBookable)

		case errors.Is(err, createBooking.ErrTooManyGuests):
			h.logger.Warn("POST /bookings - Too many guests: room_id=%d, guest_count=%d", req.RoomID, req.GuestCount)
			handlers.RespondBadRequest(w, msgTooManyGuests)

		case errors.Is(err, createBooking.ErrInvalidDateRange):
			h.logger.Warn("POST /bookings - Invalid date range: user_id=%d, room_id=%d", userID, req.RoomID)
			handlers.RespondBadRequest(w, msgInvalidDateRange)

		case errors.Is(err, createBooking.ErrDateInPast):
			h.logger.Warn("POST /bookings - Check-in date in the past: user_id=%d, room_id=%d", userID, req.RoomID)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, createBooking.ErrStayTooLong):
			h.logger.Warn("POST /bookings - Stay too long: user_id=%d, room_id=%d", userID, req.RoomID)
			handlers.RespondBadRequest(w, msgStayTooLong)

		case errors.Is(err, createBooking.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Invalid input: user_id=%d, room_id=%d", userID, req.RoomID)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			// Исчерпанные ретраи транзакции - временная перегрузка, клиенту
			// имеет смысл повторить запрос
			if _, ok := txmanager.AsExhausted(err); ok {
				h.logger.Warn("POST /bookings - Transaction retries exhausted: user_id=%d, room_id=%d, error=%v",
					userID, req.RoomID, err)
				handlers.RespondError(w, http.StatusServiceUnavailable, msgTryAgain)
				return
			}

			h.logger.Error("POST /bookings - Failed to create booking: user_id=%d, room_id=%d, error=%v",
				userID, req.RoomID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	// Формируем HTTP ответ
	response := FromUseCaseResponse(result)

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%d, user_id=%d, room_id=%d",
		result.ID, userID, req.RoomID)
	handlers.RespondJSON(w, http.StatusCreated, response)
}
