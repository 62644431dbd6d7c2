package create_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	roomRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
	"github.com/m04kA/SMC-RoomBookingService/pkg/metrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/txmanager"
)

// UseCase use case создания бронирования с защитой от пересечения дат.
// Проверка пересечения и вставка выполняются одной транзакцией: пересекающиеся
// активные бронирования комнаты читаются с блокировкой строк (FOR UPDATE),
// поэтому из N конкурентных запросов на пересекающиеся даты успевает ровно один.
// Deadlock при конкурентном захвате строк повторяется менеджером транзакций.
type UseCase struct {
	bookingRepo  BookingRepository
	roomRepo     RoomRepository
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
	metrics      *metrics.Metrics // опционально, может быть nil
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	roomRepo RoomRepository,
	txManager TransactionManager,
	logger Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		roomRepo:     roomRepo,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		metrics:      m,
	}
}

// Execute выполняет use case создания бронирования.
// ErrRoomNotAvailable - бизнес-отказ, не повторяется. Исчерпание повторов
// по deadlock пробрасывается как txmanager.ExhaustedError: решать, ставить ли
// запрос в очередь на повтор, - политика вызывающей стороны, не этого usecase.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: room=%d, user=%d, check_in=%s, check_out=%s, guests=%d",
		req.RoomID, req.UserID,
		req.CheckIn.Format(domain.DateFormat), req.CheckOut.Format(domain.DateFormat),
		req.GuestCount)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Валидация дат относительно текущего момента
	if err := validateDates(req, uc.timeProvider.Now()); err != nil {
		uc.logger.Warn("CreateBooking: date validation failed: %v", err)
		return nil, err
	}

	var result *domain.Booking

	// 3. Проверка пересечения и вставка - одной транзакцией
	err := uc.txManager.DoReadCommitted(ctx, "create_booking", func(txCtx context.Context) error {
		// 3.1. Комната должна существовать и быть доступной для бронирования
		room, err := uc.roomRepo.GetByID(txCtx, req.RoomID)
		if err != nil {
			if errors.Is(err, roomRepo.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("%w: failed to get room: %v", ErrInternal, err)
		}

		if room.Status != domain.RoomStatusAvailable {
			uc.logger.Warn("CreateBooking: room id=%d is not bookable, status=%s", room.ID, room.Status)
			return ErrRoomNotBookable
		}

		if req.GuestCount > room.MaxGuests {
			return ErrTooManyGuests
		}

		// 3.2. Читаем пересекающиеся активные бронирования с блокировкой строк.
		// Пока транзакция не завершится, конкурентные создания на эти же
		// строки будут ждать.
		overlapping, err := uc.bookingRepo.GetOverlapping(txCtx, req.RoomID, req.CheckIn, req.CheckOut)
		if err != nil {
			return fmt.Errorf("%w: failed to get overlapping bookings: %v", ErrInternal, err)
		}

		if len(overlapping) > 0 {
			uc.logger.Warn("CreateBooking: room id=%d has %d overlapping booking(s) for [%s, %s)",
				req.RoomID, len(overlapping),
				req.CheckIn.Format(domain.DateFormat), req.CheckOut.Format(domain.DateFormat))
			return ErrRoomNotAvailable
		}

		// 3.3. Пересечений нет - создаем бронирование в статусе pending
		booking := &domain.Booking{
			RoomID:           req.RoomID,
			UserID:           req.UserID,
			CheckIn:          req.CheckIn,
			CheckOut:         req.CheckOut,
			Status:           domain.StatusPending,
			GuestName:        req.GuestName,
			GuestCount:       req.GuestCount,
			PaymentReference: req.PaymentReference,
		}

		if err := booking.Validate(); err != nil {
			return fmt.Errorf("%w: booking validation: %v", ErrInternal, err)
		}

		created, err := uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			return fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrRoomNotAvailable) && uc.metrics != nil {
			uc.metrics.BookingOverlapRejectsTotal.Inc()
		}
		if exhausted, ok := txmanager.AsExhausted(err); ok {
			uc.logger.Error("CreateBooking: transaction retries exhausted (%s) for room=%d: %v",
				exhausted.Kind, req.RoomID, err)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.BookingsCreatedTotal.Inc()
	}
	uc.logger.Info("CreateBooking: successfully created booking id=%d", result.ID)

	return FromDomain(result), nil
}
