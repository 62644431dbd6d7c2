package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	storage "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-RoomBookingService/internal/service/bookings/models"
)

// Service read-only операции над бронированиями
type Service struct {
	repo   BookingRepository
	logger Logger
}

func NewService(repo BookingRepository, logger Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetByID возвращает бронирование по ID с проверкой владельца
func (s *Service) GetByID(ctx context.Context, bookingID, userID int64) (*models.BookingResponse, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, storage.ErrBookingNotFound) {
			return nil, fmt.Errorf("%w: GetByID - booking %d", ErrBookingNotFound, bookingID)
		}
		s.logger.Error("[service/bookings] GetByID - failed to fetch booking %d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: GetByID: %v", ErrInternal, err)
	}

	if booking.UserID != userID {
		s.logger.Warn("[service/bookings] GetByID - user %d requested foreign booking %d", userID, bookingID)
		return nil, fmt.Errorf("%w: GetByID - booking %d", ErrAccessDenied, bookingID)
	}

	return models.FromDomainBooking(booking), nil
}

// GetUserBookings возвращает бронирования пользователя, опционально по статусу
func (s *Service) GetUserBookings(ctx context.Context, req *models.GetUserBookingsRequest) (*models.BookingListResponse, error) {
	var statusFilter *domain.BookingStatus
	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: GetUserBookings: %v", ErrInvalidStatus, err)
		}
		statusFilter = &status
	}

	bookings, err := s.repo.GetByUserID(ctx, req.UserID, statusFilter)
	if err != nil {
		s.logger.Error("[service/bookings] GetUserBookings - failed to fetch bookings for user %d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserBookings: %v", ErrInternal, err)
	}

	return models.FromDomainBookingList(bookings), nil
}
