package rooms

import (
	"context"
	"errors"
	"fmt"

	storage "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
	"github.com/m04kA/SMC-RoomBookingService/internal/service/rooms/models"
)

// Service read-only операции над комнатами
type Service struct {
	repo   RoomRepository
	logger Logger
}

func NewService(repo RoomRepository, logger Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Create добавляет комнату в инвентарь. Новая комната получает
// lock_version=1 и статус available.
func (s *Service) Create(ctx context.Context, req *models.CreateRoomRequest) (*models.RoomResponse, error) {
	if req.Price <= 0 || req.MaxGuests <= 0 {
		return nil, fmt.Errorf("%w: Create - price=%d, max_guests=%d", ErrInvalidInput, req.Price, req.MaxGuests)
	}

	room, err := s.repo.Create(ctx, req.ToDomainRoom())
	if err != nil {
		s.logger.Error("[service/rooms] Create - failed to create room: %v", err)
		return nil, fmt.Errorf("%w: Create: %v", ErrInternal, err)
	}

	return models.FromDomainRoom(room), nil
}

// GetByID возвращает комнату по ID
func (s *Service) GetByID(ctx context.Context, roomID int64) (*models.RoomResponse, error) {
	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: GetByID - room %d", ErrRoomNotFound, roomID)
		}
		s.logger.Error("[service/rooms] GetByID - failed to fetch room %d: %v", roomID, err)
		return nil, fmt.Errorf("%w: GetByID: %v", ErrInternal, err)
	}

	return models.FromDomainRoom(room), nil
}
