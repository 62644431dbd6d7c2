package update_room

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	roomRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
	"github.com/m04kA/SMC-RoomBookingService/pkg/metrics"
)

// UseCase изменение и удаление комнат через optimistic locking.
// Блокировок нет: конкуренция низкая, конфликт версий отдается клиенту
// с актуальной версией для перечитывания и повтора.
type UseCase struct {
	roomRepo RoomRepository
	logger   Logger
	metrics  *metrics.Metrics // опционально, может быть nil
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(roomRepo RoomRepository, logger Logger, m *metrics.Metrics) *UseCase {
	return &UseCase{
		roomRepo: roomRepo,
		logger:   logger,
		metrics:  m,
	}
}

// Execute применяет patch к комнате. При несовпадении версии возвращает
// room.VersionConflictError с expected и actual.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("UpdateRoom: room=%d, expected_version=%v", req.RoomID, req.ExpectedVersion)

	if req.RoomID <= 0 {
		return nil, fmt.Errorf("%w: roomID must be positive", ErrInvalidInput)
	}

	patch, err := req.Patch()
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if patch.MaxGuests != nil && (*patch.MaxGuests < domain.MinGuestCount || *patch.MaxGuests > domain.MaxGuestCount) {
		return nil, fmt.Errorf("%w: maxGuests must be between %d and %d",
			ErrInvalidInput, domain.MinGuestCount, domain.MaxGuestCount)
	}

	expected, err := uc.resolveVersion(ctx, req)
	if err != nil {
		return nil, err
	}

	newVersion, err := uc.roomRepo.UpdateWithVersion(ctx, req.RoomID, expected, patch)
	if err != nil {
		return nil, uc.mapRepoError(err, req.RoomID)
	}

	uc.logger.Info("UpdateRoom: room id=%d updated, version %d -> %d", req.RoomID, expected, newVersion)
	return &Response{RoomID: req.RoomID, NewVersion: newVersion}, nil
}

// Delete удаляет комнату при совпадении версии
func (uc *UseCase) Delete(ctx context.Context, req *Request) error {
	uc.logger.Info("DeleteRoom: room=%d, expected_version=%v", req.RoomID, req.ExpectedVersion)

	if req.RoomID <= 0 {
		return fmt.Errorf("%w: roomID must be positive", ErrInvalidInput)
	}

	expected, err := uc.resolveVersion(ctx, req)
	if err != nil {
		return err
	}

	if err := uc.roomRepo.DeleteWithVersion(ctx, req.RoomID, expected); err != nil {
		return uc.mapRepoError(err, req.RoomID)
	}

	uc.logger.Info("DeleteRoom: room id=%d deleted at version %d", req.RoomID, expected)
	return nil
}

// resolveVersion определяет ожидаемую версию.
// Отсутствие версии у legacy-клиентов компенсируется чтением текущей
// непосредственно перед обновлением. Между чтением и UPDATE остается окно
// гонки - это задокументированное ослабление гарантии ради совместимости,
// новые интеграции обязаны передавать версию. Логируется отдельно.
func (uc *UseCase) resolveVersion(ctx context.Context, req *Request) (int64, error) {
	if req.ExpectedVersion != nil {
		return *req.ExpectedVersion, nil
	}

	uc.logger.Warn("UpdateRoom: LEGACY CALLER without expected version for room id=%d, falling back to current version (weakened guarantee)",
		req.RoomID)

	version, err := uc.roomRepo.GetVersion(ctx, req.RoomID)
	if err != nil {
		return 0, uc.mapRepoError(err, req.RoomID)
	}

	return version, nil
}

func (uc *UseCase) mapRepoError(err error, roomID int64) error {
	if errors.Is(err, roomRepo.ErrRoomNotFound) {
		return ErrRoomNotFound
	}

	if conflict, ok := roomRepo.AsVersionConflict(err); ok {
		if uc.metrics != nil {
			uc.metrics.VersionConflictsTotal.Inc()
		}
		uc.logger.Warn("UpdateRoom: version conflict for room id=%d: expected=%d, actual=%d",
			roomID, conflict.Expected, conflict.Actual)
		return err
	}

	return fmt.Errorf("%w: repository error: %v", ErrInternal, err)
}
