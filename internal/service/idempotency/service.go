package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	storage "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/idempotency"
)

// Service дедуплицирует side-effect операции по детерминированному ключу.
// Первый вызов выполняет операцию и сохраняет результат; повторные вызовы
// с тем же ключом в пределах TTL получают сохраненный результат без
// повторного выполнения. Из конкурентных вызовов операцию выполняет ровно один.
//
// Ключи строятся из стабильных идентификаторов (id бронирования + имя операции),
// никогда из случайных значений - иначе повторная доставка не схлопнется.
type Service struct {
	storage Storage
	ttl     time.Duration
	logger  Logger
}

// NewService создает guard идемпотентности с заданным TTL результатов
func NewService(storage Storage, ttl time.Duration, logger Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		storage: storage,
		ttl:     ttl,
		logger:  logger,
	}
}

// Execute выполняет fn под ключом key не более одного раза в пределах TTL.
// Возвращает результат, флаг executed (true - операция выполнена этим вызовом,
// false - возвращен кэш) и ошибку.
//
// Результат сохраняется только при успехе fn: неуспешная попытка снимает lock,
// и следующий вызов выполнит операцию заново.
func (s *Service) Execute(ctx context.Context, key string, fn func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, bool, error) {
	acquired, err := s.storage.Acquire(ctx, key, s.ttl)
	if err != nil {
		if errors.Is(err, storage.ErrInProgress) {
			s.logger.Warn("Idempotency: key=%s is locked by a concurrent caller", key)
			return nil, false, ErrInProgress
		}
		s.logger.Error("Idempotency: failed to acquire key=%s: %v", key, err)
		return nil, false, fmt.Errorf("%w: Execute - acquire key: %v", ErrInternal, err)
	}

	if !acquired.Acquired {
		s.logger.Info("Idempotency: key=%s already executed, returning cached result", key)
		return acquired.Cached, false, nil
	}

	result, err := fn(ctx)
	if err != nil {
		// Снимаем lock, чтобы операцию можно было повторить
		if relErr := s.storage.Release(ctx, key); relErr != nil {
			s.logger.Error("Idempotency: failed to release key=%s after error: %v", key, relErr)
		}
		return nil, false, err
	}

	if err := s.storage.Complete(ctx, key, result); err != nil {
		// Операция выполнена, но результат не сохранен: повтор с этим ключом
		// упрется в lock до его протухания. Громко логируем.
		s.logger.Error("Idempotency: operation for key=%s executed but result not stored: %v", key, err)
		return result, true, fmt.Errorf("%w: Execute - store result: %v", ErrInternal, err)
	}

	s.logger.Info("Idempotency: key=%s executed and cached", key)
	return result, true, nil
}
