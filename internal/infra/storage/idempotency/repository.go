package idempotency

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-RoomBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/psqlbuilder"
)

// pqCodeUniqueViolation unique_violation - примитив арбитража:
// из гонки нескольких вызовов с одним ключом INSERT выигрывает ровно один
const pqCodeUniqueViolation = "23505"

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor

// Record запись идемпотентности: ключ операции и результат первого выполнения
type Record struct {
	Key         string
	Result      json.RawMessage
	LockedAt    *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Completed возвращает true, если результат операции уже сохранен
func (r *Record) Completed() bool {
	return r.CompletedAt != nil
}

// Expired возвращает true, если срок действия записи истек
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// AcquireResult результат попытки захвата ключа
type AcquireResult struct {
	// Acquired true, если текущий вызов владеет ключом и должен выполнить операцию
	Acquired bool

	// Cached сохраненный результат первого выполнения (когда Acquired = false)
	Cached json.RawMessage
}

// Repository репозиторий записей идемпотентности.
// Арбитраж конкурентных вызовов построен на unique-constraint INSERT:
// ровно один вызов создает запись и выполняет операцию, остальные
// читают сохраненный результат.
type Repository struct {
	db DBExecutor

	// lockTimeout - через сколько незавершенный lock считается протухшим
	// (владелец умер, не дойдя до Complete) и может быть перехвачен
	lockTimeout time.Duration
}

// NewRepository создает новый экземпляр репозитория идемпотентности
func NewRepository(db DBExecutor, lockTimeout time.Duration) *Repository {
	if lockTimeout <= 0 {
		lockTimeout = time.Minute
	}
	return &Repository{db: db, lockTimeout: lockTimeout}
}

// Acquire пытается захватить ключ для выполнения операции.
// Возможные исходы:
//   - записи нет: INSERT, захват успешен
//   - запись завершена и не истекла: возвращается кэшированный результат
//   - запись завершена, но истекла: запись перехватывается, захват успешен
//   - запись не завершена и lock свежий: ErrInProgress
//   - запись не завершена и lock протух: запись перехватывается, захват успешен
func (r *Repository) Acquire(ctx context.Context, key string, ttl time.Duration) (*AcquireResult, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)
	now := time.Now()

	query, args, err := psqlbuilder.Insert("idempotency_records").
		Columns("key", "locked_at", "expires_at").
		Values(key, now, now.Add(ttl)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Acquire - build insert query: %v", ErrBuildQuery, err)
	}

	_, err = executor.ExecContext(ctx, query, args...)
	if err == nil {
		return &AcquireResult{Acquired: true}, nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqCodeUniqueViolation {
		return nil, fmt.Errorf("%w: Acquire - execute insert: %v", ErrExecQuery, err)
	}

	// Ключ уже существует - разбираемся, в каком он состоянии
	record, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if record.Completed() && !record.Expired(now) {
		return &AcquireResult{Acquired: false, Cached: record.Result}, nil
	}

	staleLock := record.LockedAt != nil && now.Sub(*record.LockedAt) >= r.lockTimeout
	if !record.Completed() && !staleLock && !record.Expired(now) {
		return nil, ErrInProgress
	}

	// Запись истекла или её владелец умер - перехватываем условным UPDATE,
	// из конкурентных перехватчиков побеждает один
	stolen, err := r.steal(ctx, key, record, now, ttl)
	if err != nil {
		return nil, err
	}
	if !stolen {
		return nil, ErrInProgress
	}

	return &AcquireResult{Acquired: true}, nil
}

// steal перехватывает протухшую запись. Условие WHERE повторяет прочитанное
// состояние, поэтому из гонки перехватчиков UPDATE срабатывает только у одного.
func (r *Repository) steal(ctx context.Context, key string, seen *Record, now time.Time, ttl time.Duration) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("idempotency_records").
		Set("locked_at", now).
		Set("completed_at", nil).
		Set("result", nil).
		Set("expires_at", now.Add(ttl)).
		Where(squirrel.Eq{"key": key, "locked_at": seen.LockedAt, "completed_at": seen.CompletedAt}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: steal - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: steal - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: steal - get rows affected: %v", ErrExecQuery, err)
	}

	return rowsAffected == 1, nil
}

// Get читает запись по ключу
func (r *Repository) Get(ctx context.Context, key string) (*Record, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"key",
		"result",
		"locked_at",
		"completed_at",
		"created_at",
		"expires_at",
	).
		From("idempotency_records").
		Where(squirrel.Eq{"key": key}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var record Record
	var result []byte
	var createdAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&record.Key,
		&result,
		&record.LockedAt,
		&record.CompletedAt,
		&createdAt,
		&record.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - scan record: %v", ErrScanRow, err)
	}

	record.Result = result
	record.CreatedAt = createdAt.Time

	return &record, nil
}

// Complete сохраняет результат выполнения и снимает lock.
// Вызывается только при успехе операции - неуспешные выполнения
// не кэшируются и будут повторены.
func (r *Repository) Complete(ctx context.Context, key string, result json.RawMessage) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("idempotency_records").
		Set("result", []byte(result)).
		Set("completed_at", time.Now()).
		Set("locked_at", nil).
		Where(squirrel.Eq{"key": key}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Complete - build update query: %v", ErrBuildQuery, err)
	}

	res, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Complete - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Complete - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// Release удаляет незавершенную запись, чтобы следующий вызов мог
// повторить операцию. Вызывается при ошибке выполнения.
func (r *Repository) Release(ctx context.Context, key string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("idempotency_records").
		Where(squirrel.Eq{"key": key, "completed_at": nil}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Release - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Release - execute delete: %v", ErrExecQuery, err)
	}

	return nil
}

// DeleteExpired удаляет истекшие записи. Вызывается периодически вместе
// с reconciliation-процессом.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("idempotency_records").
		Where(squirrel.Lt{"expires_at": time.Now()}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: DeleteExpired - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteExpired - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteExpired - get rows affected: %v", ErrExecQuery, err)
	}

	return rowsAffected, nil
}
