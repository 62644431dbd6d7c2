package room

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	"github.com/m04kA/SMC-RoomBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/psqlbuilder"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor

// Repository репозиторий комнат. Все мутации идут через optimistic locking:
// одиночный условный UPDATE/DELETE по (id, lock_version), без блокирующих чтений.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория комнат
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает комнату с lock_version = 1
func (r *Repository) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("rooms").
		Columns("price", "max_guests", "status", "lock_version").
		Values(room.Price, room.MaxGuests, room.Status, 1).
		Suffix("RETURNING id, lock_version, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&room.ID,
		&room.LockVersion,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	room.CreatedAt = createdAt.Time
	room.UpdatedAt = updatedAt.Time

	return room, nil
}

// GetByID получает комнату по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"price",
		"max_guests",
		"status",
		"lock_version",
		"created_at",
		"updated_at",
	).
		From("rooms").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var room domain.Room
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&room.ID,
		&room.Price,
		&room.MaxGuests,
		&room.Status,
		&room.LockVersion,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan room: %v", ErrScanRow, err)
	}

	room.CreatedAt = createdAt.Time
	room.UpdatedAt = updatedAt.Time

	return &room, nil
}

// GetVersion читает текущую lock_version комнаты
func (r *Repository) GetVersion(ctx context.Context, id int64) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("lock_version").
		From("rooms").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: GetVersion - build select query: %v", ErrBuildQuery, err)
	}

	var version int64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, ErrRoomNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: GetVersion - scan version: %v", ErrScanRow, err)
	}

	return version, nil
}

// UpdateWithVersion атомарно применяет patch к комнате при совпадении версии:
// UPDATE ... WHERE id = ? AND lock_version = ? SET lock_version = lock_version + 1.
// При несовпадении версии перечитывает актуальную и возвращает VersionConflictError
// с expected/actual - клиент перечитывает комнату и повторяет.
func (r *Repository) UpdateWithVersion(ctx context.Context, id int64, expectedVersion int64, patch domain.RoomPatch) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("rooms").
		Set("lock_version", squirrel.Expr("lock_version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "lock_version": expectedVersion})

	if patch.Price != nil {
		updateBuilder = updateBuilder.Set("price", *patch.Price)
	}
	if patch.MaxGuests != nil {
		updateBuilder = updateBuilder.Set("max_guests", *patch.MaxGuests)
	}
	if patch.Status != nil {
		updateBuilder = updateBuilder.Set("status", *patch.Status)
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: UpdateWithVersion - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: UpdateWithVersion - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: UpdateWithVersion - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return 0, r.versionConflict(ctx, id, expectedVersion)
	}

	return expectedVersion + 1, nil
}

// DeleteWithVersion атомарно удаляет комнату при совпадении версии
func (r *Repository) DeleteWithVersion(ctx context.Context, id int64, expectedVersion int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("rooms").
		Where(squirrel.Eq{"id": id, "lock_version": expectedVersion}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: DeleteWithVersion - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: DeleteWithVersion - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: DeleteWithVersion - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return r.versionConflict(ctx, id, expectedVersion)
	}

	return nil
}

// versionConflict различает "комната удалена" и "версия устарела":
// 0 затронутых строк само по себе не говорит, что именно произошло
func (r *Repository) versionConflict(ctx context.Context, id int64, expectedVersion int64) error {
	actual, err := r.GetVersion(ctx, id)
	if err != nil {
		return err
	}

	return &VersionConflictError{
		RoomID:   id,
		Expected: expectedVersion,
		Actual:   actual,
	}
}
