package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	"github.com/m04kA/SMC-RoomBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/psqlbuilder"
)

var bookingColumns = []string{
	"id",
	"room_id",
	"user_id",
	"check_in",
	"check_out",
	"status",
	"guest_name",
	"guest_count",
	"payment_reference",
	"refund_reference",
	"refund_status",
	"refund_amount",
	"refund_attempts",
	"needs_attention",
	"cancelled_at",
	"cancelled_by",
	"deleted_at",
	"deleted_by",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование.
// Если в контексте передана активная транзакция (через context.Value), использует её -
// создание с проверкой пересечения дат обязано идти одной транзакцией с GetOverlapping.
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"room_id",
			"user_id",
			"check_in",
			"check_out",
			"status",
			"guest_name",
			"guest_count",
			"payment_reference",
		).
		Values(
			booking.RoomID,
			booking.UserID,
			booking.CheckIn,
			booking.CheckOut,
			booking.Status,
			booking.GuestName,
			booking.GuestCount,
			booking.PaymentReference,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID.
// Внутри транзакции блокирует строку (FOR UPDATE): отмена читает и меняет
// статус одной атомарной операцией.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id, "deleted_at": nil})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := r.scanBooking(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// GetOverlapping получает все активные бронирования комнаты, пересекающиеся
// с полуоткрытым интервалом [checkIn, checkOut).
// Тест пересечения: existing.check_in < checkOut AND existing.check_out > checkIn -
// смежные интервалы (выезд в день заезда) не считаются пересечением.
// Внутри транзакции строки блокируются (FOR UPDATE), что сериализует
// конкурентные создания бронирований на одну комнату.
func (r *Repository) GetOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{
			"room_id":    roomID,
			"status":     domain.ActiveStatuses,
			"deleted_at": nil,
		}).
		Where(squirrel.Lt{"check_in": checkOut}).
		Where(squirrel.Gt{"check_out": checkIn}).
		OrderBy("check_in ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetOverlapping - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// GetByUserID получает список бронирований пользователя
// Опционально фильтрует по статусу
func (r *Repository) GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"user_id": userID, "deleted_at": nil}).
		OrderBy("check_in DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// TransitionStatus условно переводит бронирование из статуса from в статус to.
// Обновление срабатывает только если строка всё ещё в статусе from; иначе
// возвращается ErrStaleStatus (кто-то параллельно успел изменить статус).
func (r *Repository) TransitionStatus(ctx context.Context, id int64, from, to domain.BookingStatus) error {
	return r.transition(ctx, "TransitionStatus", id, from, map[string]interface{}{
		"status": to,
	})
}

// MarkCancelled переводит бронирование в cancelled со штампом отмены
func (r *Repository) MarkCancelled(ctx context.Context, id int64, from domain.BookingStatus, cancelledBy int64) error {
	return r.transition(ctx, "MarkCancelled", id, from, map[string]interface{}{
		"status":       domain.StatusCancelled,
		"cancelled_at": squirrel.Expr("NOW()"),
		"cancelled_by": cancelledBy,
	})
}

// MarkRefundPending переводит бронирование в refund_pending со штампом отмены
// и рассчитанной суммой возврата
func (r *Repository) MarkRefundPending(ctx context.Context, id int64, from domain.BookingStatus, cancelledBy int64, refundAmount int64) error {
	return r.transition(ctx, "MarkRefundPending", id, from, map[string]interface{}{
		"status":        domain.StatusRefundPending,
		"cancelled_at":  squirrel.Expr("NOW()"),
		"cancelled_by":  cancelledBy,
		"refund_amount": refundAmount,
		"refund_status": domain.RefundStatusPending,
	})
}

// MarkRefundSucceeded завершает возврат: статус cancelled, ссылка на возврат,
// refund_status = succeeded. Срабатывает только из refund_pending.
func (r *Repository) MarkRefundSucceeded(ctx context.Context, id int64, refundReference string) error {
	return r.transition(ctx, "MarkRefundSucceeded", id, domain.StatusRefundPending, map[string]interface{}{
		"status":           domain.StatusCancelled,
		"refund_reference": refundReference,
		"refund_status":    domain.RefundStatusSucceeded,
	})
}

// MarkRefundFailed паркует бронирование в refund_failed после исчерпания
// попыток возврата. Состояние видно оператору и reconciliation-процессу.
func (r *Repository) MarkRefundFailed(ctx context.Context, id int64) error {
	return r.transition(ctx, "MarkRefundFailed", id, domain.StatusRefundPending, map[string]interface{}{
		"status":        domain.StatusRefundFailed,
		"refund_status": domain.RefundStatusFailed,
	})
}

// transition общий условный переход статуса с обновлением updated_at
func (r *Repository) transition(ctx context.Context, op string, id int64, from domain.BookingStatus, sets map[string]interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("bookings").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from, "deleted_at": nil})

	for column, value := range sets {
		updateBuilder = updateBuilder.Set(column, value)
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, op, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		return ErrStaleStatus
	}

	return nil
}

// IncrementRefundAttempts увеличивает счетчик попыток возврата
func (r *Repository) IncrementRefundAttempts(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("refund_attempts", squirrel.Expr("refund_attempts + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: IncrementRefundAttempts - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: IncrementRefundAttempts - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: IncrementRefundAttempts - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// MarkNeedsAttention помечает бронирование для ручного вмешательства оператора.
// Выставляется, когда возврат исчерпал общий лимит попыток reconciliation.
func (r *Repository) MarkNeedsAttention(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("needs_attention", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkNeedsAttention - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: MarkNeedsAttention - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: MarkNeedsAttention - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// ListStaleRefundPending получает бронирования, зависшие в refund_pending
// дольше olderThan. Флаг needs_attention исключается - такие уже отданы оператору.
// Используется reconciliation-процессом.
func (r *Repository) ListStaleRefundPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{
			"status":          domain.StatusRefundPending,
			"needs_attention": false,
			"deleted_at":      nil,
		}).
		Where(squirrel.Lt{"cancelled_at": olderThan}).
		OrderBy("cancelled_at ASC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListStaleRefundPending - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListStaleRefundPending - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// SoftDelete мягко удаляет бронирование (физическое удаление делает retention job)
func (r *Repository) SoftDelete(ctx context.Context, id int64, deletedBy int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("deleted_at", squirrel.Expr("NOW()")).
		Set("deleted_by", deletedBy).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: SoftDelete - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SoftDelete - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SoftDelete - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBooking сканирует одну строку в бронирование
func (r *Repository) scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var refundStatus sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&booking.CheckIn,
		&booking.CheckOut,
		&booking.Status,
		&booking.GuestName,
		&booking.GuestCount,
		&booking.PaymentReference,
		&booking.RefundReference,
		&refundStatus,
		&booking.RefundAmount,
		&booking.RefundAttempts,
		&booking.NeedsAttention,
		&booking.CancelledAt,
		&booking.CancelledBy,
		&booking.DeletedAt,
		&booking.DeletedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refundStatus.Valid {
		status := domain.RefundStatus(refundStatus.String)
		booking.RefundStatus = &status
	}
	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func (r *Repository) scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}
