package create_booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	roomRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

// fakeTxManager выполняет fn без настоящей транзакции
type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) DoReadCommitted(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeBookingRepo struct {
	overlapping []*domain.Booking
	overlapErr  error
	created     *domain.Booking
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	created := *booking
	created.ID = 42
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	r.created = &created
	return &created, nil
}

func (r *fakeBookingRepo) GetOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time) ([]*domain.Booking, error) {
	if r.overlapErr != nil {
		return nil, r.overlapErr
	}
	// отбор пересечений воспроизводит полуоткрытую семантику запроса
	var result []*domain.Booking
	for _, b := range r.overlapping {
		if b.RoomID == roomID && b.OverlapsWith(checkIn, checkOut) {
			result = append(result, b)
		}
	}
	return result, nil
}

type fakeRoomRepo struct {
	room *domain.Room
	err  error
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.room, nil
}

type fixedTime struct {
	now time.Time
}

func (p fixedTime) Now() time.Time { return p.now }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func availableRoom() *domain.Room {
	return &domain.Room{
		ID:          1,
		Price:       10000,
		MaxGuests:   4,
		Status:      domain.RoomStatusAvailable,
		LockVersion: 1,
	}
}

func validRequest() *Request {
	return &Request{
		RoomID:     1,
		UserID:     7,
		CheckIn:    date(2026, 9, 10),
		CheckOut:   date(2026, 9, 15),
		GuestName:  "Ivanov",
		GuestCount: 2,
	}
}

func newTestUseCase(bookings *fakeBookingRepo, rooms *fakeRoomRepo) *UseCase {
	uc := NewUseCase(bookings, rooms, &fakeTxManager{}, nopLogger{}, nil)
	uc.timeProvider = fixedTime{now: date(2026, 9, 1)}
	return uc
}

func TestExecute_Success(t *testing.T) {
	bookings := &fakeBookingRepo{}
	uc := newTestUseCase(bookings, &fakeRoomRepo{room: availableRoom()})

	resp, err := uc.Execute(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, string(domain.StatusPending), resp.Status)
	require.NotNil(t, bookings.created)
	assert.Equal(t, domain.StatusPending, bookings.created.Status)
}

func TestExecute_OverlapRejected(t *testing.T) {
	// комната занята на [10, 15), запрос на [12, 13) внутри - отказ
	bookings := &fakeBookingRepo{
		overlapping: []*domain.Booking{{
			ID:       1,
			RoomID:   1,
			CheckIn:  date(2026, 9, 10),
			CheckOut: date(2026, 9, 15),
			Status:   domain.StatusConfirmed,
		}},
	}
	uc := newTestUseCase(bookings, &fakeRoomRepo{room: availableRoom()})

	req := validRequest()
	req.CheckIn = date(2026, 9, 12)
	req.CheckOut = date(2026, 9, 13)

	_, err := uc.Execute(context.Background(), req)

	require.ErrorIs(t, err, ErrRoomNotAvailable)
	assert.Nil(t, bookings.created)
}

func TestExecute_AdjacentDatesAllowed(t *testing.T) {
	// смежный интервал [15, 17) к занятому [10, 15) не пересекается
	bookings := &fakeBookingRepo{
		overlapping: []*domain.Booking{{
			ID:       1,
			RoomID:   1,
			CheckIn:  date(2026, 9, 10),
			CheckOut: date(2026, 9, 15),
			Status:   domain.StatusConfirmed,
		}},
	}
	uc := newTestUseCase(bookings, &fakeRoomRepo{room: availableRoom()})

	req := validRequest()
	req.CheckIn = date(2026, 9, 15)
	req.CheckOut = date(2026, 9, 17)

	resp, err := uc.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
}

func TestExecute_RoomNotFound(t *testing.T) {
	uc := newTestUseCase(&fakeBookingRepo{}, &fakeRoomRepo{err: roomRepo.ErrRoomNotFound})

	_, err := uc.Execute(context.Background(), validRequest())

	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestExecute_RoomNotBookable(t *testing.T) {
	room := availableRoom()
	room.Status = domain.RoomStatusMaintenance
	uc := newTestUseCase(&fakeBookingRepo{}, &fakeRoomRepo{room: room})

	_, err := uc.Execute(context.Background(), validRequest())

	require.ErrorIs(t, err, ErrRoomNotBookable)
}

func TestExecute_TooManyGuests(t *testing.T) {
	uc := newTestUseCase(&fakeBookingRepo{}, &fakeRoomRepo{room: availableRoom()})

	req := validRequest()
	req.GuestCount = 5 // вместимость комнаты 4

	_, err := uc.Execute(context.Background(), req)

	require.ErrorIs(t, err, ErrTooManyGuests)
}

func TestExecute_ValidationErrors(t *testing.T) {
	uc := newTestUseCase(&fakeBookingRepo{}, &fakeRoomRepo{room: availableRoom()})

	t.Run("inverted date range", func(t *testing.T) {
		req := validRequest()
		req.CheckIn, req.CheckOut = req.CheckOut, req.CheckIn
		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("zero nights", func(t *testing.T) {
		req := validRequest()
		req.CheckOut = req.CheckIn
		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("check-in in the past", func(t *testing.T) {
		req := validRequest()
		req.CheckIn = date(2026, 8, 20)
		req.CheckOut = date(2026, 8, 25)
		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, ErrDateInPast)
	})

	t.Run("stay too long", func(t *testing.T) {
		req := validRequest()
		req.CheckOut = req.CheckIn.AddDate(1, 0, 1)
		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, ErrStayTooLong)
	})

	t.Run("invalid guest count", func(t *testing.T) {
		req := validRequest()
		req.GuestCount = 0
		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing room id", func(t *testing.T) {
		req := validRequest()
		req.RoomID = 0
		_, err := uc.Execute(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestExecute_OverlapCheckRunsInTransaction(t *testing.T) {
	txManager := &fakeTxManager{}
	uc := NewUseCase(&fakeBookingRepo{}, &fakeRoomRepo{room: availableRoom()}, txManager, nopLogger{}, nil)
	uc.timeProvider = fixedTime{now: date(2026, 9, 1)}

	_, err := uc.Execute(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, 1, txManager.calls)
}
