package update_room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RoomBookingService/internal/domain"
	roomRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fakeRoomRepo struct {
	currentVersion int64
	updateErr      error
	deleteErr      error

	getVersionCalls int
	updateCalls     int
	deleteCalls     int
	gotExpected     int64
	gotPatch        domain.RoomPatch
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	return &domain.Room{ID: id, LockVersion: r.currentVersion}, nil
}

func (r *fakeRoomRepo) GetVersion(ctx context.Context, id int64) (int64, error) {
	r.getVersionCalls++
	return r.currentVersion, nil
}

func (r *fakeRoomRepo) UpdateWithVersion(ctx context.Context, id int64, expectedVersion int64, patch domain.RoomPatch) (int64, error) {
	r.updateCalls++
	r.gotExpected = expectedVersion
	r.gotPatch = patch
	if r.updateErr != nil {
		return 0, r.updateErr
	}
	return expectedVersion + 1, nil
}

func (r *fakeRoomRepo) DeleteWithVersion(ctx context.Context, id int64, expectedVersion int64) error {
	r.deleteCalls++
	r.gotExpected = expectedVersion
	return r.deleteErr
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func TestExecute_UpdatesWithNewVersion(t *testing.T) {
	repo := &fakeRoomRepo{currentVersion: 3}
	uc := NewUseCase(repo, nopLogger{}, nil)

	resp, err := uc.Execute(context.Background(), &Request{
		RoomID:          1,
		ExpectedVersion: int64Ptr(3),
		Price:           int64Ptr(15000),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.NewVersion)
	assert.Equal(t, int64(3), repo.gotExpected)
	require.NotNil(t, repo.gotPatch.Price)
	assert.Equal(t, int64(15000), *repo.gotPatch.Price)
	assert.Zero(t, repo.getVersionCalls, "при явной версии текущая не читается")
}

func TestExecute_VersionConflictPassedThrough(t *testing.T) {
	repo := &fakeRoomRepo{
		updateErr: &roomRepo.VersionConflictError{RoomID: 1, Expected: 3, Actual: 5},
	}
	uc := NewUseCase(repo, nopLogger{}, nil)

	_, err := uc.Execute(context.Background(), &Request{
		RoomID:          1,
		ExpectedVersion: int64Ptr(3),
		Price:           int64Ptr(15000),
	})

	conflict, ok := roomRepo.AsVersionConflict(err)
	require.True(t, ok, "конфликт версий должен доходить до вызывающей стороны")
	assert.Equal(t, int64(3), conflict.Expected)
	assert.Equal(t, int64(5), conflict.Actual)
}

func TestExecute_LegacyCallerFallsBackToCurrentVersion(t *testing.T) {
	repo := &fakeRoomRepo{currentVersion: 7}
	uc := NewUseCase(repo, nopLogger{}, nil)

	resp, err := uc.Execute(context.Background(), &Request{
		RoomID: 1,
		Price:  int64Ptr(15000),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, repo.getVersionCalls)
	assert.Equal(t, int64(7), repo.gotExpected)
	assert.Equal(t, int64(8), resp.NewVersion)
}

func TestExecute_EmptyPatch(t *testing.T) {
	uc := NewUseCase(&fakeRoomRepo{}, nopLogger{}, nil)

	_, err := uc.Execute(context.Background(), &Request{
		RoomID:          1,
		ExpectedVersion: int64Ptr(1),
	})

	require.ErrorIs(t, err, ErrEmptyPatch)
}

func TestExecute_InvalidInput(t *testing.T) {
	uc := NewUseCase(&fakeRoomRepo{}, nopLogger{}, nil)

	tests := []struct {
		name string
		req  *Request
	}{
		{
			name: "unknown status",
			req:  &Request{RoomID: 1, ExpectedVersion: int64Ptr(1), Status: strPtr("closed")},
		},
		{
			name: "negative price",
			req:  &Request{RoomID: 1, ExpectedVersion: int64Ptr(1), Price: int64Ptr(-1)},
		},
		{
			name: "zero max guests",
			req:  &Request{RoomID: 1, ExpectedVersion: int64Ptr(1), MaxGuests: intPtr(0)},
		},
		{
			name: "missing room id",
			req:  &Request{ExpectedVersion: int64Ptr(1), Price: int64Ptr(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestExecute_RoomNotFound(t *testing.T) {
	repo := &fakeRoomRepo{updateErr: roomRepo.ErrRoomNotFound}
	uc := NewUseCase(repo, nopLogger{}, nil)

	_, err := uc.Execute(context.Background(), &Request{
		RoomID:          1,
		ExpectedVersion: int64Ptr(1),
		Price:           int64Ptr(100),
	})

	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDelete_Success(t *testing.T) {
	repo := &fakeRoomRepo{}
	uc := NewUseCase(repo, nopLogger{}, nil)

	err := uc.Delete(context.Background(), &Request{RoomID: 1, ExpectedVersion: int64Ptr(2)})

	require.NoError(t, err)
	assert.Equal(t, 1, repo.deleteCalls)
	assert.Equal(t, int64(2), repo.gotExpected)
}

func TestDelete_VersionConflict(t *testing.T) {
	repo := &fakeRoomRepo{
		deleteErr: &roomRepo.VersionConflictError{RoomID: 1, Expected: 2, Actual: 4},
	}
	uc := NewUseCase(repo, nopLogger{}, nil)

	err := uc.Delete(context.Background(), &Request{RoomID: 1, ExpectedVersion: int64Ptr(2)})

	conflict, ok := roomRepo.AsVersionConflict(err)
	require.True(t, ok)
	assert.Equal(t, int64(4), conflict.Actual)
}

func TestDelete_LegacyCallerFallsBackToCurrentVersion(t *testing.T) {
	repo := &fakeRoomRepo{currentVersion: 9}
	uc := NewUseCase(repo, nopLogger{}, nil)

	err := uc.Delete(context.Background(), &Request{RoomID: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, repo.getVersionCalls)
	assert.Equal(t, int64(9), repo.gotExpected)
}
