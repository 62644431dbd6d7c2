package idempotency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/idempotency"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

// fakeStorage in-memory замена репозитория идемпотентности
type fakeStorage struct {
	acquireResult *storage.AcquireResult
	acquireErr    error
	completeErr   error

	acquireCalls  int
	completeCalls int
	releaseCalls  int
	completedWith json.RawMessage
}

func (s *fakeStorage) Acquire(ctx context.Context, key string, ttl time.Duration) (*storage.AcquireResult, error) {
	s.acquireCalls++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.acquireResult, nil
}

func (s *fakeStorage) Complete(ctx context.Context, key string, result json.RawMessage) error {
	s.completeCalls++
	s.completedWith = result
	return s.completeErr
}

func (s *fakeStorage) Release(ctx context.Context, key string) error {
	s.releaseCalls++
	return nil
}

func TestExecute_RunsOnceAndCaches(t *testing.T) {
	st := &fakeStorage{acquireResult: &storage.AcquireResult{Acquired: true}}
	svc := NewService(st, time.Hour, nopLogger{})

	fnCalls := 0
	result, executed, err := svc.Execute(context.Background(), "refund:1", func(ctx context.Context) (json.RawMessage, error) {
		fnCalls++
		return json.RawMessage(`{"ok":true}`), nil
	})

	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, 1, fnCalls)
	assert.JSONEq(t, `{"ok":true}`, string(result))
	assert.Equal(t, 1, st.completeCalls)
	assert.JSONEq(t, `{"ok":true}`, string(st.completedWith))
	assert.Zero(t, st.releaseCalls)
}

func TestExecute_ReturnsCachedResult(t *testing.T) {
	st := &fakeStorage{acquireResult: &storage.AcquireResult{
		Acquired: false,
		Cached:   json.RawMessage(`{"refundReference":"rf-1"}`),
	}}
	svc := NewService(st, time.Hour, nopLogger{})

	fnCalls := 0
	result, executed, err := svc.Execute(context.Background(), "refund:1", func(ctx context.Context) (json.RawMessage, error) {
		fnCalls++
		return nil, nil
	})

	require.NoError(t, err)
	assert.False(t, executed, "кэшированный результат не считается выполнением")
	assert.Zero(t, fnCalls)
	assert.JSONEq(t, `{"refundReference":"rf-1"}`, string(result))
	assert.Zero(t, st.completeCalls)
}

func TestExecute_ConcurrentCallerOwnsKey(t *testing.T) {
	st := &fakeStorage{acquireErr: storage.ErrInProgress}
	svc := NewService(st, time.Hour, nopLogger{})

	_, executed, err := svc.Execute(context.Background(), "refund:1", func(ctx context.Context) (json.RawMessage, error) {
		t.Fatal("fn не должна вызываться при занятом ключе")
		return nil, nil
	})

	require.ErrorIs(t, err, ErrInProgress)
	assert.False(t, executed)
}

func TestExecute_FnErrorReleasesLock(t *testing.T) {
	st := &fakeStorage{acquireResult: &storage.AcquireResult{Acquired: true}}
	svc := NewService(st, time.Hour, nopLogger{})

	_, executed, err := svc.Execute(context.Background(), "refund:1", func(ctx context.Context) (json.RawMessage, error) {
		return nil, assert.AnError
	})

	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, executed)
	assert.Equal(t, 1, st.releaseCalls, "lock снимается, чтобы операцию можно было повторить")
	assert.Zero(t, st.completeCalls)
}

func TestExecute_StoreFailureReportedAsInternal(t *testing.T) {
	st := &fakeStorage{
		acquireResult: &storage.AcquireResult{Acquired: true},
		completeErr:   assert.AnError,
	}
	svc := NewService(st, time.Hour, nopLogger{})

	result, executed, err := svc.Execute(context.Background(), "refund:1", func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"ok":true}`), nil
	})

	require.ErrorIs(t, err, ErrInternal)
	// операция выполнена, результат возвращается вместе с ошибкой сохранения
	assert.True(t, executed)
	assert.JSONEq(t, `{"ok":true}`, string(result))
}

func TestExecute_AcquireFailure(t *testing.T) {
	st := &fakeStorage{acquireErr: assert.AnError}
	svc := NewService(st, time.Hour, nopLogger{})

	_, _, err := svc.Execute(context.Background(), "refund:1", func(ctx context.Context) (json.RawMessage, error) {
		return nil, nil
	})

	require.ErrorIs(t, err, ErrInternal)
}
