package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RoomBookingService/pkg/dbmetrics"
)

type nopLogger struct{}

func (nopLogger) Debug(format string, v ...interface{}) {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

// fakeTx минимальный TxExecutor: запросы в тестах не выполняются
type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs      []*fakeTx
	beginErr error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func fastConfig() Config {
	return Config{
		MaxAttempts:            3,
		DeadlockDelayMin:       time.Microsecond,
		DeadlockDelayMax:       2 * time.Microsecond,
		SerializationBaseDelay: time.Microsecond,
	}
}

func deadlockErr() error {
	return &pq.Error{Code: "40P01"}
}

func serializationErr() error {
	return &pq.Error{Code: "40001"}
}

func TestClassify(t *testing.T) {
	kind, retryable := classify(deadlockErr())
	assert.True(t, retryable)
	assert.Equal(t, KindDeadlock, kind)

	kind, retryable = classify(serializationErr())
	assert.True(t, retryable)
	assert.Equal(t, KindSerialization, kind)

	// обернутые ошибки тоже распознаются
	_, retryable = classify(errors.Join(errors.New("wrap"), deadlockErr()))
	assert.True(t, retryable)

	_, retryable = classify(&pq.Error{Code: "23505"})
	assert.False(t, retryable)

	_, retryable = classify(errors.New("plain error"))
	assert.False(t, retryable)

	_, retryable = classify(nil)
	assert.False(t, retryable)
}

func TestManager_Do_CommitsOnSuccess(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	calls := 0
	err := mgr.DoReadCommitted(context.Background(), "op", func(ctx context.Context) error {
		calls++
		// внутри fn транзакция доступна через контекст
		assert.True(t, dbmetrics.IsInTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, beginner.txs, 1)
	assert.True(t, beginner.txs[0].committed)
	assert.False(t, beginner.txs[0].rolledBack)
}

func TestManager_Do_RollsBackOnError(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	want := errors.New("business failure")
	err := mgr.DoReadCommitted(context.Background(), "op", func(ctx context.Context) error {
		return want
	})

	require.ErrorIs(t, err, want)
	require.Len(t, beginner.txs, 1)
	assert.False(t, beginner.txs[0].committed)
	assert.True(t, beginner.txs[0].rolledBack)
}

func TestManager_Do_RetriesDeadlock(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	calls := 0
	err := mgr.DoReadCommitted(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return deadlockErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// каждая попытка - свежая транзакция
	require.Len(t, beginner.txs, 3)
	assert.True(t, beginner.txs[2].committed)
}

func TestManager_Do_ExhaustsDeadlockRetries(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	calls := 0
	err := mgr.DoReadCommitted(context.Background(), "create_booking", func(ctx context.Context) error {
		calls++
		return deadlockErr()
	})

	assert.Equal(t, 3, calls)

	exhausted, ok := AsExhausted(err)
	require.True(t, ok)
	assert.Equal(t, KindDeadlock, exhausted.Kind)
	assert.Equal(t, "create_booking", exhausted.Operation)
	assert.Equal(t, 3, exhausted.Attempts)
	require.NotNil(t, exhausted.Last)
}

func TestManager_Do_ExhaustsSerializationRetries(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	err := mgr.DoSerializable(context.Background(), "op", func(ctx context.Context) error {
		return serializationErr()
	})

	exhausted, ok := AsExhausted(err)
	require.True(t, ok)
	assert.Equal(t, KindSerialization, exhausted.Kind)
}

func TestManager_Do_NoRetryOnBusinessError(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	calls := 0
	err := mgr.DoReadCommitted(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errors.New("no room")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	_, ok := AsExhausted(err)
	assert.False(t, ok)
}

func TestManager_Do_RetriesCommitConflict(t *testing.T) {
	// Конфликт сериализации, проявившийся на commit, тоже повторяется
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	err := mgr.DoSerializable(context.Background(), "op", func(ctx context.Context) error {
		tx := beginner.txs[len(beginner.txs)-1]
		if len(beginner.txs) == 1 {
			tx.commitErr = serializationErr()
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, beginner.txs, 2)
	assert.True(t, beginner.txs[1].committed)
}

func TestManager_Do_StopsOnContextCancel(t *testing.T) {
	beginner := &fakeBeginner{}
	mgr := New(beginner, fastConfig(), nopLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := mgr.DoReadCommitted(ctx, "op", func(txCtx context.Context) error {
		calls++
		cancel()
		return deadlockErr()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryDelay_Bounds(t *testing.T) {
	cfg := Config{
		MaxAttempts:            3,
		DeadlockDelayMin:       10 * time.Millisecond,
		DeadlockDelayMax:       50 * time.Millisecond,
		SerializationBaseDelay: 25 * time.Millisecond,
	}
	mgr := New(&fakeBeginner{}, cfg, nopLogger{}, nil)

	for i := 0; i < 100; i++ {
		d := mgr.retryDelay(KindDeadlock, 1)
		assert.GreaterOrEqual(t, d, cfg.DeadlockDelayMin)
		assert.LessOrEqual(t, d, cfg.DeadlockDelayMax)
	}

	// экспоненциальный рост: base*2^(attempt-1) + jitter из [0, base]
	for attempt := 1; attempt <= 3; attempt++ {
		base := cfg.SerializationBaseDelay * (1 << uint(attempt-1))
		d := mgr.retryDelay(KindSerialization, attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+cfg.SerializationBaseDelay)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.DeadlockDelayMin)
	assert.Equal(t, 50*time.Millisecond, cfg.DeadlockDelayMax)
	assert.Equal(t, 25*time.Millisecond, cfg.SerializationBaseDelay)
}
