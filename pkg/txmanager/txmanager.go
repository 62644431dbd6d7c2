package txmanager

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/m04kA/SMC-RoomBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/metrics"
)

// TxBeginner интерфейс для начала транзакций.
// Поддерживает *dbmetrics.DB напрямую и *sql.DB через NewBeginner.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Config настройки повторов транзакций.
// Передается явно в конструктор, без глобального состояния.
type Config struct {
	// MaxAttempts максимальное количество попыток (включая первую)
	MaxAttempts int

	// DeadlockDelayMin / DeadlockDelayMax границы случайной задержки после deadlock
	DeadlockDelayMin time.Duration
	DeadlockDelayMax time.Duration

	// SerializationBaseDelay база экспоненциального backoff при конфликте сериализации
	SerializationBaseDelay time.Duration
}

// DefaultConfig значения по умолчанию: 3 попытки, 10-50мс после deadlock,
// backoff от 25мс при конфликте сериализации
func DefaultConfig() Config {
	return Config{
		MaxAttempts:            3,
		DeadlockDelayMin:       10 * time.Millisecond,
		DeadlockDelayMax:       50 * time.Millisecond,
		SerializationBaseDelay: 25 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.DeadlockDelayMin <= 0 {
		c.DeadlockDelayMin = d.DeadlockDelayMin
	}
	if c.DeadlockDelayMax <= c.DeadlockDelayMin {
		c.DeadlockDelayMax = c.DeadlockDelayMin + d.DeadlockDelayMax - d.DeadlockDelayMin
	}
	if c.SerializationBaseDelay <= 0 {
		c.SerializationBaseDelay = d.SerializationBaseDelay
	}
	return c
}

// Manager выполняет функции внутри транзакций с повтором транзиентных ошибок.
// Deadlock повторяется со случайной короткой задержкой, конфликт сериализации -
// с экспоненциальным backoff и jitter. Остальные ошибки пробрасываются сразу.
type Manager struct {
	db      TxBeginner
	cfg     Config
	log     Logger
	metrics *metrics.Metrics // опционально, может быть nil
}

// New создает менеджер транзакций. metrics может быть nil, если метрики отключены.
func New(db TxBeginner, cfg Config, log Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		db:      db,
		cfg:     cfg.withDefaults(),
		log:     log,
		metrics: m,
	}
}

// sqlBeginner адаптер *sql.DB под TxBeginner
type sqlBeginner struct {
	db *sql.DB
}

func (b sqlBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	return b.db.BeginTx(ctx, opts)
}

// NewBeginner оборачивает *sql.DB в TxBeginner
func NewBeginner(db *sql.DB) TxBeginner {
	return sqlBeginner{db: db}
}

// DoReadCommitted выполняет fn в транзакции с уровнем изоляции READ COMMITTED
func (m *Manager) DoReadCommitted(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return m.Do(ctx, op, sql.LevelReadCommitted, fn)
}

// DoSerializable выполняет fn в транзакции с уровнем изоляции SERIALIZABLE
func (m *Manager) DoSerializable(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return m.Do(ctx, op, sql.LevelSerializable, fn)
}

// Do выполняет fn внутри транзакции с указанным уровнем изоляции.
// Активная транзакция кладется в контекст, репозитории подхватывают её
// через dbmetrics.GetExecutor.
func (m *Manager) Do(ctx context.Context, op string, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.TxDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		}
	}()

	var lastKind FailureKind
	var lastErr error

	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		attemptStart := time.Now()
		err := m.runOnce(ctx, isolation, fn)
		if err == nil {
			m.observeAttempt(op, "ok")
			m.log.Debug("txmanager: %s - attempt %d committed in %s", op, attempt, time.Since(attemptStart))
			return nil
		}

		kind, retryable := classify(err)
		if !retryable {
			m.observeAttempt(op, "error")
			return err
		}

		lastKind = kind
		lastErr = err
		m.observeAttempt(op, string(kind))

		if attempt == m.cfg.MaxAttempts {
			break
		}

		delay := m.retryDelay(kind, attempt)
		m.log.Warn("txmanager: %s - attempt %d/%d failed (%s), retrying in %s: %v",
			op, attempt, m.cfg.MaxAttempts, kind, delay, err)
		if m.metrics != nil {
			m.metrics.TxRetriesTotal.WithLabelValues(op, string(kind)).Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	m.log.Error("txmanager: %s - %s retries exhausted after %d attempts: %v",
		op, lastKind, m.cfg.MaxAttempts, lastErr)
	if m.metrics != nil {
		m.metrics.TxExhaustedTotal.WithLabelValues(op, string(lastKind)).Inc()
	}

	return &ExhaustedError{
		Kind:      lastKind,
		Operation: op,
		Attempts:  m.cfg.MaxAttempts,
		Last:      lastErr,
	}
}

// runOnce одна попытка: begin, fn, commit/rollback
func (m *Manager) runOnce(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return fmt.Errorf("txmanager: begin transaction: %w", err)
	}

	if err := fn(dbmetrics.WithExecutor(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.log.Error("txmanager: rollback failed: %v (original error: %v)", rbErr, err)
		}
		return err
	}

	// Конфликт сериализации может проявиться только на commit
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("txmanager: commit transaction: %w", err)
	}

	return nil
}

// retryDelay задержка перед следующей попыткой.
// attempt нумеруется с 1.
func (m *Manager) retryDelay(kind FailureKind, attempt int) time.Duration {
	switch kind {
	case KindDeadlock:
		spread := m.cfg.DeadlockDelayMax - m.cfg.DeadlockDelayMin
		return m.cfg.DeadlockDelayMin + time.Duration(rand.Int63n(int64(spread)+1))
	default:
		backoff := m.cfg.SerializationBaseDelay * (1 << uint(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(m.cfg.SerializationBaseDelay) + 1))
		return backoff + jitter
	}
}

func (m *Manager) observeAttempt(op, outcome string) {
	if m.metrics != nil {
		m.metrics.TxAttemptsTotal.WithLabelValues(op, outcome).Inc()
	}
}
