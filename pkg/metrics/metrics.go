package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор prometheus метрик сервиса
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Метрики базы данных
	DBQueriesTotal  *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// Метрики connection pool
	DBPoolOpenConnections prometheus.Gauge
	DBPoolInUse           prometheus.Gauge
	DBPoolIdle            prometheus.Gauge
	DBPoolWaitCount       prometheus.Gauge

	// Метрики транзакций (retry/exhausted по причинам)
	TxAttemptsTotal  *prometheus.CounterVec
	TxRetriesTotal   *prometheus.CounterVec
	TxExhaustedTotal *prometheus.CounterVec
	TxDuration       *prometheus.HistogramVec

	// Бизнес-метрики бронирований
	BookingsCreatedTotal      prometheus.Counter
	BookingOverlapRejectsTotal prometheus.Counter
	CancellationsTotal        *prometheus.CounterVec
	RefundAttemptsTotal       *prometheus.CounterVec
	ReconciliationRunsTotal   prometheus.Counter
	VersionConflictsTotal     prometheus.Counter
}

// New создает и регистрирует метрики сервиса
func New(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),

		DBQueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_queries_total",
			Help:        "Total number of database queries",
			ConstLabels: labels,
		}, []string{"operation", "status"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		DBPoolOpenConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_open_connections",
			Help:        "Number of open connections in the pool",
			ConstLabels: labels,
		}),

		DBPoolInUse: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_in_use_connections",
			Help:        "Number of connections currently in use",
			ConstLabels: labels,
		}),

		DBPoolIdle: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_idle_connections",
			Help:        "Number of idle connections in the pool",
			ConstLabels: labels,
		}),

		DBPoolWaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_wait_count",
			Help:        "Total number of connections waited for",
			ConstLabels: labels,
		}),

		TxAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "tx_attempts_total",
			Help:        "Total number of transaction attempts",
			ConstLabels: labels,
		}, []string{"operation", "outcome"}),

		TxRetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "tx_retries_total",
			Help:        "Total number of transaction retries by reason",
			ConstLabels: labels,
		}, []string{"operation", "reason"}),

		TxExhaustedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "tx_retries_exhausted_total",
			Help:        "Total number of transactions that exhausted all retries",
			ConstLabels: labels,
		}, []string{"operation", "reason"}),

		TxDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tx_duration_seconds",
			Help:        "Transaction duration in seconds (including retries)",
			ConstLabels: labels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),

		BookingsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "bookings_created_total",
			Help:        "Total number of bookings created",
			ConstLabels: labels,
		}),

		BookingOverlapRejectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "booking_overlap_rejects_total",
			Help:        "Total number of booking requests rejected due to date overlap",
			ConstLabels: labels,
		}),

		CancellationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_cancellations_total",
			Help:        "Total number of booking cancellations by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),

		RefundAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "refund_attempts_total",
			Help:        "Total number of refund attempts by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),

		ReconciliationRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "refund_reconciliation_runs_total",
			Help:        "Total number of refund reconciliation sweeps",
			ConstLabels: labels,
		}),

		VersionConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "room_version_conflicts_total",
			Help:        "Total number of optimistic lock conflicts on rooms",
			ConstLabels: labels,
		}),
	}
}
