package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Database       DatabaseConfig       `toml:"database"`
	Logs           LogsConfig           `toml:"logs"`
	Metrics        MetricsConfig        `toml:"metrics"`
	TxRetry        TxRetryConfig        `toml:"tx_retry"`
	Refund         RefundConfig         `toml:"refund"`
	Reconciliation ReconciliationConfig `toml:"reconciliation"`
	PaymentGateway PaymentGatewayConfig `toml:"payment_gateway"`
	Queue          QueueConfig          `toml:"queue"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN возвращает строку подключения к PostgreSQL
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки prometheus метрик
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

// TxRetryConfig настройки повторов транзакций (deadlock / serialization failure)
type TxRetryConfig struct {
	MaxAttempts              int `toml:"max_attempts"`
	DeadlockDelayMinMs       int `toml:"deadlock_delay_min_ms"`
	DeadlockDelayMaxMs       int `toml:"deadlock_delay_max_ms"`
	SerializationBaseDelayMs int `toml:"serialization_base_delay_ms"`
}

// RefundConfig настройки повторов внешнего возврата средств (Phase 2 отмены)
type RefundConfig struct {
	MaxAttempts    int `toml:"max_attempts"`
	BaseDelayMs    int `toml:"base_delay_ms"`
	ResultTTLHours int `toml:"result_ttl_hours"`
}

// ReconciliationConfig настройки фонового процесса добивания зависших возвратов
type ReconciliationConfig struct {
	Enabled           bool `toml:"enabled"`
	IntervalSeconds   int  `toml:"interval_seconds"`
	StaleAfterSeconds int  `toml:"stale_after_seconds"`
	MaxTotalAttempts  int  `toml:"max_total_attempts"`
	BatchSize         int  `toml:"batch_size"`
}

// PaymentGatewayConfig настройки клиента платежного шлюза
type PaymentGatewayConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// QueueConfig настройки kafka для асинхронной обработки возвратов
type QueueConfig struct {
	Enabled     bool     `toml:"enabled"`
	Brokers     []string `toml:"brokers"`
	RefundTopic string   `toml:"refund_topic"`
	GroupID     string   `toml:"group_id"`
}

// Load читает конфигурацию из toml файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("config: server.http_port must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.dbname is required")
	}
	if c.PaymentGateway.URL == "" {
		return fmt.Errorf("config: payment_gateway.url is required")
	}
	if c.Queue.Enabled && len(c.Queue.Brokers) == 0 {
		return fmt.Errorf("config: queue.brokers is required when queue is enabled")
	}
	return nil
}
