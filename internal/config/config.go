package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Redis       *RedisConfig
	Postgres    *PostgresConfig
	AMQP        *AMQPConfig
	WebSocket   *WebSocketConfig
	Tracer      *TracerConfig
	Logger      *LoggerConfig
	SecretToken string
}

type ServiceConfig struct {
	Name string
	Env  string
	Add  string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// AMQPConfig configures the outbound deal event publisher. An empty URL
// disables it.
type AMQPConfig struct {
	URL           string
	Exchange      string
	RetryAttempts int
	RetryDelay    time.Duration
}

type WebSocketConfig struct {
	Path           string
	WriteTimeout   time.Duration
	OutboxSize     int
	ReadLimit      int64
	AllowedOrigins []string
}

type TracerConfig struct {
	Address string
}

type LoggerConfig struct {
	Level  string
	Format string
}
