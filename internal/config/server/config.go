package server_config

import (
	"time"

	"github.com/NordCoder/Alive/internal/domain/activity"
	"github.com/NordCoder/Alive/internal/obs"
	"github.com/NordCoder/Alive/internal/outbox"
	"github.com/NordCoder/Alive/internal/repository/postgres"
	"github.com/NordCoder/Alive/internal/repository/redislock"
	"github.com/NordCoder/Alive/internal/repository/sqlite"
	"github.com/NordCoder/Alive/internal/services/api"
	"github.com/NordCoder/Alive/internal/services/notifier"
)

type App struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Version  string `mapstructure:"version"`
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone; callers run Validate first.
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Server struct {
	HTTPAddr           string        `mapstructure:"http_addr"`
	GRPCAddr           string        `mapstructure:"grpc_addr"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout    time.Duration `mapstructure:"graceful_timeout"`
	GinMode            string        `mapstructure:"gin_mode"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
}

func (s *Server) AsAPIConfig() api.Config {
	return api.Config{Mode: s.GinMode, AllowedOrigins: s.AllowedOrigins, RateLimitPerMinute: s.RateLimitPerMinute}
}

func (s *Server) AsHTTPServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Addr:         s.HTTPAddr,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DB struct {
	Driver            string        `mapstructure:"driver"`
	DSN               string        `mapstructure:"dsn"`
	Path              string        `mapstructure:"path"`
	MigrateOnStart    bool          `mapstructure:"migrate_on_start"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

func (d *DB) AsPostgresConfig() postgres.Config {
	return postgres.Config{
		DSN:               d.DSN,
		MaxConns:          d.MaxConns,
		MinConns:          d.MinConns,
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		QueryTimeout:      d.QueryTimeout,
	}
}

func (d *DB) AsSQLiteConfig() sqlite.Config {
	return sqlite.Config{Path: d.Path, QueryTimeout: d.QueryTimeout}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func (c *Config) AsLoggerConfig() *obs.LogConfig {
	return &obs.LogConfig{
		Level:      c.Log.Level,
		Pretty:     c.Log.Pretty,
		App:        c.App.Name,
		Env:        c.App.Env,
		Ver:        c.App.Version,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

type Lock struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Key       string        `mapstructure:"key"`
	TTL       time.Duration `mapstructure:"ttl"`
}

func (l *Lock) Enabled() bool { return l.RedisAddr != "" }

func (l *Lock) AsRedisLockConfig() redislock.Config {
	return redislock.Config{Addr: l.RedisAddr, Password: l.Password, DB: l.DB, Key: l.Key, TTL: l.TTL}
}

type Sched struct {
	Interval        time.Duration `mapstructure:"interval"`
	Cron            string        `mapstructure:"cron"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	Workers         int           `mapstructure:"workers"`
	NotifyAfterDays int           `mapstructure:"notify_after_days"`
	PurgeAfterDays  int           `mapstructure:"purge_after_days"`
	Lock            Lock          `mapstructure:"lock"`
}

func (s *Sched) Thresholds() activity.Thresholds {
	return activity.Thresholds{NotifyAfter: s.NotifyAfterDays, PurgeAfter: s.PurgeAfterDays}
}

type Webhook struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
}

func (w *Webhook) AsHTTPConfig() notifier.HTTPConfig {
	return notifier.HTTPConfig{Timeout: w.Timeout, VerifyTLS: w.VerifyTLS}
}

type SMTP struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	FromName string        `mapstructure:"from_name"`
	SSL      bool          `mapstructure:"ssl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AsSMTPConfig selects implicit TLS on port 465 or when ssl is set, STARTTLS otherwise.
func (s *SMTP) AsSMTPConfig() notifier.SMTPConfig {
	ssl := s.SSL || s.Port == 465
	return notifier.SMTPConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
		FromName: s.FromName,
		SSL:      ssl,
		StartTLS: !ssl,
		Timeout:  s.Timeout,
	}
}

type Kafka struct {
	Enable          bool     `mapstructure:"enable"`
	Brokers         []string `mapstructure:"brokers"`
	EventsTopic     string   `mapstructure:"events_topic"`
	CheckinsTopic   string   `mapstructure:"checkins_topic"`
	GroupID         string   `mapstructure:"group_id"`
	ConsumeCheckins bool     `mapstructure:"consume_checkins"`
	Partitions      int      `mapstructure:"partitions"`
	Replication     int      `mapstructure:"replication"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

func (o *Outbox) AsRunnerConfig() outbox.Config {
	return outbox.Config{
		Workers:       o.Workers,
		BatchSize:     o.BatchSize,
		WaitTime:      o.WaitTime,
		InProgressTTL: o.InProgressTTL,
	}
}

type Config struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	DB      DB      `mapstructure:"db"`
	OTEL    OTEL    `mapstructure:"otel"`
	Log     Log     `mapstructure:"log"`
	Sched   Sched   `mapstructure:"sched"`
	Webhook Webhook `mapstructure:"webhook"`
	SMTP    SMTP    `mapstructure:"smtp"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Outbox  Outbox  `mapstructure:"outbox"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
