package server_config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Load reads path (optional) and the environment on top of the defaults. Env names are the
// keys upper-cased with dots replaced by underscores, e.g. SCHED_NOTIFY_AFTER_DAYS.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "alive")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.timezone", "Local")

	v.SetDefault("server.http_addr", ":5000")
	v.SetDefault("server.grpc_addr", "")
	v.SetDefault("server.metrics_addr", ":9100")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 60)

	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.path", "data.db")
	v.SetDefault("db.migrate_on_start", true)
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "3s")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "alive")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("sched.interval", "24h")
	v.SetDefault("sched.cron", "")
	v.SetDefault("sched.run_on_start", false)
	v.SetDefault("sched.workers", 4)
	v.SetDefault("sched.notify_after_days", 2)
	v.SetDefault("sched.purge_after_days", 4)
	v.SetDefault("sched.lock.redis_addr", "")
	v.SetDefault("sched.lock.password", "")
	v.SetDefault("sched.lock.db", 0)
	v.SetDefault("sched.lock.key", "alive:sweep")
	v.SetDefault("sched.lock.ttl", "30m")

	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.verify_tls", true)

	v.SetDefault("smtp.host", "smtp.qq.com")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "Alive")
	v.SetDefault("smtp.ssl", false)
	v.SetDefault("smtp.timeout", "15s")

	v.SetDefault("kafka.enable", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "alive.events")
	v.SetDefault("kafka.checkins_topic", "alive.checkins")
	v.SetDefault("kafka.group_id", "alive")
	v.SetDefault("kafka.consume_checkins", false)
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication", 1)

	v.SetDefault("outbox.workers", 2)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.wait_time", "1s")
	v.SetDefault("outbox.in_progress_ttl", "30s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// names used by earlier deployments
	for key, legacy := range map[string]string{
		"smtp.username": "MAIL_USERNAME",
		"smtp.password": "MAIL_PASSWORD",
		"smtp.host":     "MAIL_SERVER",
		"smtp.port":     "MAIL_PORT",
	} {
		env := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, legacy); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			errs = append(errs, ErrConfig("db.dsn is required for the postgres driver"))
		}
	case DriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, ErrConfig("db.path is required for the sqlite driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, ErrConfig(fmt.Sprintf("db.driver %q is not one of postgres, sqlite, memory", c.DB.Driver)))
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, ErrConfig(fmt.Sprintf("app.timezone: %v", err)))
	}
	if err := c.Sched.Thresholds().Validate(); err != nil {
		errs = append(errs, ErrConfig("sched: "+err.Error()))
	}
	if c.Sched.Cron != "" {
		if _, err := cron.ParseStandard(c.Sched.Cron); err != nil {
			errs = append(errs, ErrConfig(fmt.Sprintf("sched.cron: %v", err)))
		}
	} else if c.Sched.Interval <= 0 {
		errs = append(errs, ErrConfig("sched.interval must be positive"))
	}
	if c.Sched.Workers <= 0 {
		errs = append(errs, ErrConfig("sched.workers must be positive"))
	}
	if c.Sched.Lock.Enabled() && c.Sched.Lock.TTL <= 0 {
		errs = append(errs, ErrConfig("sched.lock.ttl must be positive"))
	}

	if c.Kafka.Enable {
		if c.DB.Driver != DriverPostgres {
			errs = append(errs, ErrConfig("kafka.enable requires db.driver postgres (events go through the outbox)"))
		}
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, ErrConfig("kafka.brokers is empty"))
		}
	}
	if c.Server.HTTPAddr == "" {
		errs = append(errs, ErrConfig("server.http_addr is required"))
	}
	return errors.Join(errs...)
}
