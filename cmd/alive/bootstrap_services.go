package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Alive/internal/config/server"
	"github.com/NordCoder/Alive/internal/domain/clock"
	"github.com/NordCoder/Alive/internal/obs"
	"github.com/NordCoder/Alive/internal/repository/redislock"
	"github.com/NordCoder/Alive/internal/services/monitor"
	"github.com/NordCoder/Alive/internal/services/notifier"
)

func buildDispatcher(cfg *config.Config, logger *zap.Logger) *notifier.Dispatcher {
	webhook := notifier.NewWebhookSender(
		notifier.NewHTTPClient(cfg.Webhook.AsHTTPConfig()),
		fmt.Sprintf("%s/%s", cfg.App.Name, cfg.App.Version),
	).WithLogger(logger)

	mailer := notifier.NewMailer(cfg.SMTP.AsSMTPConfig()).WithLogger(logger)
	if !mailer.Configured() {
		logger.Warn("smtp credentials missing, email notifications will fail")
	}
	return notifier.NewDispatcher(webhook, mailer)
}

func buildMonitor(st *store, d *notifier.Dispatcher, cfg *config.Config, logger *zap.Logger) (*monitor.Usecase, error) {
	return monitor.NewUsecase(monitor.Deps{
		Users:    st.Users,
		Tx:       st.Tx,
		Reminder: d,
		Notes:    st.Notes,
		Outbox:   st.Outbox,
		Clock:    clock.System{},
		Log:      logger,
	}, monitor.Config{Thresholds: cfg.Sched.Thresholds(), Workers: cfg.Sched.Workers})
}

// buildRunner also returns a cleanup for the Redis client when the sweep lock is enabled.
func buildRunner(ctx context.Context, uc *monitor.Usecase, cfg *config.Config, checks obs.HealthChecks, logger *zap.Logger) (*monitor.Runner, func(), error) {
	loc := cfg.App.Location()

	var schedule monitor.Schedule = monitor.Interval(cfg.Sched.Interval)
	if cfg.Sched.Cron != "" {
		s, err := monitor.ParseCron(cfg.Sched.Cron, loc)
		if err != nil {
			return nil, nil, err
		}
		schedule = s
	}

	rc := monitor.RunnerConfig{Schedule: schedule, Location: loc, RunOnStart: cfg.Sched.RunOnStart}
	cleanup := func() {}
	if cfg.Sched.Lock.Enabled() {
		lc := cfg.Sched.Lock.AsRedisLockConfig()
		client, err := redislock.NewClient(ctx, lc)
		if err != nil {
			return nil, nil, fmt.Errorf("redis lock: %w", err)
		}
		rc.Lock = redislock.NewSweepLock(client, lc.Key, lc.TTL, logger)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		cleanup = func() { _ = client.Close() }
		logger.Info("sweep lock enabled", zap.String("redis", lc.Addr))
	}

	return monitor.NewRunner(uc, clock.System{}, rc, logger), cleanup, nil
}
