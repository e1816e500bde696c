package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Alive/internal/domain/clock"
	"github.com/NordCoder/Alive/internal/obs"
	"github.com/NordCoder/Alive/internal/obs/retry"
	"github.com/NordCoder/Alive/internal/outbox"
	kafkax "github.com/NordCoder/Alive/internal/repository/kafka"
	"github.com/NordCoder/Alive/internal/repository/migrations"
	"github.com/NordCoder/Alive/internal/services/api"
	"github.com/NordCoder/Alive/internal/services/checkin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the activity monitor",
	Long: `Run the HTTP API together with the scheduled activity monitor. With kafka.enable the
outbox publisher starts too, and kafka.consume_checkins adds the check-in consumer.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting alive", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version), zap.String("db", cfg.DB.Driver))

	otelShutdown, err := initOTel(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if cfg.DB.MigrateOnStart {
		if err := st.migrate(ctx, migrations.Up); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if !cfg.Kafka.Enable {
		st.Outbox = nil
	}

	dispatcher := buildDispatcher(cfg, logger)
	checkinUC := checkin.New(checkin.Deps{
		Users:    st.Users,
		Tx:       st.Tx,
		Prober:   dispatcher,
		Notes:    st.Notes,
		Clock:    clock.System{},
		Location: cfg.App.Location(),
		Log:      logger,
	})
	monitorUC, err := buildMonitor(st, dispatcher, cfg, logger)
	if err != nil {
		return err
	}
	runner, releaseLock, err := buildRunner(ctx, monitorUC, cfg, st.Checks, logger)
	if err != nil {
		return err
	}
	defer releaseLock()

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := api.NewHTTPServer(cfg.Server.AsHTTPServerConfig(), api.NewRouter(checkinUC, cfg.Server.AsAPIConfig(), logger))
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, st.Checks, logger)
	}

	var grpcSrv *obs.HealthServer
	if cfg.Server.GRPCAddr != "" {
		grpcSrv = obs.NewHealthServer(st.Checks, logger)
		g.Go(func() error { return grpcSrv.Serve(gctx, cfg.Server.GRPCAddr) })
	}

	var closers []func() error
	if cfg.Kafka.Enable {
		producer := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic).WithLogger(logger)
		closers = append(closers, producer.Close)

		handler := outbox.MakeGlobalOutboxHandler(kafkax.NewActivityEventsKafka(producer), retry.DefaultPublishPolicy(logger))
		ob := outbox.NewOutboxRunner(logger, st.Outbox, handler, cfg.Outbox.AsRunnerConfig())
		g.Go(func() error {
			ob.Run(gctx)
			return nil
		})

		if cfg.Kafka.ConsumeCheckins {
			consumer := kafkax.NewConsumer(&kafkax.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				GroupID: cfg.Kafka.GroupID,
				Topic:   cfg.Kafka.CheckinsTopic,
				Logger:  logger,
			})
			closers = append(closers, consumer.Close)
			ctrl := &checkin.Controller{Log: logger, Sub: consumer, UC: checkinUC}
			g.Go(func() error {
				if err := ctrl.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("checkin consumer: %w", err)
				}
				return nil
			})
		}
	}

	if err := runner.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.GracefulTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		if err := runner.Stop(shCtx); err != nil {
			logger.Warn("scheduler stop", zap.Error(err))
		}
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shCtx)
		}
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close", zap.Error(err))
			}
		}
		return nil
	})

	err = g.Wait()
	logger.Info("bye")
	return err
}
