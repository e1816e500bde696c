package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Alive/internal/config/server"
	"github.com/NordCoder/Alive/internal/domain/notification"
	"github.com/NordCoder/Alive/internal/domain/outbox"
	"github.com/NordCoder/Alive/internal/domain/user"
	"github.com/NordCoder/Alive/internal/obs"
	"github.com/NordCoder/Alive/internal/repository/memory"
	"github.com/NordCoder/Alive/internal/repository/migrations"
	pg "github.com/NordCoder/Alive/internal/repository/postgres"
	"github.com/NordCoder/Alive/internal/repository/sqlite"
)

// store bundles the repositories of the configured driver. Outbox is nil unless the driver is postgres.
type store struct {
	Users  user.Repo
	Tx     user.Transactor
	Notes  notification.Repo
	Outbox outbox.Repository
	Checks obs.HealthChecks

	// sqlDB and dialect are set for drivers that have a schema.
	sqlDB   func() (*sql.DB, func())
	dialect migrations.Dialect
	close   func()
}

func (s *store) Close() { s.close() }

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.DB.AsPostgresConfig())
		if err != nil {
			return nil, err
		}
		logger.Info("postgres connected")
		return &store{
			Users:  pg.NewUserRepo(db),
			Tx:     pg.NewTransactor(db, logger),
			Notes:  pg.NewNotificationRepo(db),
			Outbox: pg.NewOutboxRepo(db),
			Checks: obs.HealthChecks{"postgres": db.Ping},
			sqlDB: func() (*sql.DB, func()) {
				s := db.SQL()
				return s, func() { _ = s.Close() }
			},
			dialect: migrations.Postgres,
			close:   db.Close,
		}, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DB.AsSQLiteConfig(), logger)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite opened", zap.String("path", cfg.DB.Path))
		return &store{
			Users:   sqlite.NewUserRepo(s),
			Tx:      s,
			Notes:   sqlite.NewNotificationRepo(s),
			Checks:  obs.HealthChecks{"sqlite": s.Ping},
			sqlDB:   func() (*sql.DB, func()) { return s.SQL(), func() {} },
			dialect: migrations.SQLite,
			close:   func() { _ = s.Close() },
		}, nil

	case config.DriverMemory:
		logger.Warn("memory store: data is lost on exit")
		m := memory.New()
		return &store{
			Users:  m,
			Tx:     m,
			Notes:  m.Notifications(),
			Checks: obs.HealthChecks{},
			close:  func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
}

func (s *store) migrate(ctx context.Context, run func(context.Context, *sql.DB, migrations.Dialect) error) error {
	if s.sqlDB == nil {
		return nil
	}
	db, release := s.sqlDB()
	defer release()
	return run(ctx, db, s.dialect)
}
