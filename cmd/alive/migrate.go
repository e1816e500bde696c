package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/repository/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func init() {
	migrateCmd.AddCommand(
		migrateSub("up", "Apply all pending migrations", migrations.Up),
		migrateSub("down", "Roll back the latest migration", migrations.Down),
		migrateSub("status", "Print the migration status", migrations.Status),
	)
}

func migrateSub(use, short string, run func(context.Context, *sql.DB, migrations.Dialect) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.sqlDB == nil {
				logger.Info("driver has no schema, nothing to do", zap.String("driver", cfg.DB.Driver))
				return nil
			}
			if err := st.migrate(cmd.Context(), run); err != nil {
				return err
			}
			logger.Info("migrate done", zap.String("cmd", use), zap.String("driver", cfg.DB.Driver))
			return nil
		},
	}
}
