package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NordCoder/Alive/internal/domain/activity"
	"github.com/NordCoder/Alive/internal/repository/migrations"
)

var sweepDate string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one activity monitor pass and exit",
	Long: `Run one pass of the activity monitor over every user: remind the contacts of users idle
for sched.notify_after_days and purge users idle for sched.purge_after_days. --date evaluates
as of another calendar day (YYYY-MM-DD). The report is printed as JSON.`,
	Args: cobra.NoArgs,
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

		ctx := cmd.Context()
		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.migrate(ctx, migrations.Up); err != nil {
			return err
		}
		// without a publisher the events would only pile up
		st.Outbox = nil

		uc, err := buildMonitor(st, buildDispatcher(cfg, logger), cfg, logger)
		if err != nil {
			return err
		}
		runner, release, err := buildRunner(ctx, uc, cfg, st.Checks, logger)
		if err != nil {
			return err
		}
		defer release()

		var day time.Time
		if sweepDate != "" {
			day, err = activity.ParseDate(sweepDate)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			logger.Info("sweeping as of", zap.String("date", activity.FormatDate(day)))
		}
		rep, err := runner.TriggerAt(ctx, day)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepDate, "date", "", "evaluate as of this date (YYYY-MM-DD) instead of today")
}
