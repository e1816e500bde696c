package main

import (
	"github.com/spf13/cobra"

	config "github.com/NordCoder/Alive/internal/config/server"
)

var (
	Version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "alive",
	Short: "Alive - daily check-in watchdog",
	Long: `Alive tracks daily check-ins and reminds a user's contacts through webhooks
and email when the user goes silent. Records idle for too long are purged.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (env overrides apply on top)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(kafkaInitCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = Version
	}
	return cfg, nil
}
