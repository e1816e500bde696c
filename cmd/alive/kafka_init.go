package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	kafkax "github.com/NordCoder/Alive/internal/repository/kafka"
)

var kafkaInitCmd = &cobra.Command{
	Use:   "kafka-init",
	Short: "Create the events and check-ins topics",
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

		if len(cfg.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is empty")
		}
		spec := func(name string) kafkax.TopicSpec {
			return kafkax.TopicSpec{
				Name:              name,
				NumPartitions:     cfg.Kafka.Partitions,
				ReplicationFactor: cfg.Kafka.Replication,
				MaxWait:           30 * time.Second,
			}
		}
		err = kafkax.EnsureTopics(cmd.Context(), cfg.Kafka.Brokers, []kafkax.TopicSpec{
			spec(cfg.Kafka.EventsTopic),
			spec(cfg.Kafka.CheckinsTopic),
		}, logger)
		if err != nil {
			return err
		}
		logger.Info("kafka topics ready", zap.Strings("topics", []string{cfg.Kafka.EventsTopic, cfg.Kafka.CheckinsTopic}))
		return nil
	},
}
