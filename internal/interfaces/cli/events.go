package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/messaging/kafka"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// newEventsCmd tails a case-tracking topic and prints each envelope as one
// JSON line.  It only needs the broker config, so it skips the full graph.
func newEventsCmd(opts *rootOptions) *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Consume and print case-tracking events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cfg.KafkaEnabled() {
				return errors.NewValidation("kafka brokers are not configured")
			}

			consumer, err := kafka.NewConsumer(cfg.Kafka, topic, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := consumer.Close(); err != nil {
					logger.Warn("failed to close kafka consumer", logging.Err(err))
				}
			}()

			logger.Info("consuming events",
				logging.String("topic", topic),
				logging.String("group_id", cfg.Kafka.GroupID),
			)
			out := cmd.OutOrStdout()
			return consumer.Run(ctx, func(_ context.Context, env *kafka.EventEnvelope) error {
				line, err := json.Marshal(env)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(line))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&topic, "topic", kafka.TopicCaseChanged, "topic to consume")
	return cmd
}
