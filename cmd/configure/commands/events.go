package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/database"
	"github.com/homula/shop-multipass/internal/queue"
	"github.com/spf13/cobra"
)

// NewEventsCmd creates the events command for login event housekeeping.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Maintain recorded login events",
	}
	cmd.AddCommand(newEventsPruneCmd())
	cmd.AddCommand(newEventsPurgeDLQCmd())
	return cmd
}

func newEventsPruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored login events older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				retention := olderThan
				if retention <= 0 {
					retention = cfg.LoginEventRetention
				}
				n, err := queue.RepositoryPurger{Repo: database.NewLoginEventRepository(db)}.PurgeOlderThan(ctx, retention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d login events older than %s.\n", n, retention)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (defaults to LOGIN_EVENT_RETENTION)")
	return cmd
}

func newEventsPurgeDLQCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-dlq",
		Short: "Drop every dead-lettered login event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ValidateWorker(); err != nil {
				return err
			}
			q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			n, err := q.PurgeDLQ()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d dead-lettered events.\n", n)
			return nil
		},
	}
}
