package commands

import (
	"context"
	"fmt"

	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command, an overview of the stored configuration.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show schema version, secret backend and configured shops",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Schema version: %d (dirty: %v)\n", version, dirty)
				fmt.Fprintf(out, "Secret backend: %s\n", cfg.SecretBackend)
				fmt.Fprintf(out, "Max token age:  %s\n", formatMaxAge(cfg))
				fmt.Fprintf(out, "Replay guard:   %v\n", cfg.MultipassReplayProtect)

				sessions, err := database.NewShopSessionRepository(db).List(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nInstalled shops: %d\n", len(sessions))
				secrets := openSecretStore(cfg, db)
				for _, s := range sessions {
					status, err := secrets.Status(ctx, s.Shop)
					if err != nil {
						fmt.Fprintf(out, "  %s: secret status unavailable (%v)\n", s.Shop, err)
						continue
					}
					fmt.Fprint(out, "  ")
					printSecretStatus(out, status)
				}
				return nil
			})
		},
	}
}

func formatMaxAge(cfg *config.Config) string {
	if cfg.MultipassMaxAge <= 0 {
		return "unlimited"
	}
	return cfg.MultipassMaxAge.String()
}
