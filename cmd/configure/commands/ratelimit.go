package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/database"
	"github.com/homula/shop-multipass/internal/middleware"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/spf13/cobra"
)

var ratelimitScopes = []models.RatelimitScope{models.RatelimitScopeLogin, models.RatelimitScopeAdmin}

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update per-scope rate limits (e.g. 10-M, 300-M). Stored in database.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withDB(func(ctx context.Context, _ *config.Config, db *database.DB) error {
				stored, err := database.NewRatelimitConfigRepository(db).List(ctx)
				if err != nil {
					return fmt.Errorf("list ratelimit config: %w", err)
				}
				byScope := make(map[models.RatelimitScope]string, len(stored))
				for _, c := range stored {
					byScope[c.Scope] = c.Rate
				}
				fmt.Fprintln(out, "Rate limit configuration:")
				for _, scope := range ratelimitScopes {
					if rate, ok := byScope[scope]; ok {
						fmt.Fprintf(out, "  %-6s %s\n", scope, rate)
						continue
					}
					fmt.Fprintf(out, "  %-6s %s (default)\n", scope, middleware.DefaultRate(scope))
				}
				return nil
			})
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate, scope string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update the rate for a scope (login or admin), e.g. 10-M, 1000-H. Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 10-M, 300-M)")
			}
			s := models.RatelimitScope(strings.TrimSpace(scope))
			if !s.Valid() {
				return fmt.Errorf("--scope must be %q or %q", models.RatelimitScopeLogin, models.RatelimitScopeAdmin)
			}
			return withDB(func(ctx context.Context, _ *config.Config, db *database.DB) error {
				c := &models.RatelimitConfig{Scope: s, Rate: rate}
				if err := database.NewRatelimitConfigRepository(db).Set(ctx, c); err != nil {
					return fmt.Errorf("set ratelimit config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rate limit for %s updated to %s.\n", s, rate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 10-M, 300-M, 1000-H) (required)")
	cmd.Flags().StringVar(&scope, "scope", string(models.RatelimitScopeLogin), "Scope: login or admin")
	return cmd
}
