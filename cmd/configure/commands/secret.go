package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/database"
	"github.com/homula/shop-multipass/internal/models"
	"github.com/homula/shop-multipass/internal/shopify"
	"github.com/homula/shop-multipass/internal/validation"
	"github.com/spf13/cobra"
)

// openSecretStore returns the backend selected by SECRET_BACKEND.
func openSecretStore(cfg *config.Config, db *database.DB) database.SecretRepositoryInterface {
	if cfg.SecretBackend == config.SecretBackendMetafield {
		admin := shopify.NewAdminClient(cfg.ShopifyAPIVersion, &http.Client{Timeout: 10 * time.Second})
		return shopify.NewMetafieldSecretStore(admin, database.NewShopSessionRepository(db))
	}
	return database.NewMultipassSecretRepository(db)
}

// readSecret reads the first line of r. The secret is never taken from a flag.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if err := validation.ValidateSecret(secret); err != nil {
		return "", err
	}
	return secret, nil
}

// NewSecretCmd creates the secret command with set, status and list subcommands.
func NewSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage per-shop multipass secrets",
		Long:  "Store or inspect the multipass secret of a shop. Secrets are read from stdin and never printed.",
	}
	cmd.AddCommand(newSecretSetCmd())
	cmd.AddCommand(newSecretStatusCmd())
	cmd.AddCommand(newSecretListCmd())
	return cmd
}

func newSecretSetCmd() *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Store the multipass secret for a shop (read from stdin)",
		Example: "  printf '%s' \"$MULTIPASS_SECRET\" | configure secret set --shop demo.myshopify.com",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := validation.NormalizeShopDomain(shop)
			if err != nil {
				return err
			}
			secret, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				if err := openSecretStore(cfg, db).SetSecret(ctx, normalized, secret); err != nil {
					return fmt.Errorf("store secret: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Multipass secret stored for %s (%s backend).\n", normalized, cfg.SecretBackend)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "Shop domain, e.g. demo.myshopify.com (required)")
	return cmd
}

func newSecretStatusCmd() *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a shop has a multipass secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := validation.NormalizeShopDomain(shop)
			if err != nil {
				return err
			}
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				status, err := openSecretStore(cfg, db).Status(ctx, normalized)
				if err != nil {
					return fmt.Errorf("secret status: %w", err)
				}
				printSecretStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "Shop domain (required)")
	return cmd
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shops with a stored secret (postgres backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				if cfg.SecretBackend != config.SecretBackendPostgres {
					return fmt.Errorf("secret list is only available with the %s backend", config.SecretBackendPostgres)
				}
				statuses, err := database.NewMultipassSecretRepository(db).List(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(statuses) == 0 {
					fmt.Fprintln(out, "No multipass secrets stored.")
					return nil
				}
				for _, s := range statuses {
					printSecretStatus(out, s)
				}
				return nil
			})
		},
	}
}

func printSecretStatus(w io.Writer, s *models.SecretStatus) {
	if !s.Configured {
		fmt.Fprintf(w, "%s: not configured\n", s.Shop)
		return
	}
	if s.UpdatedAt != nil {
		fmt.Fprintf(w, "%s: configured (updated %s)\n", s.Shop, s.UpdatedAt.UTC().Format(time.RFC3339))
		return
	}
	fmt.Fprintf(w, "%s: configured\n", s.Shop)
}
