package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/homula/shop-multipass/internal/config"
	"github.com/homula/shop-multipass/internal/database"
	"github.com/homula/shop-multipass/internal/multipass"
	"github.com/homula/shop-multipass/internal/validation"
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command for checking a shop's multipass setup.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or verify multipass tokens with a shop's stored secret",
	}
	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenVerifyCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var shop string
	var customer multipass.Customer
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token and print the storefront login URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := validation.NormalizeShopDomain(shop)
			if err != nil {
				return err
			}
			if err := validation.Validate.Struct(customer); err != nil {
				return fmt.Errorf("invalid customer: %s", validation.FieldErrors(err))
			}
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				svc := multipass.NewService(openSecretStore(cfg, db))
				token, err := svc.IssueForShop(ctx, normalized, customer.Claims(svc.Now()))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Token: %s\n", token)
				fmt.Fprintf(out, "URL:   %s\n", multipass.LoginURL(normalized, token))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "Shop domain (required)")
	cmd.Flags().StringVar(&customer.Email, "email", "", "Customer email (required)")
	cmd.Flags().StringVar(&customer.FirstName, "first-name", "", "Customer first name")
	cmd.Flags().StringVar(&customer.LastName, "last-name", "", "Customer last name")
	cmd.Flags().StringVar(&customer.Identifier, "identifier", "", "Unique customer identifier")
	cmd.Flags().StringVar(&customer.TagString, "tags", "", "Comma-separated customer tags")
	cmd.Flags().StringVar(&customer.ReturnTo, "return-to", "", "URL to redirect to after login")
	cmd.Flags().StringVar(&customer.RemoteIP, "remote-ip", "", "Client IP the storefront should bind the session to")
	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	var shop, token string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a token and print its claims (applies MULTIPASS_MAX_AGE, does not consume the token)",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := validation.NormalizeShopDomain(shop)
			if err != nil {
				return err
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			return withDB(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				claims, err := multipass.NewService(openSecretStore(cfg, db), verifyOptions(cfg)...).VerifyForShop(ctx, normalized, token)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(claims)
			})
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "Shop domain (required)")
	cmd.Flags().StringVar(&token, "token", "", "Token to verify (required)")
	return cmd
}

// verifyOptions applies the server's token age policy. The replay guard is left out
// so that checking a token from the CLI does not use it up.
func verifyOptions(cfg *config.Config) []multipass.Option {
	return []multipass.Option{multipass.WithMaxAge(cfg.MultipassMaxAge)}
}
