package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivghost/ragtool/internal/infra/config"
	pkgauth "github.com/ivghost/ragtool/pkg/auth"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint a bearer token for the HTTP API",
		Long: `Mint a bearer token signed with RAGTOOL_AUTH_SECRET.

Example:
  curl -H "Authorization: Bearer $(ragtool token ops)" localhost:7860/api/v1/status`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSecret == "" {
				return errors.New("RAGTOOL_AUTH_SECRET is not set")
			}
			token, err := pkgauth.GenerateJWT([]byte(cfg.AuthSecret), args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", pkgauth.DefaultJWTExpiry, "token lifetime")
	return cmd
}
