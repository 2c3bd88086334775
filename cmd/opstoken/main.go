package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/claim-approval-service/internal/auth"
	"github.com/spec-kit/claim-approval-service/internal/config"
	"github.com/spec-kit/claim-approval-service/internal/domain"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		operator string
		role     string
		ttl      int
	)
	cmd := &cobra.Command{
		Use:          "opstoken",
		Short:        "Mint an operator token for the approval monitoring routes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTLMinutes
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl)
			token, expiresAt, err := tokens.GenerateToken(operator, domain.OperatorRole(strings.ToUpper(role)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator name recorded as the token subject")
	cmd.Flags().StringVar(&role, "role", string(domain.OperatorRoleViewer), "VIEWER or ADMIN")
	cmd.Flags().IntVar(&ttl, "ttl-minutes", 0, "token lifetime; defaults to AUTH_ACCESS_TOKEN_TTL_MINUTES")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
