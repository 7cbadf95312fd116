package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ncecere/fedramp_marketplace/internal/auth"
	"github.com/ncecere/fedramp_marketplace/internal/config"
)

var (
	flagTokenSubject string
	flagTokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the /v1/admin routes",
	Long: `Token signs an admin bearer token with admin.token_secret
(CATALOG_ADMIN_TOKEN_SECRET). Send it as "Authorization: Bearer <token>".`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&flagTokenSubject, "subject", "catalogctl", "Subject recorded in the token")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 0, "Token lifetime (default admin.token_ttl)")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return issueToken(cmd.OutOrStdout(), cfg.Admin, flagTokenSubject, flagTokenTTL)
}

func issueToken(w io.Writer, cfg config.AdminConfig, subject string, ttl time.Duration) error {
	if !cfg.Enabled() {
		return fmt.Errorf("missing required configuration: CATALOG_ADMIN_TOKEN_SECRET")
	}
	tm, err := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL, cfg.Issuer)
	if err != nil {
		return err
	}
	issued, err := tm.Issue(subject, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, issued.Token)
	return err
}
