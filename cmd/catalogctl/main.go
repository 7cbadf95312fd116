package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ncecere/fedramp_marketplace/internal/config"
)

var (
	flagConfig  string
	flagEnvFile string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Operate on the FedRAMP marketplace catalog",
	Long: `catalogctl groups products by provider against a catalog snapshot and
moves the inline config catalog into postgres or the blob store.

Examples:
  catalogctl group "AWS GovCloud" "Azure Government" --output yaml
  catalogctl seed --config ./config/catalog.yaml
  catalogctl publish --key catalog/snapshot.json
  catalogctl token --subject ops --ttl 30m`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to the catalog config file")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to a .env file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(groupCmd, seedCmd, publishCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigFile: flagConfig, EnvFile: flagEnvFile})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func commandLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
