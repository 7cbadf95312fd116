package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ncecere/fedramp_marketplace/internal/app"
	"github.com/ncecere/fedramp_marketplace/internal/catalog"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/database"
	"github.com/ncecere/fedramp_marketplace/internal/redisclient"
)

var (
	flagGroupOutput string
	flagGroupAgency string
)

var groupCmd = &cobra.Command{
	Use:   "group [PRODUCT]...",
	Short: "Group product names by the providers that offer them",
	Long: `Group loads the configured catalog snapshot and prints one block per
provider listing any of the named products, providers sorted by name.

With --agency the product list of that agency is grouped instead.`,
	RunE: runGroup,
}

func init() {
	groupCmd.Flags().StringVarP(&flagGroupOutput, "output", "o", "text", "Output format: text, json or yaml")
	groupCmd.Flags().StringVar(&flagGroupAgency, "agency", "", "Group the products of the agency with this slug")
}

func runGroup(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(flagGroupOutput)
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output %q (supported: text, json, yaml)", flagGroupOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	opts := app.Options{Logger: commandLogger(cmd.ErrOrStderr())}

	if cfg.Catalog.Source == config.SourcePostgres {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		opts.DBPool = pool
	}
	if redisclient.Enabled(cfg.Redis) {
		client := redisclient.New(cfg.Redis)
		if err := redisclient.Ping(ctx, client); err != nil {
			return err
		}
		defer client.Close()
		opts.Redis = client
	}

	container, err := app.NewContainer(ctx, cfg, opts)
	if err != nil {
		return err
	}

	var result app.GroupResult
	if flagGroupAgency != "" {
		_, result, err = container.GroupAgency(ctx, flagGroupAgency)
	} else {
		result, err = container.Group(ctx, args)
	}
	if err != nil {
		return err
	}
	return writeGroups(cmd.OutOrStdout(), format, result.Providers)
}

func writeGroups(w io.Writer, format string, groups []catalog.GroupedProvider) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlGroups(groups)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeGroupsText(w, groups)
	}
}

type yamlEntry struct {
	Name     string `yaml:"name"`
	Slug     string `yaml:"slug"`
	Resolved bool   `yaml:"resolved"`
	Impact   string `yaml:"impact_level,omitempty"`
}

type yamlGroup struct {
	Name     string      `yaml:"name"`
	Slug     string      `yaml:"slug"`
	Products []yamlEntry `yaml:"products"`
}

func yamlGroups(groups []catalog.GroupedProvider) []yamlGroup {
	out := make([]yamlGroup, 0, len(groups))
	for _, g := range groups {
		entries := make([]yamlEntry, 0, len(g.Products))
		for _, e := range g.Products {
			entries = append(entries, yamlEntry{
				Name:     e.Product.Name,
				Slug:     e.Slug,
				Resolved: e.Resolved,
				Impact:   e.Product.ImpactLevel,
			})
		}
		out = append(out, yamlGroup{Name: g.Name, Slug: g.Slug, Products: entries})
	}
	return out
}

func writeGroupsText(w io.Writer, groups []catalog.GroupedProvider) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "no providers offer the requested products")
		return err
	}
	for i, g := range groups {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s (%s)\n", g.Name, g.Slug); err != nil {
			return err
		}
		for _, e := range g.Products {
			marker := ""
			if !e.Resolved {
				marker = " [no product record]"
			}
			if _, err := fmt.Fprintf(w, "  - %s%s\n", e.Product.Name, marker); err != nil {
				return err
			}
		}
	}
	return nil
}
