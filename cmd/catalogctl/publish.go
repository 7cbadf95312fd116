package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncecere/fedramp_marketplace/internal/snapshot"
	"github.com/ncecere/fedramp_marketplace/internal/storage/blob"
)

var flagPublishKey string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write the inline config catalog to the blob store",
	Long: `Publish encodes the catalog section of the config file as a snapshot
document and stores it under --key (default catalog.blob_key) in the
configured storage backend, where the blob catalog source reads it.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&flagPublishKey, "key", "", "Blob key to write (default catalog.blob_key)")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	snap, err := snapshot.NewConfigLoader(cfg.Catalog).Load(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, snap.Document()); err != nil {
		return err
	}

	store, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	key := flagPublishKey
	if key == "" {
		key = cfg.Catalog.BlobKey
	}
	info, err := store.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"snapshot-id": snap.ID.String()},
	})
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "published snapshot %s to %s (%d bytes)\n", snap.ID, info.Key, info.Size)
	return nil
}
