package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
)

// newNormalizeCmd creates the normalize subcommand.
func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Re-parse the inventory CSV and overwrite the catalog snapshot",
		Long: `Normalize re-reads the inventory source, rebuilds the normalized catalog
and replaces the stored snapshot. Run it after the CSV changes; the snapshot
is otherwise reused as-is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			services, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer services.Close()

			ui.Step("Parsing %s", cfg.Catalog.SourcePath)
			start := time.Now()
			cat, err := services.Session.Rebuild(ctx)
			if err != nil {
				return err
			}

			summary := map[string]any{
				"source":   cfg.Catalog.SourcePath,
				"snapshot": cfg.Catalog.Snapshot.Driver,
				"stores":   len(cat.Stores),
				"items":    cat.ItemCount(),
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}

			ui.Success("Catalog normalized in %s", FormatDuration(time.Since(start)))
			ui.KeyValue("Stores", summary["stores"])
			ui.KeyValue("Items", summary["items"])
			ui.KeyValue("Snapshot", summary["snapshot"])
			return nil
		},
	}
}

// newWarmCmd creates the warm subcommand.
func newWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Build the catalog and every per-store embedding cache",
		Long: `Warm loads the catalog and embeds the inventory of every store, writing
the per-store embedding caches. Later runs reuse them until the inventory or
the embedding model changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
			defer cancel()

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			services, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer services.Close()

			ui.Step("Embedding store inventories")
			start := time.Now()

			var bar *mpb.Bar
			err = services.Session.Warm(ctx, func(done, total int, storeID string) {
				if bar == nil {
					bar = ui.ProgressBar("stores", int64(total))
					if bar == nil {
						return
					}
				}
				bar.SetCurrent(int64(done))
			})
			if err != nil {
				if bar != nil {
					bar.Abort(false)
				}
				return err
			}

			cat := services.Session.Catalog()
			summary := map[string]any{
				"stores":   len(cat.Stores),
				"items":    cat.ItemCount(),
				"model":    services.Session.EmbeddingModel(),
				"cacheDir": cfg.EmbeddingCacheDir(),
				"duration": time.Since(start).String(),
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}

			ui.Success("Warmed %d stores in %s", len(cat.Stores), FormatDuration(time.Since(start)))
			ui.KeyValue("Items", summary["items"])
			ui.KeyValue("Model", summary["model"])
			ui.KeyValue("Cache directory", summary["cacheDir"])
			return nil
		},
	}
}

// newClearCmd creates the clear subcommand.
func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the catalog snapshot and cached query embeddings",
		Long: `Clear removes the stored catalog snapshot (files, sqlite or postgres,
as configured) and every cached query embedding. The next run re-parses the
inventory source. Per-store embedding caches are left alone; they are
invalidated by fingerprint when the inventory changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			services, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer services.Close()

			if err := services.Session.ClearCaches(ctx); err != nil {
				return err
			}

			summary := map[string]any{
				"snapshot": cfg.Catalog.Snapshot.Driver,
				"cache":    cfg.Cache.Driver,
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			ui.Success("Cleared catalog snapshot and query cache")
			ui.KeyValue("Snapshot", summary["snapshot"])
			ui.KeyValue("Cache", summary["cache"])
			return nil
		},
	}
}
