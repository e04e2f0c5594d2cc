package main

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jchantrell/bg3pak/internal/cache"
	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type ExtractionStats struct {
	StartTime time.Time
	EndTime   time.Time
	Total     int
	Written   atomic.Int64
	Unchanged atomic.Int64
	Failed    atomic.Int64
	Bytes     atomic.Int64
}

var extractCmd = &cobra.Command{
	Use:   "extract [pak]",
	Short: "Extract package entries to disk",
	Long: `Extract inflates every entry selected by --files and writes it below the
output directory, keeping the entry's path. Without --output, entries go to a
per-package directory in ~/.bg3pak/cache.

Files whose content hash already matches are left untouched, so repeated runs
only rewrite what changed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := &ExtractionStats{StartTime: time.Now()}

		path, err := packageArg(args)
		if err != nil {
			return err
		}

		p, err := pak.Open(path)
		if err != nil {
			return err
		}
		defer p.Close()

		outDir := cfg.Output
		if outDir == "" {
			outDir = cache.New("").PackageDir(path)
		}
		if err := cache.EnsureDir(outDir); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		var selected []pak.Entry
		for _, e := range p.Entries() {
			if cfg.Matches(e.Name) {
				selected = append(selected, e)
			}
		}
		stats.Total = len(selected)
		slog.Info("Extracting entries", "package", path, "entries", len(selected), "output", outDir, "workers", cfg.Workers)

		progress := utils.NewProgress(len(selected), showProgress())

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(cfg.Workers)
		for _, e := range selected {
			e := e
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				defer progress.Increment(e.Name)

				if err := extractEntry(p, e, outDir, stats); err != nil {
					slog.Error("Failed to extract entry", "entry", e.Name, "error", err)
					stats.Failed.Add(1)
				}
				return nil
			})
		}
		err = g.Wait()
		progress.Finish()
		if err != nil {
			return fmt.Errorf("extraction canceled: %w", err)
		}

		stats.EndTime = time.Now()
		duration := stats.EndTime.Sub(stats.StartTime)
		var rate float64
		if s := duration.Seconds(); s > 0 {
			rate = float64(stats.Bytes.Load()) / s
		}

		fmt.Printf("Entries written: %s/%s\n", utils.Number(stats.Written.Load()), utils.Number(int64(stats.Total)))
		fmt.Printf("Entries unchanged: %s\n", utils.Number(stats.Unchanged.Load()))
		fmt.Printf("Entries failed: %s\n", utils.Number(stats.Failed.Load()))
		fmt.Printf("Bytes written: %s\n", utils.Bytes(stats.Bytes.Load()))
		fmt.Printf("Total duration: %s\n", utils.Duration(duration))
		fmt.Printf("Write rate: %s bytes/sec\n", utils.Rate(rate))
		fmt.Printf("Output: %s\n", outDir)

		if n := stats.Failed.Load(); n > 0 {
			return fmt.Errorf("%d of %d entries failed to extract", n, stats.Total)
		}
		return nil
	},
}

func extractEntry(p *pak.Package, e pak.Entry, outDir string, stats *ExtractionStats) error {
	target, err := cache.EntryPath(outDir, e.Name)
	if err != nil {
		return err
	}

	data, err := p.ReadEntry(e.Name)
	if err != nil {
		return err
	}

	digest := cache.Hash(data)
	if cache.Unchanged(target, digest) {
		slog.Debug("Entry unchanged", "entry", e.Name, "hash", digest)
		stats.Unchanged.Add(1)
		return nil
	}

	if err := cache.WriteFile(target, data); err != nil {
		return err
	}
	stats.Written.Add(1)
	stats.Bytes.Add(int64(len(data)))
	slog.Debug("Extracted entry", "entry", e.Name, "bytes", len(data), "hash", digest)
	return nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("output", "o", "", "output directory (default: per-package cache directory)")
}
