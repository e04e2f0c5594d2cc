package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jchantrell/bg3pak/internal/cache"
	"github.com/jchantrell/bg3pak/internal/database"
	"github.com/jchantrell/bg3pak/internal/lsf"
	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/resource"
	"github.com/jchantrell/bg3pak/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type ImportStats struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalEntries    int
	RecordedEntries int
	DecodedEntries  int
	RowsInserted    int64
	DecodeErrors    int
	DatabaseErrors  int
}

// decoded is one entry read and, for LSF resources, decoded by a worker
type decoded struct {
	record database.EntryRecord
	arena  *resource.Arena
	err    error
}

var importCmd = &cobra.Command{
	Use:   "import [pak]",
	Short: "Decode package resources into the SQLite database",
	Long: `Import records the package index in the database and decodes every LSF
entry selected by --files into node and attribute rows. Importing the same
package again replaces its previous rows.

Entries are decoded in parallel; rows are written by a single connection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := &ImportStats{StartTime: time.Now()}
		ctx := cmd.Context()

		path, err := packageArg(args)
		if err != nil {
			return err
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}

		p, err := pak.Open(path)
		if err != nil {
			return err
		}
		defer p.Close()

		db, err := database.Open(database.DefaultOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := database.CreateSchema(ctx, db); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		bi := database.NewBulkInserter(db, database.DefaultBulkInsertOptions())
		pkgID, err := bi.InsertPackage(ctx, path, p.Header())
		if err != nil {
			return err
		}

		var selected []pak.Entry
		for _, e := range p.Entries() {
			if cfg.Matches(e.Name) {
				selected = append(selected, e)
			}
		}
		stats.TotalEntries = len(selected)
		slog.Info("Importing package", "package", path, "entries", len(selected), "database", cfg.Database)

		results := make(chan decoded, cfg.Workers)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer close(results)
			return decodeEntries(gctx, p, selected, results)
		})

		progress := utils.NewProgress(len(selected), showProgress())
		for res := range results {
			progress.Increment(res.record.Entry.Name)
			if res.err != nil {
				slog.Error("Failed to decode entry", "entry", res.record.Entry.Name, "error", res.err)
				stats.DecodeErrors++
				continue
			}

			entryID, err := bi.InsertEntry(ctx, pkgID, res.record)
			if err != nil {
				slog.Error("Database insert failed", "entry", res.record.Entry.Name, "error", err)
				stats.DatabaseErrors++
				continue
			}
			stats.RecordedEntries++
			if res.arena == nil {
				continue
			}

			rows, err := bi.InsertArena(ctx, entryID, res.arena)
			stats.RowsInserted += rows
			if err != nil {
				slog.Error("Database insert failed", "entry", res.record.Entry.Name, "error", err)
				stats.DatabaseErrors++
				continue
			}
			stats.DecodedEntries++
		}
		progress.Finish()
		if err := g.Wait(); err != nil {
			return fmt.Errorf("import canceled: %w", err)
		}

		stats.EndTime = time.Now()
		duration := stats.EndTime.Sub(stats.StartTime)

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		var rowRate float64
		if s := duration.Seconds(); s > 0 {
			rowRate = float64(stats.RowsInserted) / s
		}

		fmt.Printf("Entries recorded: %s/%s\n", utils.Number(int64(stats.RecordedEntries)), utils.Number(int64(stats.TotalEntries)))
		fmt.Printf("Resources decoded: %s\n", utils.Number(int64(stats.DecodedEntries)))
		fmt.Printf("Rows inserted: %s\n", utils.Number(stats.RowsInserted))
		fmt.Printf("Decode errors: %d\n", stats.DecodeErrors)
		fmt.Printf("Database errors: %d\n", stats.DatabaseErrors)
		fmt.Printf("Total duration: %s\n", utils.Duration(duration))
		fmt.Printf("Insertion rate: %s rows/sec\n", utils.Rate(rowRate))
		fmt.Printf("Memory usage: %.2fmb\n", float64(memStats.Alloc)/1024.0/1024.0)
		fmt.Println("Try running: bg3pak query --tables")
		return nil
	},
}

// decodeEntries reads and decodes entries on cfg.Workers goroutines and
// sends one result per entry
func decodeEntries(ctx context.Context, p *pak.Package, entries []pak.Entry, out chan<- decoded) error {
	dec := lsf.NewDecoder(lsf.Options{})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			res := decodeEntry(p, dec, e)
			select {
			case out <- res:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

func decodeEntry(p *pak.Package, dec *lsf.Decoder, e pak.Entry) decoded {
	res := decoded{record: database.EntryRecord{Entry: e}}

	data, err := p.ReadEntry(e.Name)
	if err != nil {
		res.err = err
		return res
	}
	res.record.Hash = cache.Hash(data)

	if !strings.EqualFold(filepath.Ext(e.Name), ".lsf") {
		return res
	}

	h, err := lsf.DecodeHeader(data)
	if err != nil {
		res.err = err
		return res
	}
	res.record.LSFVersion = h.Version
	res.record.EngineVersion = utils.FormatEngineVersion(h.EngineVersion, h.Version >= lsf.VersionExtendedHeader)

	res.arena, res.err = dec.Decode(data)
	return res
}

func init() {
	rootCmd.AddCommand(importCmd)
}
