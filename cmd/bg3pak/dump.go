package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jchantrell/bg3pak/internal/handle"
	"github.com/jchantrell/bg3pak/internal/nested"
	"github.com/jchantrell/bg3pak/internal/resource"
	"github.com/jchantrell/bg3pak/internal/utils"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [pak] [entry]",
	Short: "Decode an LSF resource and print its tree",
	Long: `Dump decodes one LSF entry (Globals.lsf unless configured otherwise) and
writes every region, or the region named by --region, as a nested document.

In full mode attribute values are rendered; in shape mode every attribute is
rendered as true so that only the structure remains.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		path, entry, err := packageAndEntry(args, cfg.Entry)
		if err != nil {
			return err
		}
		region, err := cmd.Flags().GetString("region")
		if err != nil {
			return fmt.Errorf("failed to get region flag: %w", err)
		}

		mode, err := resource.ParseMode(cfg.Mode)
		if err != nil {
			return err
		}
		format, err := nested.ParseFormat(cfg.Format)
		if err != nil {
			return err
		}

		pkg, err := handle.OpenPackage(path)
		if err != nil {
			return err
		}
		defer pkg.Release()

		res, err := handle.LoadResource(pkg, entry)
		if err != nil {
			return err
		}
		defer res.Release()

		tree, err := handle.SerializeWith(res, region, resource.Serializer{Mode: mode, MaxDepth: cfg.MaxDepth})
		if err != nil {
			return err
		}

		if err := writeOutput(cfg.Output, format, tree); err != nil {
			return err
		}

		slog.Info("Dumped resource",
			"entry", entry,
			"region", region,
			"mode", mode,
			"format", format,
			"duration", utils.Duration(time.Since(start)))
		return nil
	},
}

// writeOutput encodes v to path, or to stdout when path is empty or "-"
func writeOutput(path string, format nested.Format, v any) error {
	if path == "" || path == "-" {
		return encodeAndFlush(bufio.NewWriter(os.Stdout), format, v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := encodeAndFlush(w, format, v); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func encodeAndFlush(w *bufio.Writer, format nested.Format, v any) error {
	if err := nested.Encode(w, format, v); err != nil {
		return err
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().String("region", "", "serialize only this region")
	dumpCmd.Flags().String("mode", "", "serialization mode (full, shape)")
	dumpCmd.Flags().String("format", "", "output format (json, yaml, cbor)")
	dumpCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}
