package main

import (
	"fmt"

	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [pak]",
	Short: "List the entries of a package",
	Long: `List prints every entry in the package index with its compression,
stored and inflated size and archive part. Use --files to filter by glob.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := packageArg(args)
		if err != nil {
			return err
		}

		p, err := pak.Open(path)
		if err != nil {
			return err
		}
		defer p.Close()

		namesOnly, err := cmd.Flags().GetBool("names")
		if err != nil {
			return fmt.Errorf("failed to get names flag: %w", err)
		}

		if !namesOnly {
			fmt.Printf("%-60s %-6s %12s %12s %4s\n", "Name", "Codec", "Stored", "Size", "Part")
		}

		entries := p.Entries()
		var shown int
		var stored, size int64
		for _, e := range entries {
			if !cfg.Matches(e.Name) {
				continue
			}
			shown++
			stored += int64(e.SizeOnDisk)
			size += int64(e.UncompressedSize)

			if namesOnly {
				fmt.Println(e.Name)
				continue
			}
			fmt.Printf("%-60s %-6s %12s %12s %4d\n",
				e.Name, e.Compression, utils.Bytes(int64(e.SizeOnDisk)), utils.Bytes(int64(e.UncompressedSize)), e.ArchivePart)
		}

		if !namesOnly {
			fmt.Printf("\n%s of %s entries, %s stored, %s inflated (%s)\n",
				utils.Number(int64(shown)), utils.Number(int64(len(entries))),
				utils.Bytes(stored), utils.Bytes(size), utils.Ratio(stored, size))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("names", false, "print entry names only")
}
