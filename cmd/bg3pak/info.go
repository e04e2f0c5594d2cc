package main

import (
	"fmt"
	"strings"

	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/lsf"
	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/utils"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [pak] [entry]",
	Short: "Show package header and LSF resource details",
	Long: `Info prints the package header. When an entry is named, it also prints
the entry descriptor and, for LSF resources, the resource header, section
sizes and region names.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, entry, err := packageAndEntry(args, "")
		if err != nil {
			return err
		}

		p, err := pak.Open(path)
		if err != nil {
			return err
		}
		defer p.Close()

		h := p.Header()
		fmt.Printf("Package:   %s\n", path)
		fmt.Printf("Version:   %d\n", h.Version)
		fmt.Printf("Flags:     0x%02x\n", h.Flags)
		fmt.Printf("Priority:  %d\n", h.Priority)
		fmt.Printf("Parts:     %d\n", max(h.NumParts, 1))
		fmt.Printf("Entries:   %s\n", utils.Number(int64(len(p.Entries()))))

		if entry == "" {
			return nil
		}

		e, err := p.Entry(entry)
		if err != nil {
			return err
		}
		fmt.Printf("\nEntry:     %s\n", e.Name)
		fmt.Printf("Codec:     %s\n", e.Compression)
		fmt.Printf("Part:      %d\n", e.ArchivePart)
		fmt.Printf("Offset:    0x%x\n", e.Offset)
		fmt.Printf("Stored:    %s\n", utils.Bytes(int64(e.SizeOnDisk)))
		fmt.Printf("Size:      %s\n", utils.Bytes(int64(e.UncompressedSize)))

		data, err := p.ReadEntry(entry)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(string(data[:min(len(data), 4)]), lsf.Signature) {
			return nil
		}

		lh, err := lsf.DecodeHeader(data)
		if err != nil {
			return err
		}
		method, _ := lh.Compression()
		m := lh.Metadata
		fmt.Printf("\nLSF:       v%d\n", lh.Version)
		fmt.Printf("Engine:    %s\n", utils.FormatEngineVersion(lh.EngineVersion, lh.Version >= lsf.VersionExtendedHeader))
		fmt.Printf("Codec:     %s\n", method)
		fmt.Printf("Extended:  %t\n", lh.Extended())
		fmt.Printf("Sections:  strings %s, nodes %s, attributes %s, values %s, keys %s\n",
			utils.Bytes(int64(m.Strings.Uncompressed)), utils.Bytes(int64(m.Nodes.Uncompressed)),
			utils.Bytes(int64(m.Attributes.Uncompressed)), utils.Bytes(int64(m.Values.Uncompressed)),
			utils.Bytes(int64(m.Keys.Uncompressed)))

		arena, err := lsf.NewDecoder(lsf.Options{}).Decode(data)
		if err != nil {
			return errs.WithName(err, entry)
		}
		fmt.Printf("Nodes:     %s\n", utils.Number(int64(arena.Len())))
		fmt.Printf("Regions:   %s\n", strings.Join(arena.RootNames(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
