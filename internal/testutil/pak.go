package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jchantrell/bg3pak/internal/compress"
)

// PakEntry is one file to place in a test package
type PakEntry struct {
	Name   string
	Data   []byte
	Method compress.Method
	// Part places the data in <base>_<Part>.pak when non-zero
	Part uint32
	// Flags overrides the on-disk flag byte when non-zero
	Flags uint32
}

type builtEntry struct {
	PakEntry
	offset     uint64
	sizeOnDisk uint64
	size       uint64
}

// BuildPak returns the bytes of a single-part package. version is 15, 16 or 18.
func BuildPak(t testing.TB, version uint32, entries []PakEntry) []byte {
	t.Helper()
	main, _ := buildPak(t, version, entries)
	return main
}

// WritePak writes a package and any extra archive parts into dir and returns
// the path of the main file.
func WritePak(t testing.TB, dir, name string, version uint32, entries []PakEntry) string {
	t.Helper()

	main, parts := buildPak(t, version, entries)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, main, 0o644); err != nil {
		t.Fatalf("writing package: %v", err)
	}

	ext := filepath.Ext(path)
	for n, data := range parts {
		partPath := fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
		if err := os.WriteFile(partPath, data, 0o644); err != nil {
			t.Fatalf("writing part %d: %v", n, err)
		}
	}
	return path
}

func buildPak(t testing.TB, version uint32, entries []PakEntry) ([]byte, map[uint32][]byte) {
	t.Helper()

	headerSize := 38
	if version >= 16 {
		headerSize = 40
	}

	var body bytes.Buffer
	body.Write(make([]byte, headerSize))

	parts := map[uint32][]byte{}
	built := make([]builtEntry, len(entries))
	for i, e := range entries {
		stored := Compress(t, e.Method, e.Data, false)
		b := builtEntry{PakEntry: e, sizeOnDisk: uint64(len(stored))}
		if e.Method != compress.MethodNone {
			b.size = uint64(len(e.Data))
		}
		if e.Part == 0 {
			b.offset = uint64(body.Len())
			body.Write(stored)
		} else {
			b.offset = uint64(len(parts[e.Part]))
			parts[e.Part] = append(parts[e.Part], stored...)
		}
		built[i] = b
	}

	var table bytes.Buffer
	for _, b := range built {
		name := make([]byte, 256)
		copy(name, b.Name)
		table.Write(name)

		flags := uint32(b.Method)
		if b.Flags != 0 {
			flags = b.Flags
		}

		if version >= 18 {
			le32(&table, uint32(b.offset))
			le16(&table, uint16(b.offset>>32))
			table.WriteByte(byte(b.Part))
			table.WriteByte(byte(flags))
			le32(&table, uint32(b.sizeOnDisk))
			le32(&table, uint32(b.size))
		} else {
			le64(&table, b.offset)
			le64(&table, b.sizeOnDisk)
			le64(&table, b.size)
			le32(&table, b.Part)
			le32(&table, flags)
			le32(&table, 0)
			le32(&table, 0)
		}
	}

	packed := LZ4Block(t, table.Bytes())
	fileListOffset := uint64(body.Len())

	var list bytes.Buffer
	le32(&list, uint32(len(built)))
	le32(&list, uint32(len(packed)))
	list.Write(packed)
	body.Write(list.Bytes())

	out := body.Bytes()
	copy(out, "LSPK")
	binary.LittleEndian.PutUint32(out[4:], version)
	binary.LittleEndian.PutUint64(out[8:], fileListOffset)
	binary.LittleEndian.PutUint32(out[16:], uint32(list.Len()))
	out[20] = 0
	out[21] = 0
	if version >= 16 {
		binary.LittleEndian.PutUint16(out[38:], uint16(len(parts)+1))
	}

	return out, parts
}

func le16(b *bytes.Buffer, v uint16) { _ = binary.Write(b, binary.LittleEndian, v) }
func le32(b *bytes.Buffer, v uint32) { _ = binary.Write(b, binary.LittleEndian, v) }
func le64(b *bytes.Buffer, v uint64) { _ = binary.Write(b, binary.LittleEndian, v) }
