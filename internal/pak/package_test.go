package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchantrell/bg3pak/internal/compress"
	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/testutil"
)

var (
	globals = bytes.Repeat([]byte("LSOF globals "), 40)
	level1  = bytes.Repeat([]byte("LSOF level1 "), 40)
)

func sampleEntries() []testutil.PakEntry {
	return []testutil.PakEntry{
		{Name: "globals.lsf", Data: globals, Method: compress.MethodLZ4},
		{Name: "level1.lsf", Data: level1, Method: compress.MethodZlib},
		{Name: "Mods/Gustav/meta.lsx", Data: []byte("<save/>"), Method: compress.MethodNone},
		{Name: "Public/zstd.bin", Data: level1, Method: compress.MethodZstd},
	}
}

func TestOpenAndReadAllVersions(t *testing.T) {
	for _, version := range []uint32{Version15, Version16, Version18} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			data := testutil.BuildPak(t, version, sampleEntries())
			p, err := NewReader(bytes.NewReader(data), int64(len(data)))
			require.NoError(t, err)

			assert.Equal(t, version, p.Header().Version)
			assert.Equal(t, []string{"globals.lsf", "level1.lsf", "Mods/Gustav/meta.lsx", "Public/zstd.bin"}, p.ListEntries())

			for _, e := range sampleEntries() {
				got, err := p.ReadEntry(e.Name)
				require.NoError(t, err, e.Name)
				assert.Equal(t, e.Data, got, e.Name)
			}

			entry, err := p.Entry("level1.lsf")
			require.NoError(t, err)
			assert.Equal(t, compress.MethodZlib, entry.Compression)
			assert.Equal(t, uint64(len(level1)), entry.UncompressedSize)

			stored, err := p.Entry("Mods/Gustav/meta.lsx")
			require.NoError(t, err)
			assert.True(t, stored.Stored())
			assert.Equal(t, stored.SizeOnDisk, stored.UncompressedSize)
		})
	}
}

func TestOpenFromDiskWithArchiveParts(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePak(t, dir, "Gustav.pak", Version18, []testutil.PakEntry{
		{Name: "globals.lsf", Data: globals, Method: compress.MethodLZ4},
		{Name: "level1.lsf", Data: level1, Method: compress.MethodZstd, Part: 1},
	})

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, filepath.Join(dir, "Gustav_1.pak"), PartPath(path, 1))

	got, err := p.ReadEntry("level1.lsf")
	require.NoError(t, err)
	assert.Equal(t, level1, got)

	require.NoError(t, os.Remove(PartPath(path, 1)))
	_, err = p.ReadEntry("level1.lsf")
	assert.ErrorIs(t, err, errs.ErrIO)

	r, err := p.OpenEntry("globals.lsf")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, globals, buf.Bytes())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pak"))
	assert.ErrorIs(t, err, errs.ErrIO)
}

// countingReader records the furthest byte any read touched.
type countingReader struct {
	r     *bytes.Reader
	reads atomic.Int64
	high  atomic.Int64
}

func (c *countingReader) ReadAt(p []byte, off int64) (int, error) {
	c.reads.Add(1)
	if end := off + int64(len(p)); end > c.high.Load() {
		c.high.Store(end)
	}
	return c.r.ReadAt(p, off)
}

func TestReadEntryNotFoundDoesNotTouchFile(t *testing.T) {
	data := testutil.BuildPak(t, Version18, sampleEntries())
	cr := &countingReader{r: bytes.NewReader(data)}

	p, err := NewReader(cr, int64(len(data)))
	require.NoError(t, err)

	reads := cr.reads.Load()
	_, err = p.ReadEntry("Globals.lsf")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, reads, cr.reads.Load())
	assert.LessOrEqual(t, cr.high.Load(), int64(len(data)))
}

func TestOpenRejectsMalformedHeaders(t *testing.T) {
	good := testutil.BuildPak(t, Version18, sampleEntries())

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad signature", func(b []byte) []byte { copy(b, "LSPX"); return b }},
		{"unsupported version", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[4:], 10); return b }},
		{"file list beyond eof", func(b []byte) []byte { binary.LittleEndian.PutUint64(b[8:], uint64(len(b))); return b }},
		{"file list size beyond eof", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[16:], uint32(len(b))); return b }},
		{"too small", func(b []byte) []byte { return b[:20] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), good...))
			_, err := NewReader(bytes.NewReader(data), int64(len(data)))
			assert.ErrorIs(t, err, errs.ErrFormat)
		})
	}
}

func TestOpenRejectsTruncatedFileList(t *testing.T) {
	good := testutil.BuildPak(t, Version18, sampleEntries())
	offset := binary.LittleEndian.Uint64(good[8:])

	for cut := int(offset); cut < len(good); cut++ {
		data := append([]byte(nil), good[:cut]...)
		_, err := NewReader(bytes.NewReader(data), int64(len(data)))
		require.Error(t, err, "cut at %d", cut)
	}
}

// handBuiltV16 lays out a v16 package field by field: header, one stored
// entry, then the file list as numFiles, compressedSize and the LZ4 block.
func handBuiltV16(t *testing.T, payload []byte) []byte {
	t.Helper()

	rec := make([]byte, entrySizeV15)
	copy(rec, "Story/story.div")
	binary.LittleEndian.PutUint64(rec[256:], headerSizeV16)
	binary.LittleEndian.PutUint64(rec[264:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(rec[272:], 0)
	block := testutil.LZ4Block(t, rec)

	out := make([]byte, headerSizeV16)
	copy(out, Signature)
	binary.LittleEndian.PutUint32(out[4:], Version16)
	binary.LittleEndian.PutUint64(out[8:], uint64(headerSizeV16+len(payload)))
	binary.LittleEndian.PutUint32(out[16:], uint32(8+len(block)))
	binary.LittleEndian.PutUint16(out[38:], 1)
	out = append(out, payload...)
	out = binary.LittleEndian.AppendUint32(out, 1)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(block)))
	return append(out, block...)
}

func TestOpenReadsV16CompressedSize(t *testing.T) {
	payload := []byte("story payload")
	data := handBuiltV16(t, payload)

	p, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Story/story.div"}, p.ListEntries())

	got, err := p.ReadEntry("Story/story.div")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestOpenRejectsOversizedCompressedSize(t *testing.T) {
	data := handBuiltV16(t, []byte("x"))
	offset := binary.LittleEndian.Uint64(data[8:])
	binary.LittleEndian.PutUint32(data[offset+4:], uint32(len(data)))

	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, errs.ErrFormat)
}

func TestOpenRejectsUnknownCompression(t *testing.T) {
	data := testutil.BuildPak(t, Version18, []testutil.PakEntry{
		{Name: "weird.bin", Data: []byte("abc"), Method: compress.MethodNone, Flags: 0x07},
	})
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, errs.ErrFormat)
}

func TestOpenRejectsDuplicateNames(t *testing.T) {
	data := testutil.BuildPak(t, Version16, []testutil.PakEntry{
		{Name: "a.lsf", Data: []byte("one")},
		{Name: "a.lsf", Data: []byte("two")},
	})
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, errs.ErrFormat)
}

func TestReadEntryReportsCorruptPayload(t *testing.T) {
	data := testutil.BuildPak(t, Version18, sampleEntries())
	p, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	e, err := p.Entry("level1.lsf")
	require.NoError(t, err)

	// flip the zlib header so inflation fails
	data[e.Offset] ^= 0xFF
	_, err = p.ReadEntry("level1.lsf")
	assert.ErrorIs(t, err, errs.ErrDecompression)
	assert.Contains(t, err.Error(), "level1.lsf")
}

func TestEntryNamesAreOpaque(t *testing.T) {
	data := testutil.BuildPak(t, Version18, []testutil.PakEntry{
		{Name: "Public/../Shared/x.lsf", Data: []byte("x")},
	})
	p, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	_, err = p.ReadEntry("Shared/x.lsf")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := p.ReadEntry("Public/../Shared/x.lsf")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
