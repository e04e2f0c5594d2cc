package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchantrell/bg3pak/internal/cache"
	"github.com/jchantrell/bg3pak/internal/compress"
	"github.com/jchantrell/bg3pak/internal/config"
	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/lsf"
	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/resource"
	"github.com/jchantrell/bg3pak/internal/testutil"
)

func TestPackageAndEntry(t *testing.T) {
	cfg = &config.Config{Entry: "Globals.lsf"}

	path, entry, err := packageAndEntry([]string{"a.pak", "x.lsf"}, cfg.Entry)
	require.NoError(t, err)
	assert.Equal(t, "a.pak", path)
	assert.Equal(t, "x.lsf", entry)

	path, entry, err = packageAndEntry([]string{"a.pak"}, cfg.Entry)
	require.NoError(t, err)
	assert.Equal(t, "a.pak", path)
	assert.Equal(t, "Globals.lsf", entry)

	_, _, err = packageAndEntry(nil, "")
	assert.Error(t, err)

	cfg.Package = "/data/Save.pak"
	path, entry, err = packageAndEntry([]string{"level1.lsf"}, cfg.Entry)
	require.NoError(t, err)
	assert.Equal(t, "/data/Save.pak", path)
	assert.Equal(t, "level1.lsf", entry)

	path, entry, err = packageAndEntry([]string{"Other.PAK"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Other.PAK", path)
	assert.Empty(t, entry)
}

func samplePak(t *testing.T) *pak.Package {
	t.Helper()
	globals := testutil.BuildLSF(t, testutil.LSFOptions{Version: 7, Extended: true, Method: compress.MethodLZ4},
		[]testutil.LSFNode{{Name: "Globals", Parent: -1}})
	path := testutil.WritePak(t, t.TempDir(), "Save.pak", 18, []testutil.PakEntry{
		{Name: "Globals.lsf", Data: globals, Method: compress.MethodZlib},
		{Name: "meta.lsx", Data: []byte("<save/>"), Method: compress.MethodNone},
		{Name: "broken.lsf", Data: []byte("LSOF"), Method: compress.MethodNone},
	})
	p, err := pak.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestExtractEntrySkipsUnchanged(t *testing.T) {
	p := samplePak(t)
	out := t.TempDir()
	e, err := p.Entry("meta.lsx")
	require.NoError(t, err)

	stats := &ExtractionStats{}
	require.NoError(t, extractEntry(p, e, out, stats))
	require.NoError(t, extractEntry(p, e, out, stats))
	assert.Equal(t, int64(1), stats.Written.Load())
	assert.Equal(t, int64(1), stats.Unchanged.Load())

	data, err := os.ReadFile(filepath.Join(out, "meta.lsx"))
	require.NoError(t, err)
	assert.Equal(t, "<save/>", string(data))

	e.Name = "../outside.lsx"
	assert.Error(t, extractEntry(p, e, out, stats))
}

func TestDecodeEntry(t *testing.T) {
	p := samplePak(t)
	dec := lsf.NewDecoder(lsf.Options{})

	e, err := p.Entry("Globals.lsf")
	require.NoError(t, err)
	res := decodeEntry(p, dec, e)
	require.NoError(t, res.err)
	require.NotNil(t, res.arena)
	assert.Equal(t, []string{"Globals"}, res.arena.RootNames())
	assert.Equal(t, uint32(7), res.record.LSFVersion)
	assert.Equal(t, "0.0.0.0", res.record.EngineVersion)

	data, err := p.ReadEntry("Globals.lsf")
	require.NoError(t, err)
	assert.Equal(t, cache.Hash(data), res.record.Hash)

	e, err = p.Entry("meta.lsx")
	require.NoError(t, err)
	res = decodeEntry(p, dec, e)
	require.NoError(t, res.err)
	assert.Nil(t, res.arena)
	assert.NotEmpty(t, res.record.Hash)

	e, err = p.Entry("broken.lsf")
	require.NoError(t, err)
	res = decodeEntry(p, dec, e)
	assert.ErrorIs(t, res.err, errs.ErrFormat)
}

func TestWriteOutput(t *testing.T) {
	b := resource.NewBuilder(1)
	root, err := b.AddNode("Root", -1)
	require.NoError(t, err)
	require.NoError(t, b.AddRoot("Root", root))
	tree, err := resource.SerializeAll(b.Build(), resource.ModeShape)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeOutput(path, "json", tree))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Root":{"attributes":{},"children":{}}}`, string(data))
}
