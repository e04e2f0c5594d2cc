package database

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchantrell/bg3pak/internal/compress"
	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/resource"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(DefaultOptions(filepath.Join(t.TempDir(), "sub", "bg3.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, CreateSchema(context.Background(), db))
	return db
}

func sampleArena(t *testing.T) *resource.Arena {
	t.Helper()
	b := resource.NewBuilder(4)

	root, err := b.AddNode("Root", -1)
	require.NoError(t, err)
	require.NoError(t, b.AddRoot("Root", root))
	require.NoError(t, b.SetAttribute(root, "Name", resource.Attribute{Type: resource.TypeLSString, Value: resource.String("Foo")}))

	item, err := b.AddNode("Item", root)
	require.NoError(t, err)
	require.NoError(t, b.SetKey(item, "MapKey"))
	require.NoError(t, b.SetAttribute(item, "MapKey", resource.Attribute{Type: resource.TypeFixedString, Value: resource.String("k1")}))
	require.NoError(t, b.SetAttribute(item, "Pos", resource.Attribute{Type: resource.TypeVec3, Value: resource.Vec{1, 2, 3}}))
	require.NoError(t, b.SetAttribute(item, "Big", resource.Attribute{Type: resource.TypeULongLong, Value: resource.UInt(math.MaxUint64)}))
	require.NoError(t, b.SetAttribute(item, "On", resource.Attribute{Type: resource.TypeBool, Value: resource.Bool(true)}))

	cfg, err := b.AddNode("Config", -1)
	require.NoError(t, err)
	require.NoError(t, b.AddRoot("Config", cfg))

	_, err = b.AddNode("Setting", cfg)
	require.NoError(t, err)

	return b.Build()
}

func importSample(t *testing.T, db *Database, bi *BulkInserter, path string) int64 {
	t.Helper()
	ctx := context.Background()

	pkgID, err := bi.InsertPackage(ctx, path, pak.Header{Version: 18, NumParts: 1})
	require.NoError(t, err)

	entryID, err := bi.InsertEntry(ctx, pkgID, EntryRecord{
		Entry: pak.Entry{
			Name:             "globals.lsf",
			Offset:           40,
			SizeOnDisk:       100,
			UncompressedSize: 300,
			Compression:      compress.MethodLZ4,
		},
		Hash:          "abc",
		LSFVersion:    7,
		EngineVersion: "4.0.9.328",
	})
	require.NoError(t, err)

	rows, err := bi.InsertArena(ctx, entryID, sampleArena(t))
	require.NoError(t, err)
	assert.Equal(t, int64(4+5), rows)
	return entryID
}

func count(t *testing.T, db *Database, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func TestImportArena(t *testing.T) {
	db := openTestDB(t)
	bi := NewBulkInserter(db, &BulkInsertOptions{BatchSize: 2})
	entryID := importSample(t, db, bi, "/data/Gustav.pak")

	assert.Equal(t, 4, count(t, db, `SELECT COUNT(*) FROM nodes WHERE entry_id = ?`, entryID))
	assert.Equal(t, 5, count(t, db, `SELECT COUNT(*) FROM attributes WHERE entry_id = ?`, entryID))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM nodes WHERE region = 'Config'`))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM nodes WHERE parent_index IS NULL`))

	ctx := context.Background()
	var key string
	require.NoError(t, db.QueryRow(ctx, `SELECT node_key FROM nodes WHERE name = 'Item'`).Scan(&key))
	assert.Equal(t, "MapKey", key)

	var pos, big, typ string
	require.NoError(t, db.QueryRow(ctx, `SELECT value, type FROM attributes WHERE name = 'Pos'`).Scan(&pos, &typ))
	assert.JSONEq(t, `[1, 2, 3]`, pos)
	assert.Equal(t, "fvec3", typ)
	require.NoError(t, db.QueryRow(ctx, `SELECT value FROM attributes WHERE name = 'Big'`).Scan(&big))
	assert.Equal(t, "18446744073709551615", big)

	var on int
	require.NoError(t, db.QueryRow(ctx, `SELECT value FROM node_attributes WHERE attribute = 'On'`).Scan(&on))
	assert.Equal(t, 1, on)

	var ordinals []int
	rows, err := db.Query(ctx, `SELECT ordinal FROM attributes WHERE node_index = 1 ORDER BY ordinal`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var o int
		require.NoError(t, rows.Scan(&o))
		ordinals = append(ordinals, o)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, ordinals)
}

func TestReimportReplacesPackage(t *testing.T) {
	db := openTestDB(t)
	bi := NewBulkInserter(db, nil)

	importSample(t, db, bi, "/data/Gustav.pak")
	importSample(t, db, bi, "/data/Gustav.pak")
	importSample(t, db, bi, "/data/Shared.pak")

	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM packages`))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM entries`))
	assert.Equal(t, 8, count(t, db, `SELECT COUNT(*) FROM nodes`))
	assert.Equal(t, 10, count(t, db, `SELECT COUNT(*) FROM attributes`))
}

func TestTablesAndTableInfo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables, err := db.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"attributes", "entries", "node_attributes", "nodes", "packages"}, tables)

	cols, err := db.TableInfo(ctx, "nodes")
	require.NoError(t, err)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"entry_id", "node_index", "parent_index", "region", "name", "node_key"}, names)
	assert.True(t, cols[0].PrimaryKey)
	assert.True(t, cols[0].NotNull)
	assert.False(t, cols[5].NotNull)

	_, err = db.TableInfo(ctx, "missing")
	assert.Error(t, err)
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, CreateSchema(context.Background(), db))
}

func TestClosedDatabase(t *testing.T) {
	db, err := Open(DefaultOptions(filepath.Join(t.TempDir(), "closed.db")))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Exec(context.Background(), `SELECT 1`)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = db.Tables(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenValidatesOptions(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
	_, err = Open(&Options{})
	assert.Error(t, err)
}

func TestSQLValue(t *testing.T) {
	tests := []struct {
		attr resource.Attribute
		want any
	}{
		{resource.Attribute{Type: resource.TypeNone, Value: resource.None{}}, nil},
		{resource.Attribute{Type: resource.TypeInt, Value: resource.Int(-3)}, int64(-3)},
		{resource.Attribute{Type: resource.TypeUInt, Value: resource.UInt(3)}, int64(3)},
		{resource.Attribute{Type: resource.TypeDouble, Value: resource.Float(0.5)}, 0.5},
		{resource.Attribute{Type: resource.TypeBool, Value: resource.Bool(false)}, int64(0)},
		{resource.Attribute{Type: resource.TypeScratchBuffer, Value: resource.Bytes{1, 2}}, []byte{1, 2}},
		{resource.Attribute{Type: resource.TypeTranslatedString, Value: resource.TranslatedString{Version: 1, Handle: "h"}}, `{"handle":"h","version":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.attr.Type.String(), func(t *testing.T) {
			got, err := sqlValue(tt.attr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
