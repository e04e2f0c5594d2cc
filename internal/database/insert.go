package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/resource"
)

// BulkInserter writes packages, entries and decoded trees with transaction batching
type BulkInserter struct {
	db        *Database
	batchSize int
}

// BulkInsertOptions configures bulk insertion behavior
type BulkInsertOptions struct {
	// BatchSize determines how many nodes are written per transaction
	BatchSize int
}

// DefaultBulkInsertOptions returns sensible defaults for bulk insertion
func DefaultBulkInsertOptions() *BulkInsertOptions {
	return &BulkInsertOptions{
		BatchSize: 1000,
	}
}

// NewBulkInserter creates a new bulk inserter with the given database and options
func NewBulkInserter(db *Database, options *BulkInsertOptions) *BulkInserter {
	if options == nil {
		options = DefaultBulkInsertOptions()
	}
	batch := options.BatchSize
	if batch <= 0 {
		batch = DefaultBulkInsertOptions().BatchSize
	}
	return &BulkInserter{db: db, batchSize: batch}
}

// EntryRecord is one package entry plus what was learned while decoding it
type EntryRecord struct {
	Entry pak.Entry
	// Hash is the blake3 digest of the inflated entry
	Hash string
	// LSFVersion and EngineVersion are zero for entries that are not LSF resources
	LSFVersion    uint32
	EngineVersion string
}

// InsertPackage records a package, replacing any earlier import of the same
// path together with its entries, and returns its id
func (bi *BulkInserter) InsertPackage(ctx context.Context, path string, h pak.Header) (int64, error) {
	tx, err := bi.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE path = ?`, path); err != nil {
		return 0, fmt.Errorf("removing previous import of %s: %w", path, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO packages (path, version, flags, priority, num_parts) VALUES (?, ?, ?, ?, ?)`,
		path, h.Version, h.Flags, h.Priority, h.NumParts)
	if err != nil {
		return 0, fmt.Errorf("inserting package %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading package id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

// InsertEntry records one entry of a package and returns its id
func (bi *BulkInserter) InsertEntry(ctx context.Context, packageID int64, rec EntryRecord) (int64, error) {
	e := rec.Entry
	res, err := bi.db.Exec(ctx, `
		INSERT INTO entries (package_id, name, archive_part, data_offset, size_on_disk,
			uncompressed_size, compression, hash, lsf_version, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		packageID, e.Name, e.ArchivePart, int64(e.Offset), int64(e.SizeOnDisk),
		int64(e.UncompressedSize), e.Compression.String(),
		nullString(rec.Hash), nullUint(rec.LSFVersion), nullString(rec.EngineVersion))
	if err != nil {
		return 0, fmt.Errorf("inserting entry %s: %w", e.Name, err)
	}
	return res.LastInsertId()
}

// InsertArena writes every node and attribute of arena under entryID and
// returns the number of rows written
func (bi *BulkInserter) InsertArena(ctx context.Context, entryID int64, arena *resource.Arena) (int64, error) {
	regions, err := regionsOf(arena)
	if err != nil {
		return 0, err
	}

	var rows int64
	for start := 0; start < arena.Len(); start += bi.batchSize {
		end := min(start+bi.batchSize, arena.Len())
		n, err := bi.insertBatch(ctx, entryID, arena, regions, start, end)
		if err != nil {
			return rows, fmt.Errorf("inserting nodes %d-%d: %w", start, end-1, err)
		}
		rows += n
	}

	slog.Debug("Inserted resource", "entry_id", entryID, "nodes", arena.Len(), "rows", rows)
	return rows, nil
}

// insertBatch writes nodes [start, end) within a transaction
func (bi *BulkInserter) insertBatch(ctx context.Context, entryID int64, arena *resource.Arena, regions []string, start, end int) (int64, error) {
	tx, err := bi.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (entry_id, node_index, parent_index, region, name, node_key) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing node statement: %w", err)
	}
	defer nodeStmt.Close()

	attrStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attributes (entry_id, node_index, ordinal, name, type, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing attribute statement: %w", err)
	}
	defer attrStmt.Close()

	var rows int64
	for i := start; i < end; i++ {
		n, err := arena.Node(i)
		if err != nil {
			return rows, err
		}

		var parent any
		if n.Parent() >= 0 {
			parent = n.Parent()
		}
		if _, err := nodeStmt.ExecContext(ctx, entryID, i, parent, regions[i], n.Name(), nullString(n.Key())); err != nil {
			return rows, fmt.Errorf("inserting node %d: %w", i, err)
		}
		rows++

		for ordinal, attr := range n.Attributes() {
			value, err := sqlValue(attr.Attribute)
			if err != nil {
				return rows, fmt.Errorf("converting attribute %s of node %d: %w", attr.Name, i, err)
			}
			if _, err := attrStmt.ExecContext(ctx, entryID, i, ordinal, attr.Name, attr.Type.String(), value); err != nil {
				return rows, fmt.Errorf("inserting attribute %s of node %d: %w", attr.Name, i, err)
			}
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return rows, fmt.Errorf("committing transaction: %w", err)
	}
	return rows, nil
}

// regionsOf names the region every node belongs to. Parents always precede
// their children, so one forward pass suffices.
func regionsOf(arena *resource.Arena) ([]string, error) {
	regions := make([]string, arena.Len())
	for i := range regions {
		n, err := arena.Node(i)
		if err != nil {
			return nil, err
		}
		if p := n.Parent(); p >= 0 {
			regions[i] = regions[p]
		} else {
			regions[i] = n.Name()
		}
	}
	return regions, nil
}

// sqlValue maps an attribute onto the closest SQLite storage class.
// Composite values are stored as JSON text.
func sqlValue(attr resource.Attribute) (any, error) {
	switch v := attr.Value.(type) {
	case resource.None:
		return nil, nil
	case resource.Int:
		return int64(v), nil
	case resource.UInt:
		if uint64(v) > math.MaxInt64 {
			return strconv.FormatUint(uint64(v), 10), nil
		}
		return int64(v), nil
	case resource.Float:
		return float64(v), nil
	case resource.Bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case resource.String:
		return string(v), nil
	case resource.Bytes:
		return []byte(v), nil
	case resource.UUID:
		return v.String(), nil
	default:
		data, err := json.Marshal(resource.Render(attr))
		if err != nil {
			return nil, fmt.Errorf("serializing %s value to JSON: %w", attr.Type, err)
		}
		return string(data), nil
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUint(v uint32) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
