package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schemaStatements creates the store. Node and attribute rows are keyed by
// the arena index of their node within an entry.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS packages (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    version INTEGER NOT NULL,
    flags INTEGER NOT NULL,
    priority INTEGER NOT NULL,
    num_parts INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY,
    package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    archive_part INTEGER NOT NULL,
    data_offset INTEGER NOT NULL,
    size_on_disk INTEGER NOT NULL,
    uncompressed_size INTEGER NOT NULL,
    compression TEXT NOT NULL,
    hash TEXT,
    lsf_version INTEGER,
    engine_version TEXT,
    UNIQUE (package_id, name)
)`,
	`CREATE TABLE IF NOT EXISTS nodes (
    entry_id INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
    node_index INTEGER NOT NULL,
    parent_index INTEGER,
    region TEXT NOT NULL,
    name TEXT NOT NULL,
    node_key TEXT,
    PRIMARY KEY (entry_id, node_index)
)`,
	`CREATE TABLE IF NOT EXISTS attributes (
    entry_id INTEGER NOT NULL,
    node_index INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    value,
    PRIMARY KEY (entry_id, node_index, ordinal),
    FOREIGN KEY (entry_id, node_index) REFERENCES nodes(entry_id, node_index) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(entry_id, parent_index)`,
	`CREATE INDEX IF NOT EXISTS idx_attributes_name ON attributes(name)`,
	`CREATE VIEW IF NOT EXISTS node_attributes AS
SELECT e.name AS entry, n.region, n.node_index, n.name AS node, a.name AS attribute, a.type, a.value
FROM nodes n
JOIN entries e ON e.id = n.entry_id
JOIN attributes a ON a.entry_id = n.entry_id AND a.node_index = n.node_index`,
}

// CreateSchema creates tables, indexes and views when they are missing
func CreateSchema(ctx context.Context, db *Database) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}

	slog.Debug("Schema ready", "statements", len(schemaStatements))
	return nil
}
