package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jchantrell/bg3pak/internal/database"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Query the SQLite database directly from command line",
	Long: `Query executes SQL against imported packages, lists available tables,
or shows a table's schema.

Imported data lives in the packages, entries, nodes and attributes tables;
the node_attributes view joins them by entry and node.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		listTables, err := cmd.Flags().GetBool("tables")
		if err != nil {
			return fmt.Errorf("failed to get tables flag: %w", err)
		}
		schemaTable, err := cmd.Flags().GetString("schema")
		if err != nil {
			return fmt.Errorf("failed to get schema flag: %w", err)
		}

		slog.Debug("Query parameters",
			"database", cfg.Database,
			"list-tables", listTables,
			"schema", schemaTable)

		db, err := database.Open(database.DefaultOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if listTables {
			tables, err := db.Tables(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Available tables:")
			for _, name := range tables {
				fmt.Printf("  %s\n", name)
			}
			return nil
		}

		if schemaTable != "" {
			cols, err := db.TableInfo(ctx, schemaTable)
			if err != nil {
				return err
			}

			fmt.Printf("Schema for table '%s':\n", schemaTable)
			fmt.Printf("%-20s %-15s %-10s %-10s %-10s\n", "Column", "Type", "NotNull", "Default", "Primary")
			fmt.Println(strings.Repeat("-", 70))
			for _, c := range cols {
				def := "NULL"
				if c.Default != nil {
					def = fmt.Sprintf("%v", c.Default)
				}
				fmt.Printf("%-20s %-15s %-10s %-10s %-10s\n", c.Name, c.Type, yesNo(c.NotNull), def, yesNo(c.PrimaryKey))
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("no query provided, use --tables to list tables or --schema <table> to show schema")
		}

		query := args[0]
		slog.Debug("Executing SQL query", "query", query)

		rows, err := db.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("getting column names: %w", err)
		}

		fmt.Println(strings.Join(columns, "\t"))
		seps := make([]string, len(columns))
		for i, col := range columns {
			seps[i] = strings.Repeat("-", len(col))
		}
		fmt.Println(strings.Join(seps, "\t"))

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		cells := make([]string, len(columns))
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("scanning row: %w", err)
			}
			for i, val := range values {
				cells[i] = formatCell(val)
			}
			fmt.Println(strings.Join(cells, "\t"))
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating rows: %w", err)
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// formatCell renders blobs as hex and NULL explicitly
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Bool("tables", false, "List available tables")
	queryCmd.Flags().String("schema", "", "Show schema for specified table")
}
