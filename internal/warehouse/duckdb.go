// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/anshulvish/ob-reports/internal/logging"
)

// DuckDBOptions configures the embedded DuckDB client.
type DuckDBOptions struct {
	// Path is the database file holding the mirrored event export.
	Path string

	// ProjectID labels the upstream export project in logs. Table IDs stay
	// dataset.table: DuckDB resolves a third part against an attached
	// database catalog, not the export project.
	ProjectID string

	// Threads for the engine; 0 uses all CPUs.
	Threads int

	// ReadOnly opens the database read-only. The service never writes.
	ReadOnly bool
}

// DuckDB is a Client backed by an embedded DuckDB database that mirrors the
// event export dataset (one schema per dataset, date-sharded tables inside).
type DuckDB struct {
	conn *sql.DB
}

// OpenDuckDB opens the database and verifies the connection.
func OpenDuckDB(opts DuckDBOptions) (*DuckDB, error) {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	accessMode := "read_write"
	if opts.ReadOnly {
		accessMode = "read_only"
	}

	// Disable extension auto-install to avoid network stalls on startup.
	connStr := fmt.Sprintf("%s?access_mode=%s&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		opts.Path, accessMode, threads)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping warehouse database: %w", err)
	}

	logging.Info().Str("path", opts.Path).Str("project", opts.ProjectID).Int("threads", threads).Msg("warehouse database opened")

	return &DuckDB{conn: conn}, nil
}

// ListDatasets returns the schema names in the database.
func (d *DuckDB) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_name NOT IN ('information_schema', 'pg_catalog')
		 ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan dataset name: %w", err)
		}
		datasets = append(datasets, name)
	}
	return datasets, rows.Err()
}

// ListTables returns metadata for every table in the dataset schema.
func (d *DuckDB) ListTables(ctx context.Context, datasetID string) ([]TableMeta, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT table_name, estimated_size FROM duckdb_tables()
		 WHERE schema_name = ? ORDER BY table_name`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", datasetID, err)
	}
	defer rows.Close()

	var tables []TableMeta
	for rows.Next() {
		var name string
		var estimated sql.NullInt64
		if err := rows.Scan(&name, &estimated); err != nil {
			return nil, fmt.Errorf("failed to scan table metadata: %w", err)
		}

		meta := TableMeta{
			ID:               name,
			FullyQualifiedID: d.qualify(datasetID, name),
		}
		if estimated.Valid {
			count := estimated.Int64
			meta.RowCount = &count
		}
		tables = append(tables, meta)
	}
	return tables, rows.Err()
}

// Query runs a statement and materializes all rows.
func (d *DuckDB) Query(ctx context.Context, sqlText string, args ...any) ([]Row, error) {
	rows, err := d.conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (d *DuckDB) Close() error {
	return d.conn.Close()
}

func (d *DuckDB) qualify(datasetID, table string) string {
	return fmt.Sprintf("%s.%s", datasetID, table)
}
