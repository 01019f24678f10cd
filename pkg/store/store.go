// Package store defines the persistence contract flow units are written
// through and a concrete sqlx-backed implementation. Errors from Write are
// always non-fatal to the scheduler (logged and swallowed by the caller);
// the interface itself carries no retry or transaction semantics.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
)

// Store persists a produced flow unit. Implementations must be safe for
// concurrent calls: local tasklets at the same level write concurrently.
type Store interface {
	Write(ctx context.Context, fu flowunit.FlowUnit) error
}

// Dialect supplies the column types the flow_units DDL needs per database
// engine, grounded in the teacher's per-type dialect accessors
// (BooleanType/TimestampType/TextType) rather than its full UpsertSQL
// surface — flow units are an append-only log, never upserted.
type Dialect interface {
	Name() string
	BooleanType() string
	TimestampType() string
	TextType() string
}

const flowUnitsSchema = `CREATE TABLE IF NOT EXISTS flow_units (
	id %s,
	vertex_name %s NOT NULL,
	recorded_at %s NOT NULL,
	flow_values %s NOT NULL,
	empty %s NOT NULL
)`

// SQLStore is a Dialect-parameterized Store over a sqlx.DB, grounded in the
// teacher's dialect-split storage packages.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewSQLStore creates the flow_units table if absent and returns a Store
// bound to db using dialect's column types.
func NewSQLStore(db *sqlx.DB, dialect Dialect) (*SQLStore, error) {
	schema := fmt.Sprintf(flowUnitsSchema,
		autoIncrementColumn(dialect),
		dialect.TextType(),
		dialect.TimestampType(),
		dialect.TextType(),
		dialect.BooleanType(),
	)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store: create flow_units table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func autoIncrementColumn(d Dialect) string {
	switch d.Name() {
	case "postgres":
		return "SERIAL PRIMARY KEY"
	case "mysql":
		return "INTEGER PRIMARY KEY AUTO_INCREMENT"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// Write inserts fu as a new row. Values are stored as a JSON blob since
// their field set varies per vertex.
func (s *SQLStore) Write(ctx context.Context, fu flowunit.FlowUnit) error {
	payload, err := json.Marshal(fu.Values)
	if err != nil {
		return fmt.Errorf("store: marshal flow unit values: %w", err)
	}

	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO flow_units (vertex_name, recorded_at, flow_values, empty)
		 VALUES (:vertex_name, :recorded_at, :flow_values, :empty)`,
		map[string]interface{}{
			"vertex_name": fu.VertexName,
			"recorded_at": fu.Timestamp,
			"flow_values": string(payload),
			"empty":       fu.Empty,
		},
	)
	if err != nil {
		return fmt.Errorf("store: insert flow unit: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
