// Package sqlite implements store.Dialect for SQLite, grounded in the
// teacher's pkg/storage/sqlite dialect.
package sqlite

// Dialect is the SQLite store.Dialect implementation.
type Dialect struct{}

// NewDialect returns the SQLite dialect.
func NewDialect() Dialect { return Dialect{} }

// Name implements store.Dialect.
func (Dialect) Name() string { return "sqlite" }

// BooleanType implements store.Dialect. SQLite has no native boolean type.
func (Dialect) BooleanType() string { return "INTEGER" }

// TimestampType implements store.Dialect.
func (Dialect) TimestampType() string { return "DATETIME" }

// TextType implements store.Dialect.
func (Dialect) TextType() string { return "TEXT" }
