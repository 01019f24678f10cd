// Package postgres implements store.Dialect for PostgreSQL, grounded in
// the teacher's pkg/storage/postgres dialect.
package postgres

// Dialect is the PostgreSQL store.Dialect implementation.
type Dialect struct{}

// NewDialect returns the PostgreSQL dialect.
func NewDialect() Dialect { return Dialect{} }

// Name implements store.Dialect.
func (Dialect) Name() string { return "postgres" }

// BooleanType implements store.Dialect.
func (Dialect) BooleanType() string { return "BOOLEAN" }

// TimestampType implements store.Dialect.
func (Dialect) TimestampType() string { return "TIMESTAMP" }

// TextType implements store.Dialect.
func (Dialect) TextType() string { return "TEXT" }
