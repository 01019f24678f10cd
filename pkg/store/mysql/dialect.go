// Package mysql implements store.Dialect for MySQL, grounded in the
// teacher's pkg/storage/mysql dialect.
package mysql

// Dialect is the MySQL store.Dialect implementation.
type Dialect struct{}

// NewDialect returns the MySQL dialect.
func NewDialect() Dialect { return Dialect{} }

// Name implements store.Dialect.
func (Dialect) Name() string { return "mysql" }

// BooleanType implements store.Dialect. MySQL has no native boolean type.
func (Dialect) BooleanType() string { return "TINYINT(1)" }

// TimestampType implements store.Dialect.
func (Dialect) TimestampType() string { return "DATETIME" }

// TextType implements store.Dialect.
func (Dialect) TextType() string { return "TEXT" }
