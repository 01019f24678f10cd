// Package factory selects and constructs a concrete store.SQLStore for a
// configured database type, grounded in the teacher's
// internal/storage/factory.go type-switch factory — kept as a separate
// package from pkg/store so the dialect subpackages (which import
// pkg/store for the Dialect interface) never need to import back into it.
package factory

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wrenlabs/rca-scheduler/pkg/store"
	"github.com/wrenlabs/rca-scheduler/pkg/store/mysql"
	"github.com/wrenlabs/rca-scheduler/pkg/store/postgres"
	"github.com/wrenlabs/rca-scheduler/pkg/store/sqlite"
)

// New opens dsn with the driver matching dbType and returns a ready
// store.SQLStore. Supported types: "sqlite"/"sqlite3", "postgres"/
// "postgresql", "mysql".
func New(dbType, dsn string) (*store.SQLStore, error) {
	var driverName string
	var dialect store.Dialect

	switch dbType {
	case "sqlite", "sqlite3", "":
		driverName, dialect = "sqlite3", sqlite.NewDialect()
	case "postgres", "postgresql":
		driverName, dialect = "postgres", postgres.NewDialect()
	case "mysql":
		driverName, dialect = "mysql", mysql.NewDialect()
	default:
		return nil, fmt.Errorf("store: unsupported database type %q", dbType)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", dbType, err)
	}

	sqlStore, err := store.NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sqlStore, nil
}
