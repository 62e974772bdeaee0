package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName = "data.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	migrationsDir = "sql/migrations"
	dirMode       = 0700

	createSchemaVersionSQL = `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`

	selectSchemaVersionSQL = `SELECT COALESCE(MAX(version), 0) FROM schema_version`

	insertSchemaVersionSQL = `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`
)

var (
	//go:embed sql/migrations/*.sql
	migrationFS embed.FS

	errDBNotInitialized = errors.New("database not initialized")

	managedTables = []string{"report", "schema_version"}
)

type migration struct {
	version int
	name    string
}

// Init opens the database at dsn and applies any pending migrations.
// A postgres:// or postgresql:// DSN selects Postgres, anything else is
// treated as a SQLite file path.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("database DSN not specified")
	}

	if driverFor(dsn) == driverSQLite {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("error creating database dir %s: %w", dir, err)
		}
	}

	db, err := GetDB(dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	return migrate(db)
}

// Reset removes all stored data and re-applies migrations.
func Reset(dsn string) error {
	if dsn == "" {
		return errors.New("database DSN not specified")
	}

	if driverFor(dsn) == driverSQLite {
		if err := os.Remove(dsn); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error deleting database %s: %w", dsn, err)
		}
		return Init(dsn)
	}

	db, err := GetDB(dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	for _, t := range managedTables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", t, err)
		}
	}

	return migrate(db)
}

// GetDB opens a handle without touching the schema.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverFor(dsn)
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == driverSQLite {
		// single writer, avoids SQLITE_BUSY under concurrent requests
		conn.SetMaxOpenConns(1)
	}
	return conn, nil
}

func driverFor(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

func isPostgres(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// rebind converts ? placeholders to $n for Postgres.
func rebind(db *sql.DB, query string) string {
	if !isPostgres(db) {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(createSchemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	if err := db.QueryRow(selectSchemaVersionSQL).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	list, err := listMigrations()
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.version <= current {
			continue
		}

		b, err := migrationFS.ReadFile(migrationsDir + "/" + m.name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration tx: %w", err)
		}

		if _, err := tx.Exec(string(b)); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}

		now := time.Now().UTC().Format(time.RFC3339)
		if _, err := tx.Exec(rebind(db, insertSchemaVersionSQL), m.version, now); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}

		slog.Debug("applied migration", "version", m.version, "name", m.name)
	}

	return nil
}

func listMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	list := make([]migration, 0, len(entries))
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("invalid migration name: %s", e.Name())
		}
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version %s: %w", e.Name(), err)
		}
		list = append(list, migration{version: v, name: e.Name()})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	return list, nil
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("error rolling back transaction", "error", err)
	}
}
