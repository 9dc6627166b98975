package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Index is the metadata store backing the artifact cache: one row per
// fingerprint, recording where its built entry lives and when it was
// written. The backing engine is pluggable; a single process only ever
// opens one, chosen by DriverType.
type Index struct {
	db     *sql.DB
	driver DriverType
}

// DriverType names a supported backing store for the index.
type DriverType string

const (
	SQLite   DriverType = "sqlite"
	Postgres DriverType = "postgres"
	MySQL    DriverType = "mysql"
)

func (d DriverType) driverName() (string, error) {
	switch d {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		return "postgres", nil
	case MySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("cache: unsupported index driver %q", d)
	}
}

// OpenIndex opens (and, for sqlite, creates) the metadata database at dsn
// and ensures its schema exists.
func OpenIndex(driver DriverType, dsn string) (*Index, error) {
	name, err := driver.driverName()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping index: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	idx := &Index{db: db, driver: driver}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) migrate() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS kernel_index (
			fingerprint TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			backend     TEXT NOT NULL,
			artifact_dir TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("cache: migrate index: %w", err)
	}
	return nil
}

// Entry is one row of the index.
type Entry struct {
	Fingerprint string
	Name        string
	Backend     string
	ArtifactDir string
	CreatedAt   time.Time
}

// Record upserts a freshly committed cache entry's metadata. The upsert
// clause and placeholder style both vary by driver: Postgres wants
// numbered "$1" placeholders and supports the same "ON CONFLICT" syntax
// as SQLite, while MySQL wants "?" placeholders and its own
// "ON DUPLICATE KEY UPDATE" clause.
func (idx *Index) Record(e Entry) error {
	var query string
	switch idx.driver {
	case Postgres:
		query = `
			INSERT INTO kernel_index (fingerprint, name, backend, artifact_dir, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (fingerprint) DO UPDATE SET
				name = excluded.name, backend = excluded.backend,
				artifact_dir = excluded.artifact_dir, created_at = excluded.created_at`
	case MySQL:
		query = `
			INSERT INTO kernel_index (fingerprint, name, backend, artifact_dir, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name), backend = VALUES(backend),
				artifact_dir = VALUES(artifact_dir), created_at = VALUES(created_at)`
	default: // SQLite
		query = `
			INSERT INTO kernel_index (fingerprint, name, backend, artifact_dir, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (fingerprint) DO UPDATE SET
				name = excluded.name, backend = excluded.backend,
				artifact_dir = excluded.artifact_dir, created_at = excluded.created_at`
	}

	_, err := idx.db.Exec(query, e.Fingerprint, e.Name, e.Backend, e.ArtifactDir, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("cache: record %s: %w", e.Fingerprint, err)
	}
	return nil
}

// Lookup returns the recorded entry for fingerprint, if any.
func (idx *Index) Lookup(fingerprint string) (Entry, bool, error) {
	query := `
		SELECT fingerprint, name, backend, artifact_dir, created_at
		FROM kernel_index WHERE fingerprint = ?`
	if idx.driver == Postgres {
		query = `
			SELECT fingerprint, name, backend, artifact_dir, created_at
			FROM kernel_index WHERE fingerprint = $1`
	}
	row := idx.db.QueryRow(query, fingerprint)

	var e Entry
	if err := row.Scan(&e.Fingerprint, &e.Name, &e.Backend, &e.ArtifactDir, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("cache: lookup %s: %w", fingerprint, err)
	}
	return e, true, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error { return idx.db.Close() }
