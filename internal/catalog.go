package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sensiblebit/storekit"
)

// Catalog is a SQLite-backed inventory of objects produced by the loader.
type Catalog struct {
	*sqlx.DB
}

// ObjectRecord is one cataloged object.
type ObjectRecord struct {
	ID          int64          `db:"id"`
	Kind        string         `db:"kind"`
	Subject     sql.NullString `db:"subject"`
	Issuer      sql.NullString `db:"issuer"`
	Serial      sql.NullString `db:"serial_number"`
	Fingerprint sql.NullString `db:"fingerprint"`
	SKI         sql.NullString `db:"subject_key_identifier"`
	KeyType     sql.NullString `db:"key_type"`
	Trusted     bool           `db:"trusted"`
	Source      string         `db:"source"`
}

// OpenCatalog opens (or creates) the catalog database. An empty path means
// an in-memory catalog pinned to a single connection, since every :memory:
// connection is a separate database.
func OpenCatalog(path string) (*Catalog, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if path == "" {
		db.SetMaxOpenConns(1)
	}

	c := &Catalog{DB: db}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	slog.Debug("catalog initialized", "path", path)
	return c, nil
}

func (c *Catalog) initSchema() error {
	_, err := c.Exec(`
		CREATE TABLE IF NOT EXISTS objects (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			kind                   TEXT NOT NULL,
			subject                TEXT,
			issuer                 TEXT,
			serial_number          TEXT,
			fingerprint            TEXT,
			subject_key_identifier TEXT,
			key_type               TEXT,
			trusted                BOOLEAN NOT NULL DEFAULT 0,
			source                 TEXT NOT NULL,
			UNIQUE(kind, fingerprint, subject_key_identifier, source)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating objects table: %w", err)
	}
	_, err = c.Exec(`CREATE INDEX IF NOT EXISTS idx_objects_ski ON objects (subject_key_identifier);`)
	if err != nil {
		return fmt.Errorf("creating SKI index: %w", err)
	}
	return nil
}

// nullable returns a NULL string for "" so the unique constraint treats
// absent values consistently.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Insert catalogs one loaded object under the given source path.
func (c *Catalog) Insert(info *storekit.Info, source string) error {
	s := Summarize(info)
	rec := ObjectRecord{
		Kind:        s.Kind,
		Subject:     nullable(s.Subject),
		Issuer:      nullable(s.Issuer),
		Serial:      nullable(s.Serial),
		Fingerprint: nullable(s.Fingerprint),
		SKI:         nullable(s.SKI),
		KeyType:     nullable(s.KeyAlgo),
		Trusted:     s.Trusted,
		Source:      source,
	}
	_, err := c.NamedExec(`
		INSERT OR IGNORE INTO objects (kind, subject, issuer, serial_number, fingerprint, subject_key_identifier, key_type, trusted, source)
		VALUES (:kind, :subject, :issuer, :serial_number, :fingerprint, :subject_key_identifier, :key_type, :trusted, :source)
	`, rec)
	if err != nil {
		return fmt.Errorf("inserting object: %w", err)
	}
	return nil
}

// All returns every cataloged object.
func (c *Catalog) All() ([]ObjectRecord, error) {
	var objects []ObjectRecord
	if err := c.Select(&objects, "SELECT * FROM objects ORDER BY id"); err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	return objects, nil
}

// BySKI returns all objects sharing a subject key identifier, which pairs
// private keys with their certificates.
func (c *Catalog) BySKI(ski string) ([]ObjectRecord, error) {
	var objects []ObjectRecord
	err := c.Select(&objects, "SELECT * FROM objects WHERE subject_key_identifier = ? ORDER BY id", ski)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying objects by SKI: %w", err)
	}
	return objects, nil
}

// Count returns the number of cataloged objects.
func (c *Catalog) Count() (int, error) {
	var n int
	if err := c.Get(&n, "SELECT COUNT(*) FROM objects"); err != nil {
		return 0, fmt.Errorf("counting objects: %w", err)
	}
	return n, nil
}
