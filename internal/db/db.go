// Package db implements the local record store: one SQLite table of tagged
// records (orgs, pages, the vault master key) filtered by type at read
// time.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const dbFile = "svf.db"

// Store wraps the database connection
type Store struct {
	conn *sql.DB
	dir  string
}

// Open opens (creating if necessary) the record store in dir and runs any
// pending migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, dir: dir}
	if err := s.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.conn.Close()
}

// Dir returns the directory holding the store
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) schemaVersion() (int, error) {
	var version string
	err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

func (s *Store) runMigrations() error {
	current, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if _, err := s.conn.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := s.setSchemaVersion(m.Version); err != nil {
			return fmt.Errorf("set version %d: %w", m.Version, err)
		}
	}

	return s.setSchemaVersion(SchemaVersion)
}

// getRecord unmarshals the record with the given id into out. Returns
// sql.ErrNoRows when the record does not exist.
func (s *Store) getRecord(id string, recordType string, out interface{}) error {
	var data string
	err := s.conn.QueryRow(`SELECT data FROM records WHERE id = ? AND type = ?`, id, recordType).Scan(&data)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), out)
}

// putRecord inserts or replaces a record
func (s *Store) putRecord(id string, recordType string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", recordType, err)
	}

	now := time.Now()
	_, err = s.conn.Exec(`
		INSERT INTO records (id, type, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, id, recordType, string(data), now, now)
	return err
}

// recordsOfType returns the raw payloads of all records of one type
func (s *Store) recordsOfType(recordType string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT data FROM records WHERE type = ? ORDER BY id`, recordType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		payloads = append(payloads, data)
	}
	return payloads, rows.Err()
}

// DestroyAll removes every record. Used by the clear command.
func (s *Store) DestroyAll() error {
	_, err := s.conn.Exec(`DELETE FROM records`)
	return err
}
