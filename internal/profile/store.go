// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile persists named section layouts (label, directory, file
// order) so a report's sections can be reused across runs.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/report-assembler/internal/insertset"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// DefaultDB is the profile database path used when none is configured,
// relative to the user config directory.
const DefaultDB = "report-assembler/profiles.db"

// ErrNotFound reports a profile name with no stored profile.
var ErrNotFound = errors.New("profile not found")

// Profile is a named, ordered list of sections.
type Profile struct {
	Name     string                `json:"name" yaml:"name"`
	Sections []types.SectionConfig `json:"sections" yaml:"sections"`
	Updated  time.Time             `json:"updated" yaml:"updated"`
}

// Store manages the profile SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the profile database at path, creating the
// parent directory and schema as needed.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			profile TEXT NOT NULL REFERENCES profiles(name) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			dir TEXT NOT NULL,
			sort TEXT,
			priority TEXT,
			PRIMARY KEY (profile, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores p under p.Name, replacing any profile of that name. Section
// order is preserved.
func (s *Store) Save(ctx context.Context, p Profile) error {
	if p.Name == "" {
		return errors.New("profile name is empty")
	}
	if err := insertset.Validate(p.Sections); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE profile = ?`, p.Name); err != nil {
		return fmt.Errorf("deleting old sections: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (name, updated_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at=excluded.updated_at`,
		p.Name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sections (profile, position, label, dir, sort, priority) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, sec := range p.Sections {
		priority, _ := json.Marshal(sec.Priority)
		if _, err := stmt.ExecContext(ctx, p.Name, i, string(sec.Label), sec.Dir, string(sec.Sort), string(priority)); err != nil {
			return fmt.Errorf("inserting section %q: %w", sec.Label, err)
		}
	}

	return tx.Commit()
}

// Get returns the profile called name.
func (s *Store) Get(ctx context.Context, name string) (Profile, error) {
	var updated string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM profiles WHERE name = ?`, name).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("querying profile: %w", err)
	}

	p := Profile{Name: name}
	p.Updated, _ = time.Parse(time.RFC3339Nano, updated)

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, dir, sort, priority FROM sections WHERE profile = ? ORDER BY position`, name)
	if err != nil {
		return Profile{}, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sec             types.SectionConfig
			label, sortMode string
			priority        sql.NullString
		)
		if err := rows.Scan(&label, &sec.Dir, &sortMode, &priority); err != nil {
			return Profile{}, fmt.Errorf("scanning section: %w", err)
		}
		sec.Label = types.Label(label)
		sec.Sort = types.SortMode(sortMode)
		if priority.Valid && priority.String != "" {
			_ = json.Unmarshal([]byte(priority.String), &sec.Priority)
		}
		p.Sections = append(p.Sections, sec)
	}
	return p, rows.Err()
}

// List returns the stored profile names in alphabetical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes the profile called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
