// Package store persists scripts in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	_ "modernc.org/sqlite"

	"ai-script-editor-service/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

// DefaultPageSize is the list page size when none is given.
const DefaultPageSize = 20

var (
	// ErrNotFound is returned when a script id does not exist.
	ErrNotFound = errors.New("script not found")
	// ErrSchemaMismatch indicates the database was created by an incompatible version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// Store manages script persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the script database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has %d, want %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// Create inserts a new script. Blocks are stored without transient flags.
func (s *Store) Create(ctx context.Context, title string, blocks []models.Block) (*models.Script, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled script"
	}
	blocksJSON, err := encodeBlocks(blocks)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scripts (title, slug, blocks_json, created_at) VALUES (?, ?, ?, ?)`,
		title, slug.Make(title), blocksJSON, s.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert script: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a script by id.
func (s *Store) Get(ctx context.Context, id int64) (*models.Script, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, slug, blocks_json, created_at, updated_at FROM scripts WHERE id = ?`, id)
	script, err := scanScript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get script %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get script %d: %w", id, err)
	}
	return script, nil
}

// Update applies a partial update. Nil fields are left untouched.
func (s *Store) Update(ctx context.Context, id int64, u models.ScriptUpdate) (*models.Script, error) {
	var (
		sets []string
		args []any
	)
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		sets = append(sets, "title = ?", "slug = ?")
		args = append(args, title, slug.Make(title))
	}
	if u.Blocks != nil {
		blocksJSON, err := encodeBlocks(u.Blocks)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "blocks_json = ?")
		args = append(args, blocksJSON)
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().Format(time.RFC3339Nano), id)

	res, err := s.db.ExecContext(ctx, "UPDATE scripts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update script %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update script %d: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

// SaveBlocks replaces the stored blocks of a script.
func (s *Store) SaveBlocks(ctx context.Context, id int64, blocks []models.Block) error {
	if blocks == nil {
		blocks = []models.Block{}
	}
	_, err := s.Update(ctx, id, models.ScriptUpdate{Blocks: blocks})
	return err
}

// Delete removes a script.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete script %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete script %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns one page of scripts, newest first. Pages are 0-based.
func (s *Store) List(ctx context.Context, page, pageSize int) ([]models.Script, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, slug, blocks_json, created_at, updated_at FROM scripts
         ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		pageSize, page*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	var out []models.Script
	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		out = append(out, *script)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return out, nil
}

// Count returns the number of stored scripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scripts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scripts: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScript(row scanner) (*models.Script, error) {
	var (
		script     models.Script
		blocksJSON string
		createdAt  string
		updatedAt  sql.NullString
	)
	if err := row.Scan(&script.ID, &script.Title, &script.Slug, &blocksJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blocksJSON), &script.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	script.CreatedAt = created
	if updatedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		script.UpdatedAt = &t
	}
	return &script, nil
}

func encodeBlocks(blocks []models.Block) (string, error) {
	stripped := models.StripTransient(blocks)
	if stripped == nil {
		stripped = []models.Block{}
	}
	data, err := json.Marshal(stripped)
	if err != nil {
		return "", fmt.Errorf("encode blocks: %w", err)
	}
	return string(data), nil
}
