package baseline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/plugvet/plugvet/internal/models"
)

// DefaultDBName is the database file created under the task root when
// no --baseline-db path is given.
const DefaultDBName = ".plugvet/baselines.db"

// SQLiteStore is the file-backed Store. WAL mode keeps concurrent
// readers cheap; writes are serialized through a single mutex.
type SQLiteStore struct {
	conn  *sql.DB
	path  string
	bound int
	mu    sync.RWMutex
}

// SQLiteOption configures an SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithHistoryBound overrides DefaultHistoryBound.
func WithHistoryBound(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.bound = n
		}
	}
}

// Open opens (creating if needed) the baseline database at path and
// applies pending schema migrations.
func Open(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create baseline directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open baseline database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	store := &SQLiteStore{
		conn:  conn,
		path:  path,
		bound: DefaultHistoryBound,
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Bound returns the per-key history bound.
func (s *SQLiteStore) Bound() int {
	return s.bound
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// migrate applies pending schema migrations. The schema only ever
// grows; old readers must stay able to read new databases.
func (s *SQLiteStore) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Entries},
		{2, migrationV2BuildIdentity},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Entries = `
CREATE TABLE IF NOT EXISTS baseline_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_name TEXT NOT NULL,
	platform TEXT NOT NULL,
	score REAL NOT NULL,
	category_scores TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_baseline_key ON baseline_entries(task_name, platform);
`

const migrationV2BuildIdentity = `
ALTER TABLE baseline_entries ADD COLUMN commit_sha TEXT NOT NULL DEFAULT '';
ALTER TABLE baseline_entries ADD COLUMN branch TEXT NOT NULL DEFAULT '';
ALTER TABLE baseline_entries ADD COLUMN dirty INTEGER NOT NULL DEFAULT 0;
`

// History returns entries for the key, newest first.
func (s *SQLiteStore) History(ctx context.Context, taskName, platform string, limit int) ([]models.BaselineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT score, category_scores, recorded_at, commit_sha, branch, dirty
		FROM baseline_entries
		WHERE task_name = ? AND platform = ?
		ORDER BY id DESC
		LIMIT ?
	`, taskName, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("query history for %s/%s: %w", taskName, platform, err)
	}
	defer rows.Close()

	var entries []models.BaselineEntry
	for rows.Next() {
		var (
			entry      models.BaselineEntry
			categories sql.NullString
			recordedAt string
			dirty      int
		)
		if err := rows.Scan(&entry.OverallScore, &categories, &recordedAt,
			&entry.BuildIdentity.Commit, &entry.BuildIdentity.Branch, &dirty); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Timestamp, err = parseTime(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		entry.BuildIdentity.Dirty = dirty != 0
		if categories.Valid && categories.String != "" {
			if err := json.Unmarshal([]byte(categories.String), &entry.CategoryScores); err != nil {
				return nil, fmt.Errorf("decode category scores: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Append records one entry and evicts the oldest rows beyond the bound.
func (s *SQLiteStore) Append(ctx context.Context, taskName, platform string, entry models.BaselineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var categories any
	if len(entry.CategoryScores) > 0 {
		raw, err := json.Marshal(entry.CategoryScores)
		if err != nil {
			return fmt.Errorf("encode category scores: %w", err)
		}
		categories = string(raw)
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO baseline_entries
			(task_name, platform, score, category_scores, recorded_at, commit_sha, branch, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, taskName, platform, entry.OverallScore, categories, formatTime(ts),
		entry.BuildIdentity.Commit, entry.BuildIdentity.Branch, boolInt(entry.BuildIdentity.Dirty))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("append baseline entry: %w", err)
	}
	if _, err := tx.Exec(`
		DELETE FROM baseline_entries
		WHERE task_name = ? AND platform = ?
		AND id NOT IN (
			SELECT id FROM baseline_entries
			WHERE task_name = ? AND platform = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`, taskName, platform, taskName, platform, s.bound); err != nil {
		tx.Rollback()
		return fmt.Errorf("evict old entries: %w", err)
	}
	return tx.Commit()
}

// Keys lists every history key, sorted by task then platform.
func (s *SQLiteStore) Keys(ctx context.Context) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT task_name, platform
		FROM baseline_entries
		ORDER BY task_name, platform
	`)
	if err != nil {
		return nil, fmt.Errorf("list baseline keys: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.TaskName, &k.Platform); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Trim shrinks every history to at most keep entries.
func (s *SQLiteStore) Trim(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.conn.ExecContext(ctx, `
		DELETE FROM baseline_entries
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY task_name, platform
					ORDER BY id DESC
				) AS rank
				FROM baseline_entries
			)
			WHERE rank <= ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim baseline entries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return removed, nil
}

// replaceAll swaps the entire store contents for the given snapshot
// entries. Used by the remote mirror's pull path.
func (s *SQLiteStore) replaceAll(ctx context.Context, entries []SnapshotEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM baseline_entries"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear baseline entries: %w", err)
	}
	for _, se := range entries {
		var categories any
		if len(se.Entry.CategoryScores) > 0 {
			raw, err := json.Marshal(se.Entry.CategoryScores)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("encode category scores: %w", err)
			}
			categories = string(raw)
		}
		if _, err := tx.Exec(`
			INSERT INTO baseline_entries
				(task_name, platform, score, category_scores, recorded_at, commit_sha, branch, dirty)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, se.TaskName, se.Platform, se.Entry.OverallScore, categories,
			formatTime(se.Entry.Timestamp), se.Entry.BuildIdentity.Commit,
			se.Entry.BuildIdentity.Branch, boolInt(se.Entry.BuildIdentity.Dirty)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert snapshot entry: %w", err)
		}
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
