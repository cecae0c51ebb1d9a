package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/wordsub/internal/vocab"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore keeps one translation per source word in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS paths always use forward slashes.
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Append inserts rec unless the word is already stored.
func (s *SQLiteStore) Append(ctx context.Context, rec vocab.Record) (bool, error) {
	ts := recordTime(rec)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO translations (source_word, translation, context_sentence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_word) DO NOTHING`,
		rec.SourceWord,
		rec.Translation,
		rec.ContextSentence,
		ts,
		ts,
	)
	if err != nil {
		return false, fmt.Errorf("insert translation %q: %w", rec.SourceWord, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplacePlaceholder overwrites a stored error placeholder for rec's word.
func (s *SQLiteStore) ReplacePlaceholder(ctx context.Context, rec vocab.Record) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE translations
		 SET translation = ?, context_sentence = ?, updated_at = ?
		 WHERE source_word = ? AND translation LIKE ?`,
		rec.Translation,
		rec.ContextSentence,
		recordTime(rec),
		rec.SourceWord,
		vocab.PlaceholderPrefix+"%",
	)
	if err != nil {
		return false, fmt.Errorf("replace placeholder %q: %w", rec.SourceWord, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// All lists records in insertion order.
func (s *SQLiteStore) All(ctx context.Context) ([]vocab.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source_word, translation, context_sentence, created_at
		 FROM translations
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]vocab.Record, 0)
	for rows.Next() {
		var rec vocab.Record
		if err := rows.Scan(&rec.SourceWord, &rec.Translation, &rec.ContextSentence, &rec.Timestamp); err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func recordTime(rec vocab.Record) time.Time {
	if rec.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return rec.Timestamp.UTC()
}
