// Package history records classification decisions in SQLite for auditing
// and offline threshold calibration.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded classification decision.
type Entry struct {
	ID        string    `json:"id"`
	ImageID   string    `json:"image_id"`
	Method    string    `json:"method"`
	Class     string    `json:"class"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Log stores classification decisions in a SQLite database.
type Log struct {
	db *sql.DB
}

// Open opens or creates the history database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Log, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Log{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS classifications (
		id TEXT PRIMARY KEY,
		image_id TEXT NOT NULL,
		method TEXT NOT NULL,
		class TEXT NOT NULL,
		score REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_classifications_created_at ON classifications(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts a decision. A missing ID or CreatedAt is filled in.
func (l *Log) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO classifications (id, image_id, method, class, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ImageID, e.Method, e.Class, e.Score, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}
	return nil
}

// Recent returns the latest limit decisions, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, image_id, method, class, score, created_at
		 FROM classifications ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.ImageID, &e.Method, &e.Class, &e.Score, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded decisions.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
