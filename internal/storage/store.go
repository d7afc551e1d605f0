package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for the notice archive. The scan
// cursor is deliberately not persisted: a restarted watcher always begins
// at the live head.
type Store struct {
	db *sql.DB
}

// Open initializes a SQLite database and runs minimal schema setup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS notices (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  trx_id      TEXT,
  block_num   INTEGER NOT NULL,
  account     TEXT,
  medium      TEXT,
  reason      TEXT,
  version     TEXT,
  urls_json   TEXT NOT NULL,
  posted_at   TIMESTAMP NOT NULL,
  created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notices_block ON notices(block_num);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Notice is an archived notification row.
type Notice struct {
	TrxID    string
	BlockNum uint64
	Account  string
	Medium   string
	Reason   string
	Version  string
	URLs     []string
	PostedAt time.Time
}

// InsertNotice archives one decoded notification.
func (s *Store) InsertNotice(ctx context.Context, n Notice) error {
	if len(n.URLs) == 0 {
		return errors.New("notice urls required")
	}
	urls, err := json.Marshal(n.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO notices (trx_id, block_num, account, medium, reason, version, urls_json, posted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, n.TrxID, n.BlockNum, n.Account, n.Medium, n.Reason, n.Version, string(urls), n.PostedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert notice: %w", err)
	}
	return nil
}

// ListNotices returns archived notices at or above sinceBlock in block
// order, capped at limit (0 means no cap).
func (s *Store) ListNotices(ctx context.Context, sinceBlock uint64, limit int) ([]Notice, error) {
	q := `
SELECT trx_id, block_num, account, medium, reason, version, urls_json, posted_at
FROM notices WHERE block_num >= ? ORDER BY block_num, id`
	args := []any{sinceBlock}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var out []Notice
	for rows.Next() {
		var n Notice
		var urlsJSON string
		if err := rows.Scan(&n.TrxID, &n.BlockNum, &n.Account, &n.Medium, &n.Reason, &n.Version, &urlsJSON, &n.PostedAt); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		if err := json.Unmarshal([]byte(urlsJSON), &n.URLs); err != nil {
			return nil, fmt.Errorf("decode urls: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return out, nil
}

// CountNotices returns the number of archived notices.
func (s *Store) CountNotices(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notices;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notices: %w", err)
	}
	return count, nil
}
