package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSnapshots keeps session snapshots in a local sqlite database, one row
// per namespace. The database lives next to the user's other local state, so a
// page-reload equivalent (process restart) finds the session where it left off.
type SQLiteSnapshots struct {
	db *sql.DB
}

// OpenSnapshots opens (and if needed initializes) the snapshot database at path.
func OpenSnapshots(path string) (*SQLiteSnapshots, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	namespace   TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	update_time TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}

	return &SQLiteSnapshots{db: db}, nil
}

func (s *SQLiteSnapshots) Load(ctx context.Context, namespace string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE namespace = ?`, namespace,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return data, nil
}

func (s *SQLiteSnapshots) Save(ctx context.Context, namespace string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (namespace, data, update_time) VALUES (?, ?, ?)`,
		namespace, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshots) Delete(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshots) Close() error {
	return s.db.Close()
}
