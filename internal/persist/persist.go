// Package persist provides the sqlite-backed store for session headers and
// message logs: ordered, queryable access that internal/storage's
// one-file-per-key JSON scheme can't give without a full directory scan per
// read. internal/storage is kept alongside it for config/todo blobs that
// don't need query access.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/steerrt/agentrt/pkg/types"
)

// ErrNotFound mirrors internal/storage.ErrNotFound so callers that switch
// between the two stores don't need a different sentinel per backend.
var ErrNotFound = errors.New("not found")

// DB is a sqlite-backed store for session headers and their message logs.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and applies
// any pending migrations. path may be ":memory:" for tests.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway; avoid SQLITE_BUSY under concurrent use
	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("persist: set pragmas: %w", err)
	}
	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{sql: sqlDB}, nil
}

// Close closes the underlying sqlite connection.
func (db *DB) Close() error { return db.sql.Close() }

// PutSession upserts a session header.
func (db *DB) PutSession(ctx context.Context, header types.SessionHeader) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("persist: marshal session header: %w", err)
	}
	_, err = db.sql.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at, header)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			header = excluded.header
	`, header.ID, header.Title, header.CreatedAt, header.UpdatedAt, string(data))
	if err != nil {
		return fmt.Errorf("persist: put session %s: %w", header.ID, err)
	}
	return nil
}

// GetSession returns one session header, or ErrNotFound if id is unknown.
func (db *DB) GetSession(ctx context.Context, id string) (types.SessionHeader, error) {
	var data string
	err := db.sql.QueryRowContext(ctx, `SELECT header FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SessionHeader{}, ErrNotFound
	}
	if err != nil {
		return types.SessionHeader{}, fmt.Errorf("persist: get session %s: %w", id, err)
	}
	var header types.SessionHeader
	if err := json.Unmarshal([]byte(data), &header); err != nil {
		return types.SessionHeader{}, fmt.Errorf("persist: unmarshal session %s: %w", id, err)
	}
	return header, nil
}

// ListSessions returns every session header, most recently updated first.
func (db *DB) ListSessions(ctx context.Context) ([]types.SessionHeader, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT header FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("persist: list sessions: %w", err)
	}
	defer rows.Close()

	var headers []types.SessionHeader
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("persist: scan session row: %w", err)
		}
		var header types.SessionHeader
		if err := json.Unmarshal([]byte(data), &header); err != nil {
			return nil, fmt.Errorf("persist: unmarshal session row: %w", err)
		}
		headers = append(headers, header)
	}
	return headers, rows.Err()
}

// DeleteSession removes a session header and every message in its log.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin delete session %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("persist: delete messages for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("persist: delete session %s: %w", id, err)
	}
	return tx.Commit()
}

// PutMessage upserts one message in a session's log.
func (db *DB) PutMessage(ctx context.Context, msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("persist: marshal message %s: %w", msg.ID, err)
	}
	_, err = db.sql.ExecContext(ctx, `
		INSERT INTO messages (session_id, id, timestamp, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO UPDATE SET
			timestamp = excluded.timestamp,
			data = excluded.data
	`, msg.SessionID, msg.ID, msg.Timestamp, string(data))
	if err != nil {
		return fmt.Errorf("persist: put message %s: %w", msg.ID, err)
	}
	return nil
}

// ListMessages returns every message in sessionID's log, oldest first.
func (db *DB) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT data FROM messages WHERE session_id = ? ORDER BY timestamp ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("persist: list messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("persist: scan message row: %w", err)
		}
		var msg types.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("persist: unmarshal message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
