package sqlite

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
	"github.com/vovakirdan/drawrelay-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id            TEXT PRIMARY KEY,
	active_users  INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	last_activity DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS drawing_commands (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	room_id       TEXT NOT NULL,
	type          TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	connection_id TEXT NOT NULL,
	ts            INTEGER NOT NULL,
	points        TEXT NOT NULL DEFAULT '[]',
	color         TEXT NOT NULL DEFAULT '',
	width         REAL NOT NULL DEFAULT 0,
	tool          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_drawing_commands_room ON drawing_commands(room_id, seq);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// UpsertRoom creates the room record or refreshes its counters.
func (s *SQLiteStore) UpsertRoom(ctx context.Context, room *store.Room) error {
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	lastActivity := room.LastActivity
	if lastActivity.IsZero() {
		lastActivity = createdAt
	}

	query := `
		INSERT INTO rooms (id, active_users, created_at, last_activity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			active_users = excluded.active_users,
			last_activity = excluded.last_activity
	`
	if _, err := s.db.ExecContext(ctx, query, room.ID, room.ActiveUsers, createdAt.UTC(), lastActivity.UTC()); err != nil {
		return fmt.Errorf("upsert room %s: %w", room.ID, err)
	}
	return nil
}

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, active_users, created_at, last_activity
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.ActiveUsers,
		&room.CreatedAt,
		&room.LastActivity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// ==== CommandStore implementation ====

// AppendCommand stores a stroke, or truncates the log for a clear.
func (s *SQLiteStore) AppendCommand(ctx context.Context, cmd *store.Command) error {
	if cmd.Type == store.CommandTypeClear {
		return s.DeleteCommands(ctx, cmd.RoomID)
	}

	points, err := json.Marshal(cmd.Points)
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO drawing_commands (id, room_id, type, user_id, connection_id, ts, points, color, width, tool)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		cmd.ID, cmd.RoomID, string(cmd.Type), cmd.UserID, cmd.ConnectionID,
		cmd.Timestamp, string(points), cmd.Color, cmd.Width, cmd.Tool,
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// ListCommands returns the room's log ordered by insertion.
func (s *SQLiteStore) ListCommands(ctx context.Context, roomID string) ([]*store.Command, error) {
	query := `
		SELECT id, room_id, type, user_id, connection_id, ts, points, color, width, tool
		FROM drawing_commands
		WHERE room_id = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var commands []*store.Command
	for rows.Next() {
		var (
			cmd    store.Command
			typ    string
			points string
		)
		if err := rows.Scan(&cmd.ID, &cmd.RoomID, &typ, &cmd.UserID, &cmd.ConnectionID,
			&cmd.Timestamp, &points, &cmd.Color, &cmd.Width, &cmd.Tool); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmd.Type = store.CommandType(typ)
		if err := json.Unmarshal([]byte(points), &cmd.Points); err != nil {
			return nil, fmt.Errorf("unmarshal points of %s: %w", cmd.ID, err)
		}
		commands = append(commands, &cmd)
	}

	return commands, rows.Err()
}

// DeleteCommands removes every command of the room.
func (s *SQLiteStore) DeleteCommands(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drawing_commands WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("delete commands: %w", err)
	}
	return nil
}
