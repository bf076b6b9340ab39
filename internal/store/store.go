package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a room has no persisted record.
var ErrNotFound = errors.New("not found")

// Room is the persisted metadata of a drawing room.
type Room struct {
	ID           string
	ActiveUsers  int
	CreatedAt    time.Time
	LastActivity time.Time
}

// CommandType tags a persisted drawing command.
type CommandType string

const (
	CommandTypeStroke CommandType = "stroke"
	CommandTypeClear  CommandType = "clear"
)

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command represents one persisted drawing command.
// Stroke fields are empty for clear commands.
type Command struct {
	ID           string      `json:"id"`
	RoomID       string      `json:"roomId"`
	Type         CommandType `json:"type"`
	UserID       string      `json:"userId"`
	ConnectionID string      `json:"connectionId"`
	Timestamp    int64       `json:"timestamp"`
	Points       []Point     `json:"points,omitempty"`
	Color        string      `json:"color,omitempty"`
	Width        float64     `json:"width,omitempty"`
	Tool         string      `json:"tool,omitempty"`
}

// RoomStore handles room metadata persistence.
type RoomStore interface {
	// UpsertRoom creates the room record or updates its user count and activity time.
	// CreatedAt is only written on insert.
	UpsertRoom(ctx context.Context, room *Room) error

	// GetRoom retrieves a room by its normalized id.
	// Returns ErrNotFound if the room has no record.
	GetRoom(ctx context.Context, id string) (*Room, error)
}

// CommandStore handles drawing log persistence.
type CommandStore interface {
	// AppendCommand appends a command to the room's log.
	// A clear command truncates the log instead of being stored.
	AppendCommand(ctx context.Context, cmd *Command) error

	// ListCommands returns the room's log in append order.
	ListCommands(ctx context.Context, roomID string) ([]*Command, error)

	// DeleteCommands discards the room's whole log.
	DeleteCommands(ctx context.Context, roomID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	CommandStore

	// Close releases the underlying connection.
	Close() error
}
