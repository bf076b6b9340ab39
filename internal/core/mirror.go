package core

import (
	"context"
	"time"
)

// Mirror abstracts durable storage of room state for the Hub.
// Write methods must not block: the hub calls them from its relay loop after
// the in-memory update and fan-out are done, and never looks at the outcome.
type Mirror interface {
	// UpsertRoomMeta records the member count and last activity of a room.
	UpsertRoomMeta(roomID string, activeUsers int, lastActivity time.Time)

	// AppendCommand records a completed stroke or a clear.
	AppendCommand(roomID string, cmd DrawingCommand)

	// DiscardLog drops the persisted log of an evicted room.
	DiscardLog(roomID string)

	// LoadLog returns the persisted log of a room in append order.
	// The hub only calls it off the relay loop.
	LoadLog(ctx context.Context, roomID string) ([]DrawingCommand, error)
}
