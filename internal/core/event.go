package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventDrawingData delivers the room log to a joiner.
	EventDrawingData EventKind = iota
	// EventUserJoined confirms a join to the whole room, joiner included.
	EventUserJoined
	// EventUserLeft tells remaining members that someone left.
	EventUserLeft
	// EventUserCount carries the updated member count.
	EventUserCount
	// EventCursorMove relays a pointer position.
	EventCursorMove
	// EventDrawStart relays a stroke-begin hint.
	EventDrawStart
	// EventDrawMove relays an intermediate stroke point.
	EventDrawMove
	// EventDrawEnd relays a completed stroke.
	EventDrawEnd
	// EventClearCanvas tells every member, sender included, to wipe the canvas.
	EventClearCanvas
	// EventError notifies a single client about a failure.
	EventError
)

// Event is sent to clients to describe what happened in a room.
// UserID, ConnectionID and Timestamp identify the originator of the event.
type Event struct {
	Kind         EventKind
	Room         string
	UserID       string
	ConnectionID string
	Timestamp    int64 // epoch milliseconds
	UserCount    int
	Point        *Point
	Stroke       *Stroke
	Commands     []DrawingCommand // for EventDrawingData
	Error        *CoreError
}
