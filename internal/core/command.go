package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom binds the connection to a room, leaving any previous one.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom drops the connection's session.
	CommandLeaveRoom
	// CommandCursorMove shares the pointer position.
	CommandCursorMove
	// CommandDrawStart hints that a stroke has begun.
	CommandDrawStart
	// CommandDrawMove carries an intermediate stroke point.
	CommandDrawMove
	// CommandDrawEnd completes a stroke; the only drawing input that is recorded.
	CommandDrawEnd
	// CommandClearCanvas truncates the room log.
	CommandClearCanvas
)

// Command represents an action requested by a client.
type Command struct {
	Kind   CommandKind
	Room   string
	UserID string
	Point  Point
	Stroke Stroke
}

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join-room"
	case CommandLeaveRoom:
		return "leave-room"
	case CommandCursorMove:
		return "cursor-move"
	case CommandDrawStart:
		return "draw-start"
	case CommandDrawMove:
		return "draw-move"
	case CommandDrawEnd:
		return "draw-end"
	case CommandClearCanvas:
		return "clear-canvas"
	default:
		return "unknown"
	}
}
