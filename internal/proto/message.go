package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinRoom    = "join-room"
	InboundTypeLeaveRoom   = "leave-room"
	InboundTypeCursorMove  = "cursor-move"
	InboundTypeDrawStart   = "draw-start"
	InboundTypeDrawMove    = "draw-move"
	InboundTypeDrawEnd     = "draw-end"
	InboundTypeClearCanvas = "clear-canvas"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventDrawingData = "drawing-data"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
	EventUserCount   = "user-count"
	EventCursorMove  = "cursor-move"
	EventDrawStart   = "draw-start"
	EventDrawMove    = "draw-move"
	EventDrawEnd     = "draw-end"
	EventClearCanvas = "clear-canvas"
)

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JoinRoomData requests to join a room. UserID is optional.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId,omitempty"`
}

// CursorMoveData shares the pointer position.
type CursorMoveData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawStartData hints that a stroke has begun.
type DrawStartData struct {
	Point Point   `json:"point"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Tool  string  `json:"tool"`
}

// DrawMoveData carries an intermediate stroke point.
type DrawMoveData struct {
	Point Point `json:"point"`
}

// DrawEndData completes a stroke.
type DrawEndData struct {
	Path  []Point `json:"path"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Tool  string  `json:"tool"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Origin identifies who caused an event. Every event payload embeds it.
type Origin struct {
	RoomID       string `json:"roomId"`
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	Timestamp    int64  `json:"timestamp"`
}

// DrawingCommand is one entry of a replayed room log.
type DrawingCommand struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	UserID       string  `json:"userId"`
	ConnectionID string  `json:"connectionId"`
	Timestamp    int64   `json:"timestamp"`
	Path         []Point `json:"path,omitempty"`
	Color        string  `json:"color,omitempty"`
	Width        float64 `json:"width,omitempty"`
	Tool         string  `json:"tool,omitempty"`
}

// EventDrawingDataPayload replays the room log to a joiner.
type EventDrawingDataPayload struct {
	Origin
	Commands []DrawingCommand `json:"commands"`
}

// EventMembershipPayload is sent for user-joined, user-left and user-count.
type EventMembershipPayload struct {
	Origin
	UserCount int `json:"userCount"`
}

// EventCursorPayload relays a pointer position.
type EventCursorPayload struct {
	Origin
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EventDrawStartPayload relays a stroke-begin hint.
type EventDrawStartPayload struct {
	Origin
	Point Point   `json:"point"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Tool  string  `json:"tool"`
}

// EventDrawMovePayload relays an intermediate stroke point.
type EventDrawMovePayload struct {
	Origin
	Point Point `json:"point"`
}

// EventDrawEndPayload relays a completed stroke.
type EventDrawEndPayload struct {
	Origin
	Path  []Point `json:"path"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Tool  string  `json:"tool"`
}

// EventClearCanvasPayload tells members to wipe the canvas.
type EventClearCanvasPayload struct {
	Origin
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
