package core

// CommandType tags an entry of a room's drawing log.
type CommandType string

const (
	// CommandTypeStroke is a completed stroke.
	CommandTypeStroke CommandType = "stroke"
	// CommandTypeClear truncates the log.
	CommandTypeClear CommandType = "clear"
)

// Tool selects how a stroke is composited onto the canvas.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	return t == ToolPen || t == ToolEraser
}

// Point is a canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// Stroke describes a pen stroke. Points is empty for draw-start hints.
type Stroke struct {
	Points []Point
	Color  string
	Width  float64
	Tool   Tool
}

// DrawingCommand is one recorded canvas mutation.
type DrawingCommand struct {
	ID           string
	Type         CommandType
	UserID       string
	ConnectionID string
	Timestamp    int64 // epoch milliseconds
	Stroke       *Stroke
}
