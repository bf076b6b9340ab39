package http

import (
	"encoding/json"

	"github.com/vovakirdan/drawrelay-server/internal/core"
	"github.com/vovakirdan/drawrelay-server/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

// inboundToCommand validates a client message and maps it onto a core
// command. A non-nil *proto.Error is reported back to the sender only.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, badRequest("invalid join-room payload")
		}
		roomID, err := core.ValidateRoomID(join.RoomID)
		if err != nil {
			ce := core.AsCoreError(err)
			return nil, &proto.Error{Code: ce.Code, Msg: ce.Message}
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: roomID, UserID: join.UserID}, nil

	case proto.InboundTypeLeaveRoom:
		return &core.Command{Kind: core.CommandLeaveRoom}, nil

	case proto.InboundTypeClearCanvas:
		return &core.Command{Kind: core.CommandClearCanvas}, nil

	case proto.InboundTypeCursorMove:
		var move proto.CursorMoveData
		if err := decodeData(inbound.Data, &move); err != nil {
			return nil, badRequest("invalid cursor-move payload")
		}
		return &core.Command{Kind: core.CommandCursorMove, Point: core.Point{X: move.X, Y: move.Y}}, nil

	case proto.InboundTypeDrawStart:
		var start proto.DrawStartData
		if err := decodeData(inbound.Data, &start); err != nil {
			return nil, badRequest("invalid draw-start payload")
		}
		tool, perr := parseTool(start.Tool, start.Width)
		if perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:   core.CommandDrawStart,
			Point:  toCorePoint(start.Point),
			Stroke: core.Stroke{Color: start.Color, Width: start.Width, Tool: tool},
		}, nil

	case proto.InboundTypeDrawMove:
		var move proto.DrawMoveData
		if err := decodeData(inbound.Data, &move); err != nil {
			return nil, badRequest("invalid draw-move payload")
		}
		return &core.Command{Kind: core.CommandDrawMove, Point: toCorePoint(move.Point)}, nil

	case proto.InboundTypeDrawEnd:
		var end proto.DrawEndData
		if err := decodeData(inbound.Data, &end); err != nil {
			return nil, badRequest("invalid draw-end payload")
		}
		if len(end.Path) == 0 {
			return nil, badRequest("path is required")
		}
		tool, perr := parseTool(end.Tool, end.Width)
		if perr != nil {
			return nil, perr
		}
		points := make([]core.Point, len(end.Path))
		for i, p := range end.Path {
			points[i] = toCorePoint(p)
		}
		return &core.Command{
			Kind:   core.CommandDrawEnd,
			Stroke: core.Stroke{Points: points, Color: end.Color, Width: end.Width, Tool: tool},
		}, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, dst)
}

func parseTool(raw string, width float64) (core.Tool, *proto.Error) {
	if width < 0 {
		return "", badRequest("width must not be negative")
	}
	if raw == "" {
		return core.ToolPen, nil
	}
	tool := core.Tool(raw)
	if !tool.Valid() {
		return "", badRequest("unknown tool")
	}
	return tool, nil
}

func toCorePoint(p proto.Point) core.Point {
	return core.Point{X: p.X, Y: p.Y}
}

func toProtoPoints(points []core.Point) []proto.Point {
	out := make([]proto.Point, len(points))
	for i, p := range points {
		out[i] = proto.Point{X: p.X, Y: p.Y}
	}
	return out
}

func toProtoCommands(commands []core.DrawingCommand) []proto.DrawingCommand {
	out := make([]proto.DrawingCommand, 0, len(commands))
	for _, cmd := range commands {
		dc := proto.DrawingCommand{
			ID:           cmd.ID,
			Type:         string(cmd.Type),
			UserID:       cmd.UserID,
			ConnectionID: cmd.ConnectionID,
			Timestamp:    cmd.Timestamp,
		}
		if cmd.Stroke != nil {
			dc.Path = toProtoPoints(cmd.Stroke.Points)
			dc.Color = cmd.Stroke.Color
			dc.Width = cmd.Stroke.Width
			dc.Tool = string(cmd.Stroke.Tool)
		}
		out = append(out, dc)
	}
	return out
}

func errorOutbound(e *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: e}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	origin := proto.Origin{
		RoomID:       event.Room,
		UserID:       event.UserID,
		ConnectionID: event.ConnectionID,
		Timestamp:    event.Timestamp,
	}
	out := proto.Outbound{Type: proto.OutboundTypeEvent}

	switch event.Kind {
	case core.EventDrawingData:
		out.Event = proto.EventDrawingData
		out.Data = proto.EventDrawingDataPayload{Origin: origin, Commands: toProtoCommands(event.Commands)}
	case core.EventUserJoined:
		out.Event = proto.EventUserJoined
		out.Data = proto.EventMembershipPayload{Origin: origin, UserCount: event.UserCount}
	case core.EventUserLeft:
		out.Event = proto.EventUserLeft
		out.Data = proto.EventMembershipPayload{Origin: origin, UserCount: event.UserCount}
	case core.EventUserCount:
		out.Event = proto.EventUserCount
		out.Data = proto.EventMembershipPayload{Origin: origin, UserCount: event.UserCount}
	case core.EventCursorMove:
		out.Event = proto.EventCursorMove
		payload := proto.EventCursorPayload{Origin: origin}
		if event.Point != nil {
			payload.X, payload.Y = event.Point.X, event.Point.Y
		}
		out.Data = payload
	case core.EventDrawStart:
		out.Event = proto.EventDrawStart
		payload := proto.EventDrawStartPayload{Origin: origin}
		if event.Point != nil {
			payload.Point = proto.Point{X: event.Point.X, Y: event.Point.Y}
		}
		if event.Stroke != nil {
			payload.Color = event.Stroke.Color
			payload.Width = event.Stroke.Width
			payload.Tool = string(event.Stroke.Tool)
		}
		out.Data = payload
	case core.EventDrawMove:
		out.Event = proto.EventDrawMove
		payload := proto.EventDrawMovePayload{Origin: origin}
		if event.Point != nil {
			payload.Point = proto.Point{X: event.Point.X, Y: event.Point.Y}
		}
		out.Data = payload
	case core.EventDrawEnd:
		out.Event = proto.EventDrawEnd
		payload := proto.EventDrawEndPayload{Origin: origin}
		if event.Stroke != nil {
			payload.Path = toProtoPoints(event.Stroke.Points)
			payload.Color = event.Stroke.Color
			payload.Width = event.Stroke.Width
			payload.Tool = string(event.Stroke.Tool)
		}
		out.Data = payload
	case core.EventClearCanvas:
		out.Event = proto.EventClearCanvas
		out.Data = proto.EventClearCanvasPayload{Origin: origin}
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.Error{Code: core.ErrCodeInternal, Msg: "unknown error"})
		}
		return errorOutbound(&proto.Error{Code: event.Error.Code, Msg: event.Error.Message})
	}
	return out
}
