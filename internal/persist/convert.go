package persist

import (
	"github.com/vovakirdan/drawrelay-server/internal/core"
	"github.com/vovakirdan/drawrelay-server/internal/store"
)

// ToStore maps a relay command onto its persisted form.
func ToStore(roomID string, cmd core.DrawingCommand) *store.Command {
	rec := &store.Command{
		ID:           cmd.ID,
		RoomID:       roomID,
		Type:         store.CommandType(cmd.Type),
		UserID:       cmd.UserID,
		ConnectionID: cmd.ConnectionID,
		Timestamp:    cmd.Timestamp,
	}
	if cmd.Stroke != nil {
		rec.Points = make([]store.Point, len(cmd.Stroke.Points))
		for i, p := range cmd.Stroke.Points {
			rec.Points[i] = store.Point{X: p.X, Y: p.Y}
		}
		rec.Color = cmd.Stroke.Color
		rec.Width = cmd.Stroke.Width
		rec.Tool = string(cmd.Stroke.Tool)
	}
	return rec
}

// FromStore maps persisted records back onto relay commands.
func FromStore(recs []*store.Command) []core.DrawingCommand {
	out := make([]core.DrawingCommand, 0, len(recs))
	for _, rec := range recs {
		cmd := core.DrawingCommand{
			ID:           rec.ID,
			Type:         core.CommandType(rec.Type),
			UserID:       rec.UserID,
			ConnectionID: rec.ConnectionID,
			Timestamp:    rec.Timestamp,
		}
		if cmd.Type == core.CommandTypeStroke {
			points := make([]core.Point, len(rec.Points))
			for i, p := range rec.Points {
				points[i] = core.Point{X: p.X, Y: p.Y}
			}
			cmd.Stroke = &core.Stroke{
				Points: points,
				Color:  rec.Color,
				Width:  rec.Width,
				Tool:   core.Tool(rec.Tool),
			}
		}
		out = append(out, cmd)
	}
	return out
}
