package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("events channel closed while waiting for kind %v", kind)
			}
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of the given kind shows up within wait.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

// startHub runs a hub for the lifetime of the test.
func startHub(t *testing.T, cfg HubConfig, mirror Mirror) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(cfg, mirror, nil)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func connect(hub *Hub, id string) *Client {
	c := NewClient(id, 0)
	hub.RegisterClient(c)
	return c
}

func join(c *Client, room, user string) {
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, UserID: user}
}

func drawEnd(c *Client, points ...Point) {
	c.Commands <- &Command{
		Kind: CommandDrawEnd,
		Stroke: Stroke{
			Points: points,
			Color:  "#000000",
			Width:  2,
			Tool:   ToolPen,
		},
	}
}

// fakeMirror records calls and serves a canned log.
type fakeMirror struct {
	mu       sync.Mutex
	metas    []int
	appended []DrawingCommand
	discards []string
	loads    int

	log     []DrawingCommand
	loadErr error
	// release, when set, blocks LoadLog until closed.
	release chan struct{}
}

func (m *fakeMirror) UpsertRoomMeta(_ string, activeUsers int, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas = append(m.metas, activeUsers)
}

func (m *fakeMirror) AppendCommand(_ string, cmd DrawingCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, cmd)
}

func (m *fakeMirror) DiscardLog(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discards = append(m.discards, roomID)
}

func (m *fakeMirror) LoadLog(ctx context.Context, _ string) ([]DrawingCommand, error) {
	m.mu.Lock()
	m.loads++
	release := m.release
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := append([]DrawingCommand(nil), m.log...)
	// Strokes persisted while the load was in flight show up too.
	for _, cmd := range m.appended {
		if cmd.Type == CommandTypeStroke {
			out = append(out, cmd)
		}
	}
	return out, nil
}

func (m *fakeMirror) snapshot() (metas []int, appended []DrawingCommand, discards []string, loads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.metas...),
		append([]DrawingCommand(nil), m.appended...),
		append([]string(nil), m.discards...),
		m.loads
}
