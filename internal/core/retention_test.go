package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoopHub builds a hub whose handlers are driven directly by the test
// instead of by Run.
func newLoopHub(mirror Mirror) *Hub {
	h := NewHub(HubConfig{GracePeriod: time.Hour}, mirror, nil)
	h.ctx = context.Background()
	return h
}

func attach(h *Hub, id string) *Client {
	c := NewClient(id, 64)
	h.clients[c.ID] = c
	return c
}

func TestEvictionRechecksMembershipAtFireTime(t *testing.T) {
	mirror := &fakeMirror{}
	h := newLoopHub(nil)
	h.mirror = mirror
	alice := attach(h, "a")

	// Skip restoration so the flow stays synchronous.
	h.handle(alice, &Command{Kind: CommandJoinRoom, Room: "KEEP01", UserID: "alice"})
	room, ok := h.rooms.get("KEEP01")
	require.True(t, ok)
	room.restored = true

	h.handle(alice, &Command{Kind: CommandDrawEnd, Stroke: Stroke{Points: []Point{{X: 1, Y: 1}}, Tool: ToolPen}})
	h.handle(alice, &Command{Kind: CommandLeaveRoom})
	firstGen := room.evictGen
	require.Equal(t, uint64(1), firstGen)

	// Rejoin before the timer fires: eviction must not happen.
	h.handle(alice, &Command{Kind: CommandJoinRoom, Room: "KEEP01", UserID: "alice"})
	h.evict(eviction{room: room, gen: firstGen})
	_, ok = h.rooms.get("KEEP01")
	require.True(t, ok)

	// Leave again; the stale timer is ignored, the newest one evicts.
	h.handle(alice, &Command{Kind: CommandLeaveRoom})
	h.evict(eviction{room: room, gen: firstGen})
	_, ok = h.rooms.get("KEEP01")
	require.True(t, ok, "stale timer must not evict")

	h.evict(eviction{room: room, gen: room.evictGen})
	_, ok = h.rooms.get("KEEP01")
	require.False(t, ok)

	_, _, discards, _ := mirror.snapshot()
	assert.Equal(t, []string{"KEEP01"}, discards)
}

func TestEmptyRoomWithoutLogIsRemovedAtOnce(t *testing.T) {
	h := newLoopHub(nil)
	alice := attach(h, "a")

	h.handle(alice, &Command{Kind: CommandJoinRoom, Room: "EMPTY1", UserID: "alice"})
	h.handle(alice, &Command{Kind: CommandLeaveRoom})

	_, ok := h.rooms.get("EMPTY1")
	assert.False(t, ok)
	assert.Zero(t, h.sessions.count())
}

func TestEvictionIgnoresReplacedRoom(t *testing.T) {
	h := newLoopHub(nil)
	alice := attach(h, "a")

	h.handle(alice, &Command{Kind: CommandJoinRoom, Room: "SWAP01", UserID: "alice"})
	h.handle(alice, &Command{Kind: CommandDrawEnd, Stroke: Stroke{Points: []Point{{X: 1, Y: 1}}}})
	h.handle(alice, &Command{Kind: CommandLeaveRoom})
	old, _ := h.rooms.get("SWAP01")

	h.rooms.remove("SWAP01")
	h.handle(alice, &Command{Kind: CommandJoinRoom, Room: "SWAP01", UserID: "alice"})
	h.evict(eviction{room: old, gen: old.evictGen})

	_, ok := h.rooms.get("SWAP01")
	assert.True(t, ok)
}

func TestGraceWindowKeepsThenDropsLog(t *testing.T) {
	hub := startHub(t, HubConfig{GracePeriod: 300 * time.Millisecond}, nil)

	alice := connect(hub, "a")
	join(alice, "GRACE1", "alice")
	mustEvent(t, alice.Events, EventDrawingData)
	drawEnd(alice, Point{X: 1, Y: 1})
	alice.Commands <- &Command{Kind: CommandLeaveRoom}

	bob := connect(hub, "b")
	require.Eventually(t, func() bool {
		st, err := hub.Stats(context.Background())
		return err == nil && st.Sessions == 0
	}, time.Second, 5*time.Millisecond)

	join(bob, "grace1", "bob")
	snap := mustEvent(t, bob.Events, EventDrawingData)
	assert.Len(t, snap.Commands, 1, "log survives a rejoin inside the grace window")

	bob.Commands <- &Command{Kind: CommandLeaveRoom}
	require.Eventually(t, func() bool {
		_, found, err := hub.RoomState(context.Background(), "GRACE1")
		return err == nil && !found
	}, 3*time.Second, 10*time.Millisecond, "room should be evicted after the grace window")

	carol := connect(hub, "c")
	join(carol, "GRACE1", "carol")
	snap = mustEvent(t, carol.Events, EventDrawingData)
	assert.Empty(t, snap.Commands)
}

func TestJoinRestoresLogFromMirror(t *testing.T) {
	mirror := &fakeMirror{log: []DrawingCommand{
		{ID: "old-1", Type: CommandTypeStroke, UserID: "someone", Stroke: &Stroke{Points: []Point{{X: 1, Y: 1}}}},
	}}
	hub := startHub(t, HubConfig{}, mirror)

	alice := connect(hub, "a")
	join(alice, "REST01", "alice")
	snap := mustEvent(t, alice.Events, EventDrawingData)
	require.Len(t, snap.Commands, 1)
	assert.Equal(t, "old-1", snap.Commands[0].ID)

	bob := connect(hub, "b")
	join(bob, "REST01", "bob")
	snap = mustEvent(t, bob.Events, EventDrawingData)
	assert.Len(t, snap.Commands, 1)

	drawEnd(alice, Point{X: 2, Y: 2})
	mustEvent(t, bob.Events, EventDrawEnd)
	alice.Commands <- &Command{Kind: CommandClearCanvas}
	mustEvent(t, bob.Events, EventClearCanvas)

	metas, appended, _, loads := mirror.snapshot()
	assert.Equal(t, 1, loads, "a restored room is not loaded twice")
	assert.Equal(t, []int{1, 2}, metas)
	require.Len(t, appended, 2)
	assert.Equal(t, CommandTypeStroke, appended[0].Type)
	assert.Equal(t, CommandTypeClear, appended[1].Type)
}

func TestRestoreMergesStrokesDrawnWhileLoading(t *testing.T) {
	mirror := &fakeMirror{
		log:     []DrawingCommand{{ID: "old-1", Type: CommandTypeStroke, Stroke: &Stroke{}}},
		release: make(chan struct{}),
	}
	hub := startHub(t, HubConfig{}, mirror)

	alice := connect(hub, "a")
	join(alice, "MERGE1", "alice")
	mustEvent(t, alice.Events, EventUserJoined)
	drawEnd(alice, Point{X: 9, Y: 9})

	require.Eventually(t, func() bool {
		_, appended, _, _ := mirror.snapshot()
		return len(appended) == 1
	}, time.Second, 5*time.Millisecond)
	close(mirror.release)

	snap := mustEvent(t, alice.Events, EventDrawingData)
	require.Len(t, snap.Commands, 2, "persisted copy of the live stroke must not be duplicated")
	assert.Equal(t, "old-1", snap.Commands[0].ID)
	assert.Equal(t, 9.0, snap.Commands[1].Stroke.Points[0].X)
}

func TestRestoreDiscardedAfterClear(t *testing.T) {
	mirror := &fakeMirror{
		log:     []DrawingCommand{{ID: "old-1", Type: CommandTypeStroke, Stroke: &Stroke{}}},
		release: make(chan struct{}),
	}
	hub := startHub(t, HubConfig{}, mirror)

	alice := connect(hub, "a")
	join(alice, "CLEAR1", "alice")
	alice.Commands <- &Command{Kind: CommandClearCanvas}
	mustEvent(t, alice.Events, EventClearCanvas)
	close(mirror.release)

	snap := mustEvent(t, alice.Events, EventDrawingData)
	assert.Empty(t, snap.Commands)
}

func TestRestoreFailureFallsBackToMemory(t *testing.T) {
	mirror := &fakeMirror{loadErr: errors.New("disk on fire")}
	hub := startHub(t, HubConfig{}, mirror)

	alice := connect(hub, "a")
	bob := connect(hub, "b")
	join(alice, "FAIL01", "alice")
	snap := mustEvent(t, alice.Events, EventDrawingData)
	assert.Empty(t, snap.Commands)

	join(bob, "FAIL01", "bob")
	mustEvent(t, bob.Events, EventDrawingData)
	drawEnd(alice, Point{X: 1, Y: 1})
	mustEvent(t, bob.Events, EventDrawEnd)
}
