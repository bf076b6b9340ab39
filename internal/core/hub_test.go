package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubJoinSnapshotAndDrawScenario(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	bob := connect(hub, "b")

	join(alice, "ABC123", "alice")
	snap := mustEvent(t, alice.Events, EventDrawingData)
	assert.Equal(t, "ABC123", snap.Room)
	assert.Empty(t, snap.Commands)
	joined := mustEvent(t, alice.Events, EventUserJoined)
	assert.Equal(t, 1, joined.UserCount)
	assert.Equal(t, "alice", joined.UserID)

	join(bob, "abc123 ", "bob")
	snap = mustEvent(t, bob.Events, EventDrawingData)
	assert.Equal(t, "ABC123", snap.Room, "room id must be normalized")
	assert.Empty(t, snap.Commands)
	joined = mustEvent(t, bob.Events, EventUserJoined)
	assert.Equal(t, 2, joined.UserCount)

	// Alice sees Bob arrive and the new count.
	joined = mustEvent(t, alice.Events, EventUserJoined)
	assert.Equal(t, "bob", joined.UserID)
	assert.Equal(t, "b", joined.ConnectionID)
	count := mustEvent(t, alice.Events, EventUserCount)
	assert.Equal(t, 2, count.UserCount)

	drawEnd(alice, Point{X: 1, Y: 1}, Point{X: 2, Y: 2}, Point{X: 3, Y: 3})
	stroke := mustEvent(t, bob.Events, EventDrawEnd)
	require.NotNil(t, stroke.Stroke)
	assert.Len(t, stroke.Stroke.Points, 3)
	assert.Equal(t, "alice", stroke.UserID)
	assert.Equal(t, "a", stroke.ConnectionID)
	assert.NotZero(t, stroke.Timestamp)

	alice.Commands <- &Command{Kind: CommandClearCanvas}
	cleared := mustEvent(t, alice.Events, EventClearCanvas)
	assert.Equal(t, "alice", cleared.UserID)
	cleared = mustEvent(t, bob.Events, EventClearCanvas)
	assert.Equal(t, "alice", cleared.UserID)

	carol := connect(hub, "c")
	join(carol, "ABC123", "carol")
	snap = mustEvent(t, carol.Events, EventDrawingData)
	assert.Empty(t, snap.Commands, "clear must empty the replayed log")
}

func TestHubTransientEventsSkipSender(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	bob := connect(hub, "b")
	join(alice, "ROOM01", "alice")
	join(bob, "ROOM01", "bob")
	mustEvent(t, bob.Events, EventDrawingData)

	alice.Commands <- &Command{Kind: CommandCursorMove, Point: Point{X: 10, Y: 20}}
	alice.Commands <- &Command{Kind: CommandDrawStart, Point: Point{X: 1, Y: 1}, Stroke: Stroke{Color: "#fff", Width: 4, Tool: ToolEraser}}
	alice.Commands <- &Command{Kind: CommandDrawMove, Point: Point{X: 2, Y: 2}}

	cursor := mustEvent(t, bob.Events, EventCursorMove)
	require.NotNil(t, cursor.Point)
	assert.Equal(t, Point{X: 10, Y: 20}, *cursor.Point)
	assert.Equal(t, "alice", cursor.UserID)

	start := mustEvent(t, bob.Events, EventDrawStart)
	require.NotNil(t, start.Stroke)
	assert.Equal(t, ToolEraser, start.Stroke.Tool)
	assert.Equal(t, 4.0, start.Stroke.Width)

	move := mustEvent(t, bob.Events, EventDrawMove)
	assert.Equal(t, Point{X: 2, Y: 2}, *move.Point)

	noEvent(t, alice.Events, EventCursorMove, 100*time.Millisecond)

	// Transient events are never recorded.
	state, found, err := hub.RoomState(context.Background(), "ROOM01")
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, state.Commands)
}

func TestHubSnapshotKeepsCompletionOrder(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	join(alice, "ORDER1", "alice")
	mustEvent(t, alice.Events, EventDrawingData)

	const strokes = 5
	for i := 0; i < strokes; i++ {
		drawEnd(alice, Point{X: float64(i), Y: float64(i)})
	}
	require.Eventually(t, func() bool {
		state, _, err := hub.RoomState(context.Background(), "ORDER1")
		return err == nil && len(state.Commands) == strokes
	}, 2*time.Second, 10*time.Millisecond)

	late := connect(hub, "late")
	join(late, "ORDER1", "late")
	snap := mustEvent(t, late.Events, EventDrawingData)
	require.Len(t, snap.Commands, strokes)
	for i, cmd := range snap.Commands {
		assert.Equal(t, CommandTypeStroke, cmd.Type)
		assert.Equal(t, float64(i), cmd.Stroke.Points[0].X)
		assert.Equal(t, "alice", cmd.UserID)
		assert.NotEmpty(t, cmd.ID)
	}
}

func TestHubOrphanEventsAreDropped(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	ghost := connect(hub, "ghost")
	drawEnd(ghost, Point{X: 1, Y: 1})
	ghost.Commands <- &Command{Kind: CommandCursorMove}
	ghost.Commands <- &Command{Kind: CommandClearCanvas}
	noEvent(t, ghost.Events, EventError, 100*time.Millisecond)

	join(ghost, "GHOST1", "ghost")
	snap := mustEvent(t, ghost.Events, EventDrawingData)
	assert.Empty(t, snap.Commands)
}

func TestHubJoinMigratesBetweenRooms(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	bob := connect(hub, "b")
	join(bob, "FIRST1", "bob")
	mustEvent(t, bob.Events, EventDrawingData)

	join(alice, "FIRST1", "alice")
	mustEvent(t, alice.Events, EventDrawingData)
	join(alice, "SECOND", "alice")
	mustEvent(t, alice.Events, EventDrawingData)

	left := mustEvent(t, bob.Events, EventUserLeft)
	assert.Equal(t, "alice", left.UserID)
	assert.Equal(t, 1, left.UserCount)

	st, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Sessions)
	assert.Equal(t, 2, st.ActiveRooms)

	// Alice no longer hears FIRST1.
	drawEnd(bob, Point{X: 1, Y: 1})
	noEvent(t, alice.Events, EventDrawEnd, 100*time.Millisecond)
}

func TestHubLeaveIsIdempotent(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	bob := connect(hub, "b")
	join(alice, "LEAVE1", "alice")
	join(bob, "LEAVE1", "bob")
	mustEvent(t, bob.Events, EventDrawingData)

	alice.Commands <- &Command{Kind: CommandLeaveRoom}
	alice.Commands <- &Command{Kind: CommandLeaveRoom}

	left := mustEvent(t, bob.Events, EventUserLeft)
	assert.Equal(t, "alice", left.UserID)
	count := mustEvent(t, bob.Events, EventUserCount)
	assert.Equal(t, 1, count.UserCount)
	noEvent(t, bob.Events, EventUserLeft, 100*time.Millisecond)

	// A departed member must not receive later strokes.
	drawEnd(bob, Point{X: 5, Y: 5})
	noEvent(t, alice.Events, EventDrawEnd, 100*time.Millisecond)
}

func TestHubUnregisterActsAsLeave(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	bob := connect(hub, "b")
	join(alice, "DISC01", "alice")
	join(bob, "DISC01", "bob")
	mustEvent(t, alice.Events, EventDrawingData)
	mustEvent(t, bob.Events, EventDrawingData)

	hub.UnregisterClient(alice)
	hub.UnregisterClient(alice)

	left := mustEvent(t, bob.Events, EventUserLeft)
	assert.Equal(t, "alice", left.UserID)

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-alice.Events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond, "events channel should be closed")

	st, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Sessions)
}

func TestHubInvalidRoomProducesError(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	join(alice, "AB", "alice")

	ev := mustEvent(t, alice.Events, EventError)
	require.NotNil(t, ev.Error)
	assert.Equal(t, ErrCodeInvalidRoom, ev.Error.Code)

	st, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Sessions)
	assert.Zero(t, st.ActiveRooms)
}

func TestHubGeneratesUserID(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	alice := connect(hub, "a")
	join(alice, "ANON01", "")
	ev := mustEvent(t, alice.Events, EventUserJoined)
	assert.Regexp(t, `^user-[0-9a-f]{8}$`, ev.UserID)
}

func TestHubQueriesAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(HubConfig{}, nil, nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	_, err := hub.Stats(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestHubDisconnectKeepsInFlightStroke(t *testing.T) {
	hub := startHub(t, HubConfig{}, nil)

	for i := 0; i < 50; i++ {
		room := fmt.Sprintf("RACE%02d", i)
		alice := connect(hub, "a-"+room)
		bob := connect(hub, "b-"+room)
		join(alice, room, "alice")
		join(bob, room, "bob")
		mustEvent(t, alice.Events, EventDrawingData)
		mustEvent(t, bob.Events, EventDrawingData)

		drawEnd(alice, Point{X: float64(i), Y: 1})
		hub.UnregisterClient(alice)

		// The stroke is relayed before alice leaves.
		stroke := mustEvent(t, bob.Events, EventDrawEnd)
		assert.Equal(t, "alice", stroke.UserID)
		left := mustEvent(t, bob.Events, EventUserLeft)
		assert.Equal(t, 1, left.UserCount)

		carol := connect(hub, "c-"+room)
		join(carol, room, "carol")
		snap := mustEvent(t, carol.Events, EventDrawingData)
		require.Len(t, snap.Commands, 1, "room %s lost the stroke sent before disconnect", room)
		assert.Equal(t, "a-"+room, snap.Commands[0].ConnectionID)
	}
}

func TestHubTouchRoomWritesLiveCount(t *testing.T) {
	mirror := &fakeMirror{}
	hub := startHub(t, HubConfig{}, mirror)

	alice := connect(hub, "a")
	join(alice, "TOUCH1", "alice")
	mustEvent(t, alice.Events, EventDrawingData)

	require.NoError(t, hub.TouchRoom(context.Background(), "TOUCH1"))
	require.NoError(t, hub.TouchRoom(context.Background(), "COLD01"))

	metas, _, _, _ := mirror.snapshot()
	require.Len(t, metas, 3)
	assert.Equal(t, []int{1, 1, 0}, metas)
}
