package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/drawrelay-server/internal/utils"
)

// DefaultGracePeriod is how long an empty room keeps its log.
const DefaultGracePeriod = 5 * time.Minute

// HubConfig tunes the relay.
type HubConfig struct {
	// GracePeriod is the retention window of an empty room's log.
	GracePeriod time.Duration
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Stats is a point-in-time view of the relay for the health endpoint.
type Stats struct {
	ActiveRooms   int
	RetainedRooms int
	Sessions      int
}

// RoomState is a copy of a room as currently held in memory.
type RoomState struct {
	ID           string
	Commands     []DrawingCommand
	ActiveUsers  int
	CreatedAt    time.Time
	LastActivity time.Time
}

// inbound carries a client's command into the relay loop. A nil cmd marks
// the end of the client's stream.
type inbound struct {
	client *Client
	cmd    *Command
}

type restoreResult struct {
	room     *Room
	commands []DrawingCommand
	err      error
}

type eviction struct {
	room *Room
	gen  uint64
}

// Hub is the broadcast relay. A single goroutine (Run) owns the session
// registry and the room directory; everything else talks to it over channels.
type Hub struct {
	cfg    HubConfig
	mirror Mirror
	log    *zerolog.Logger

	register  chan *Client
	inbound   chan inbound
	requests  chan func()
	restored  chan restoreResult
	evictions chan eviction
	done      chan struct{}

	ctx      context.Context
	clients  map[string]*Client
	sessions *sessions
	rooms    *directory
}

// NewHub creates a relay. mirror and logger may be nil.
func NewHub(cfg HubConfig, mirror Mirror, logger *zerolog.Logger) *Hub {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		cfg:       cfg,
		mirror:    mirror,
		log:       logger,
		register:  make(chan *Client),
		inbound:   make(chan inbound, 256),
		requests:  make(chan func()),
		restored:  make(chan restoreResult, 16),
		evictions: make(chan eviction, 16),
		done:      make(chan struct{}),
		clients:   make(map[string]*Client),
		sessions:  newSessions(),
		rooms:     newDirectory(),
	}
}

// Run processes events until ctx is cancelled. Each event is handled to
// completion before the next one is taken.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c.ID] = c
		case in := <-h.inbound:
			h.handle(in.client, in.cmd)
		case fn := <-h.requests:
			fn()
		case res := <-h.restored:
			h.finishRestore(res)
		case ev := <-h.evictions:
			h.evict(ev)
		}
	}
}

// RegisterClient attaches a connection to the hub and starts forwarding its
// commands, in order, into the relay loop. Once Commands is closed the
// disconnect is queued behind the last command.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		return
	}

	go func() {
		for cmd := range c.Commands {
			if cmd == nil {
				continue
			}
			if !h.forward(inbound{client: c, cmd: cmd}) {
				return
			}
		}
		h.forward(inbound{client: c})
	}()
}

func (h *Hub) forward(in inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient handles a lost connection exactly like leave-room and
// closes the client's Events channel. It closes Commands, so commands the
// client already sent are relayed first.
func (h *Hub) UnregisterClient(c *Client) {
	c.CloseCommands()
}

// Stats reports room and session counts.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := h.do(ctx, func() {
		st.ActiveRooms, st.RetainedRooms = h.rooms.stats()
		st.Sessions = h.sessions.count()
	})
	return st, err
}

// RoomState returns the in-memory state of a room without creating it.
// The boolean is false when the room is not held in memory.
func (h *Hub) RoomState(ctx context.Context, roomID string) (RoomState, bool, error) {
	var (
		state RoomState
		found bool
	)
	err := h.do(ctx, func() {
		room, ok := h.rooms.get(roomID)
		if !ok {
			return
		}
		found = true
		state = RoomState{
			ID:           room.ID,
			Commands:     room.snapshot(),
			ActiveUsers:  room.MemberCount(),
			CreatedAt:    room.CreatedAt,
			LastActivity: room.LastActivity,
		}
	})
	return state, found, err
}

// TouchRoom records activity on a room through the mirror. The write is made
// from the relay loop, so it cannot overtake a membership update the hub has
// already queued.
func (h *Hub) TouchRoom(ctx context.Context, roomID string) error {
	return h.do(ctx, func() {
		if h.mirror == nil {
			return
		}
		count := 0
		if room, ok := h.rooms.get(roomID); ok {
			count = room.MemberCount()
		}
		h.mirror.UpsertRoomMeta(roomID, count, h.now())
	})
}

// do runs fn inside the relay loop and waits for it.
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case h.requests <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) now() time.Time {
	return h.cfg.Now()
}

func (h *Hub) handle(c *Client, cmd *Command) {
	if cmd == nil {
		h.disconnect(c)
		return
	}
	if registered, ok := h.clients[c.ID]; !ok || registered != c {
		// Stale client reusing a connection id.
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(c, cmd)
	case CommandLeaveRoom:
		h.leave(c)
	case CommandCursorMove, CommandDrawStart, CommandDrawMove:
		h.relay(c, cmd)
	case CommandDrawEnd:
		h.drawEnd(c, cmd)
	case CommandClearCanvas:
		h.clearCanvas(c)
	default:
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidMessage, "unknown command")})
	}
}

func (h *Hub) join(c *Client, cmd *Command) {
	roomID, err := ValidateRoomID(cmd.Room)
	if err != nil {
		c.send(&Event{Kind: EventError, Room: cmd.Room, Error: AsCoreError(err)})
		return
	}

	if _, ok := h.sessions.get(c.ID); ok {
		h.leave(c)
	}

	userID := cmd.UserID
	if userID == "" {
		userID = "user-" + utils.ShortID()
	}

	now := h.now()
	h.sessions.join(c.ID, roomID, userID, now)
	room := h.rooms.ensureRoom(roomID, now)
	room.AddClient(c)
	room.LastActivity = now
	count := h.rooms.memberCount(roomID)

	if h.needsRestore(room) {
		room.awaiting[c.ID] = c
		h.startRestore(room)
	} else {
		c.send(&Event{
			Kind:         EventDrawingData,
			Room:         roomID,
			UserID:       userID,
			ConnectionID: c.ID,
			Timestamp:    now.UnixMilli(),
			Commands:     h.rooms.snapshot(roomID),
		})
	}

	room.Broadcast(&Event{
		Kind:         EventUserJoined,
		Room:         roomID,
		UserID:       userID,
		ConnectionID: c.ID,
		Timestamp:    now.UnixMilli(),
		UserCount:    count,
	})
	room.Broadcast(&Event{
		Kind:         EventUserCount,
		Room:         roomID,
		UserID:       userID,
		ConnectionID: c.ID,
		Timestamp:    now.UnixMilli(),
		UserCount:    count,
	})

	h.log.Info().Str("room", roomID).Str("user", userID).Str("conn", c.ID).Int("users", count).Msg("joined room")

	if h.mirror != nil {
		h.mirror.UpsertRoomMeta(roomID, count, now)
	}
}

// leave removes the connection's session; a no-op without one.
func (h *Hub) leave(c *Client) {
	sess, ok := h.sessions.leave(c.ID)
	if !ok {
		return
	}
	room, ok := h.rooms.get(sess.RoomID)
	if !ok {
		return
	}

	now := h.now()
	room.RemoveClient(c.ID)
	room.LastActivity = now
	count := h.rooms.memberCount(room.ID)

	room.Broadcast(&Event{
		Kind:         EventUserLeft,
		Room:         room.ID,
		UserID:       sess.UserID,
		ConnectionID: c.ID,
		Timestamp:    now.UnixMilli(),
		UserCount:    count,
	})
	room.Broadcast(&Event{
		Kind:         EventUserCount,
		Room:         room.ID,
		UserID:       sess.UserID,
		ConnectionID: c.ID,
		Timestamp:    now.UnixMilli(),
		UserCount:    count,
	})

	h.log.Info().Str("room", room.ID).Str("user", sess.UserID).Str("conn", c.ID).Int("users", count).Msg("left room")

	if h.mirror != nil {
		h.mirror.UpsertRoomMeta(room.ID, count, now)
	}

	if count == 0 {
		h.scheduleEviction(room)
	}
}

func (h *Hub) disconnect(c *Client) {
	if registered, ok := h.clients[c.ID]; !ok || registered != c {
		return
	}
	h.leave(c)
	delete(h.clients, c.ID)
	close(c.Events)
}

// session resolves the sender's session and room; orphan events yield false.
func (h *Hub) session(c *Client, kind CommandKind) (*Session, *Room, bool) {
	roomID, ok := h.sessions.lookupRoom(c.ID)
	if !ok {
		h.log.Debug().Str("conn", c.ID).Stringer("command", kind).Msg("dropping event without session")
		return nil, nil, false
	}
	room, ok := h.rooms.get(roomID)
	if !ok {
		h.log.Debug().Str("conn", c.ID).Str("room", roomID).Msg("dropping event for missing room")
		return nil, nil, false
	}
	sess, _ := h.sessions.get(c.ID)
	return sess, room, true
}

// relay fans transient events out to everyone but the sender.
func (h *Hub) relay(c *Client, cmd *Command) {
	sess, room, ok := h.session(c, cmd.Kind)
	if !ok {
		return
	}

	ev := &Event{
		Room:         room.ID,
		UserID:       sess.UserID,
		ConnectionID: c.ID,
		Timestamp:    h.now().UnixMilli(),
	}
	point := cmd.Point
	ev.Point = &point

	switch cmd.Kind {
	case CommandCursorMove:
		ev.Kind = EventCursorMove
	case CommandDrawStart:
		ev.Kind = EventDrawStart
		ev.Stroke = &Stroke{Color: cmd.Stroke.Color, Width: cmd.Stroke.Width, Tool: cmd.Stroke.Tool}
	case CommandDrawMove:
		ev.Kind = EventDrawMove
	}

	room.BroadcastExcept(ev, c.ID)
}

func (h *Hub) drawEnd(c *Client, cmd *Command) {
	sess, room, ok := h.session(c, cmd.Kind)
	if !ok {
		return
	}

	now := h.now()
	stroke := cmd.Stroke
	stroke.Points = append([]Point(nil), cmd.Stroke.Points...)
	drawing := DrawingCommand{
		ID:           utils.NewID(),
		Type:         CommandTypeStroke,
		UserID:       sess.UserID,
		ConnectionID: c.ID,
		Timestamp:    now.UnixMilli(),
		Stroke:       &stroke,
	}
	h.rooms.appendCommand(room.ID, drawing, now)

	room.BroadcastExcept(&Event{
		Kind:         EventDrawEnd,
		Room:         room.ID,
		UserID:       sess.UserID,
		ConnectionID: c.ID,
		Timestamp:    drawing.Timestamp,
		Stroke:       &stroke,
	}, c.ID)

	if h.mirror != nil {
		h.mirror.AppendCommand(room.ID, drawing)
	}
}

func (h *Hub) clearCanvas(c *Client) {
	sess, room, ok := h.session(c, CommandClearCanvas)
	if !ok {
		return
	}

	now := h.now()
	h.rooms.clear(room.ID, now)
	// Whatever the mirror holds predates this clear.
	room.restored = true
	if room.loading {
		room.clearedLoading = true
	}

	room.Broadcast(&Event{
		Kind:         EventClearCanvas,
		Room:         room.ID,
		UserID:       sess.UserID,
		ConnectionID: c.ID,
		Timestamp:    now.UnixMilli(),
	})

	h.log.Info().Str("room", room.ID).Str("user", sess.UserID).Msg("canvas cleared")

	if h.mirror != nil {
		h.mirror.AppendCommand(room.ID, DrawingCommand{
			ID:           utils.NewID(),
			Type:         CommandTypeClear,
			UserID:       sess.UserID,
			ConnectionID: c.ID,
			Timestamp:    now.UnixMilli(),
		})
	}
}
