package core

import "time"

// Room groups the connections drawing on the same canvas and owns its log.
type Room struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time

	members map[string]*Client
	log     []DrawingCommand

	// Restoration of the log from the mirror.
	restored       bool
	loading        bool
	clearedLoading bool
	awaiting       map[string]*Client

	// evictGen identifies the most recently armed eviction timer.
	evictGen uint64
}

// NewRoom constructs a room with no members and an empty log.
func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		members:      make(map[string]*Client),
		awaiting:     make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.members[c.ID]; exists {
		return false
	}
	r.members[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(connID string) bool {
	if _, exists := r.members[connID]; !exists {
		return false
	}
	delete(r.members, connID)
	delete(r.awaiting, connID)
	return true
}

// HasClient reports whether the connection is currently a member.
func (r *Room) HasClient(connID string) bool {
	_, ok := r.members[connID]
	return ok
}

// MemberCount is the active-user count.
func (r *Room) MemberCount() int {
	return len(r.members)
}

// Broadcast sends an event to all clients in the room.
func (r *Room) Broadcast(event *Event) {
	r.BroadcastExcept(event, "")
}

// BroadcastExcept sends an event to every member but the given connection.
func (r *Room) BroadcastExcept(event *Event, skipConnID string) {
	for id, client := range r.members {
		if id == skipConnID {
			continue
		}
		client.send(event)
	}
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

func (r *Room) snapshot() []DrawingCommand {
	out := make([]DrawingCommand, len(r.log))
	copy(out, r.log)
	return out
}

// mergeRestored prepends commands loaded from the mirror, skipping any that
// are already in memory.
func (r *Room) mergeRestored(loaded []DrawingCommand) {
	if len(loaded) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(loaded))
	merged := make([]DrawingCommand, 0, len(loaded)+len(r.log))
	for _, cmd := range loaded {
		seen[cmd.ID] = struct{}{}
		merged = append(merged, cmd)
	}
	for _, cmd := range r.log {
		if _, dup := seen[cmd.ID]; dup {
			continue
		}
		merged = append(merged, cmd)
	}
	r.log = merged
}

// directory is the room directory: room id to room state.
// Only the hub's Run goroutine touches it.
type directory struct {
	rooms map[string]*Room
}

func newDirectory() *directory {
	return &directory{rooms: make(map[string]*Room)}
}

// ensureRoom returns the existing room or creates an empty one.
func (d *directory) ensureRoom(id string, now time.Time) *Room {
	if room, ok := d.rooms[id]; ok {
		return room
	}
	room := NewRoom(id, now)
	d.rooms[id] = room
	return room
}

func (d *directory) get(id string) (*Room, bool) {
	room, ok := d.rooms[id]
	return room, ok
}

func (d *directory) memberCount(id string) int {
	room, ok := d.rooms[id]
	if !ok {
		return 0
	}
	return room.MemberCount()
}

// appendCommand records cmd. An unknown room is created rather than losing data.
func (d *directory) appendCommand(id string, cmd DrawingCommand, now time.Time) {
	room := d.ensureRoom(id, now)
	room.log = append(room.log, cmd)
	room.LastActivity = now
}

// snapshot returns a copy of the room log, nil for unknown rooms.
func (d *directory) snapshot(id string) []DrawingCommand {
	room, ok := d.rooms[id]
	if !ok {
		return nil
	}
	return room.snapshot()
}

// clear truncates the log; membership is untouched.
func (d *directory) clear(id string, now time.Time) {
	room, ok := d.rooms[id]
	if !ok {
		return
	}
	room.log = nil
	room.LastActivity = now
}

func (d *directory) remove(id string) {
	delete(d.rooms, id)
}

// stats returns the number of rooms with members and the number of rooms
// only retained for their log.
func (d *directory) stats() (active, retained int) {
	for _, room := range d.rooms {
		if room.Empty() {
			retained++
		} else {
			active++
		}
	}
	return active, retained
}
