// Package memory provides a process-local store.Store, used for tests and
// deployments that do not need history to survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vovakirdan/drawrelay-server/internal/store"
)

// Store implements store.Store with maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]store.Room
	commands map[string][]store.Command
	seen     map[string]struct{}
}

// New returns an empty memory store.
func New() *Store {
	return &Store{
		rooms:    make(map[string]store.Room),
		commands: make(map[string][]store.Command),
		seen:     make(map[string]struct{}),
	}
}

// UpsertRoom creates or refreshes a room record.
func (s *Store) UpsertRoom(_ context.Context, room *store.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *room
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now()
	}
	if existing, ok := s.rooms[room.ID]; ok {
		next.CreatedAt = existing.CreatedAt
	}
	if next.LastActivity.IsZero() {
		next.LastActivity = next.CreatedAt
	}
	s.rooms[room.ID] = next
	return nil
}

// GetRoom returns a copy of the room record.
func (s *Store) GetRoom(_ context.Context, id string) (*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, store.ErrNotFound)
	}
	return &room, nil
}

// AppendCommand appends a stroke or truncates the log on clear.
func (s *Store) AppendCommand(ctx context.Context, cmd *store.Command) error {
	if cmd.Type == store.CommandTypeClear {
		return s.DeleteCommands(ctx, cmd.RoomID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[cmd.ID]; dup {
		return nil
	}
	s.seen[cmd.ID] = struct{}{}
	s.commands[cmd.RoomID] = append(s.commands[cmd.RoomID], *cmd)
	return nil
}

// ListCommands returns copies of the room's commands in append order.
func (s *Store) ListCommands(_ context.Context, roomID string) ([]*store.Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.commands[roomID]
	out := make([]*store.Command, 0, len(log))
	for i := range log {
		cmd := log[i]
		out = append(out, &cmd)
	}
	return out, nil
}

// DeleteCommands discards the room's log.
func (s *Store) DeleteCommands(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cmd := range s.commands[roomID] {
		delete(s.seen, cmd.ID)
	}
	delete(s.commands, roomID)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
