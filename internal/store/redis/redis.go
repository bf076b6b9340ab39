// Package redis provides a Redis-backed store.Store. Room metadata lives in a
// hash and the drawing log in a list of JSON-encoded commands.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/drawrelay-server/internal/store"
)

// Config contains configuration options for the Redis store.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys.
	// Default: "drawrelay:"
	KeyPrefix string
}

// appendScript records the id and pushes the command in one step; a known id
// is a no-op.
var appendScript = redis.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[2])
return 1
`)

// Store implements store.Store using Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a Redis-backed store.
func New(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "drawrelay:"
	}

	return &Store{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

func (s *Store) roomKey(id string) string {
	return s.keyPrefix + "room:" + id
}

func (s *Store) logKey(id string) string {
	return s.keyPrefix + "room:" + id + ":log"
}

func (s *Store) idsKey(id string) string {
	return s.keyPrefix + "room:" + id + ":ids"
}

// UpsertRoom writes the room hash; created_at is only set once.
func (s *Store) UpsertRoom(ctx context.Context, room *store.Room) error {
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	lastActivity := room.LastActivity
	if lastActivity.IsZero() {
		lastActivity = createdAt
	}

	key := s.roomKey(room.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "created_at", createdAt.UnixMilli())
		pipe.HSet(ctx, key,
			"active_users", room.ActiveUsers,
			"last_activity", lastActivity.UnixMilli(),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert room %s: %w", room.ID, err)
	}
	return nil
}

// GetRoom reads the room hash.
func (s *Store) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	fields, err := s.client.HGetAll(ctx, s.roomKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("room %s: %w", id, store.ErrNotFound)
	}

	room := &store.Room{ID: id}
	if room.ActiveUsers, err = strconv.Atoi(fields["active_users"]); err != nil {
		return nil, fmt.Errorf("parse active_users of %s: %w", id, err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", id, err)
	}
	last, err := strconv.ParseInt(fields["last_activity"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last_activity of %s: %w", id, err)
	}
	room.CreatedAt = time.UnixMilli(created)
	room.LastActivity = time.UnixMilli(last)
	return room, nil
}

// AppendCommand pushes a stroke onto the room log; a clear deletes the log.
func (s *Store) AppendCommand(ctx context.Context, cmd *store.Command) error {
	if cmd.Type == store.CommandTypeClear {
		return s.DeleteCommands(ctx, cmd.RoomID)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	keys := []string{s.idsKey(cmd.RoomID), s.logKey(cmd.RoomID)}
	if err := appendScript.Run(ctx, s.client, keys, cmd.ID, data).Err(); err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

// ListCommands returns the decoded log.
func (s *Store) ListCommands(ctx context.Context, roomID string) ([]*store.Command, error) {
	items, err := s.client.LRange(ctx, s.logKey(roomID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("list commands: %w", err)
	}

	commands := make([]*store.Command, 0, len(items))
	for _, item := range items {
		var cmd store.Command
		if err := json.Unmarshal([]byte(item), &cmd); err != nil {
			return nil, fmt.Errorf("unmarshal command: %w", err)
		}
		commands = append(commands, &cmd)
	}
	return commands, nil
}

// DeleteCommands removes the log and its id set.
func (s *Store) DeleteCommands(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, s.logKey(roomID), s.idsKey(roomID)).Err(); err != nil {
		return fmt.Errorf("delete commands: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
