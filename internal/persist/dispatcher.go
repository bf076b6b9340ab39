// Package persist mirrors relay state into a store.Store without ever
// blocking the relay loop.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/drawrelay-server/internal/core"
	"github.com/vovakirdan/drawrelay-server/internal/store"
)

const (
	defaultQueueSize = 1024
	defaultTimeout   = 5 * time.Second
)

var (
	// ErrQueueFull is returned by LoadLog when the queue has no room left.
	ErrQueueFull = errors.New("persist queue full")
	// ErrStopped is returned by LoadLog once the dispatcher has exited.
	ErrStopped = errors.New("persist dispatcher stopped")
)

// Config tunes the dispatcher.
type Config struct {
	QueueSize int
	Timeout   time.Duration
}

type task struct {
	op     string
	roomID string
	run    func(ctx context.Context) error
}

// Dispatcher implements core.Mirror. Tasks run one at a time in enqueue
// order, so a LoadLog observes every write queued before it.
type Dispatcher struct {
	store   store.Store
	timeout time.Duration
	log     *zerolog.Logger

	tasks chan task
	done  chan struct{}
}

var _ core.Mirror = (*Dispatcher)(nil)

// New creates a dispatcher over st. Call Run to start the worker.
func New(st store.Store, cfg Config, logger *zerolog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		store:   st,
		timeout: cfg.Timeout,
		log:     logger,
		tasks:   make(chan task, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case t := <-d.tasks:
			d.exec(context.Background(), t)
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) flush() {
	for {
		select {
		case t := <-d.tasks:
			d.exec(context.Background(), t)
		default:
			return
		}
	}
}

func (d *Dispatcher) exec(parent context.Context, t task) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	if err := t.run(ctx); err != nil {
		d.log.Warn().Err(err).Str("op", t.op).Str("room", t.roomID).Msg("persistence task failed")
	}
}

func (d *Dispatcher) enqueue(t task) bool {
	select {
	case d.tasks <- t:
		return true
	default:
		d.log.Warn().Str("op", t.op).Str("room", t.roomID).Msg("persist queue full, dropping task")
		return false
	}
}

// UpsertRoomMeta queues a room record refresh.
func (d *Dispatcher) UpsertRoomMeta(roomID string, activeUsers int, lastActivity time.Time) {
	room := &store.Room{
		ID:           roomID,
		ActiveUsers:  activeUsers,
		CreatedAt:    lastActivity,
		LastActivity: lastActivity,
	}
	d.enqueue(task{op: "upsert_room", roomID: roomID, run: func(ctx context.Context) error {
		return d.store.UpsertRoom(ctx, room)
	}})
}

// AppendCommand queues a stroke or a clear.
func (d *Dispatcher) AppendCommand(roomID string, cmd core.DrawingCommand) {
	rec := ToStore(roomID, cmd)
	d.enqueue(task{op: "append_command", roomID: roomID, run: func(ctx context.Context) error {
		return d.store.AppendCommand(ctx, rec)
	}})
}

// DiscardLog queues removal of a room's persisted log.
func (d *Dispatcher) DiscardLog(roomID string) {
	d.enqueue(task{op: "discard_log", roomID: roomID, run: func(ctx context.Context) error {
		return d.store.DeleteCommands(ctx, roomID)
	}})
}

// LoadLog reads a room's log behind any queued writes.
func (d *Dispatcher) LoadLog(ctx context.Context, roomID string) ([]core.DrawingCommand, error) {
	return query(ctx, d, "load_log", roomID, func(taskCtx context.Context) ([]core.DrawingCommand, error) {
		recs, err := d.store.ListCommands(taskCtx, roomID)
		if err != nil {
			return nil, err
		}
		return FromStore(recs), nil
	})
}

// LoadRoom reads a room record behind any queued writes.
// The error wraps store.ErrNotFound when the room has no record.
func (d *Dispatcher) LoadRoom(ctx context.Context, roomID string) (*store.Room, error) {
	return query(ctx, d, "load_room", roomID, func(taskCtx context.Context) (*store.Room, error) {
		return d.store.GetRoom(taskCtx, roomID)
	})
}

// query runs read on the worker and waits for its result.
func query[T any](ctx context.Context, d *Dispatcher, op, roomID string, read func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	var zero T
	out := make(chan result, 1)

	ok := d.enqueue(task{op: op, roomID: roomID, run: func(taskCtx context.Context) error {
		value, err := read(taskCtx)
		out <- result{value: value, err: err}
		return nil
	}})
	if !ok {
		return zero, ErrQueueFull
	}

	finish := func(res result) (T, error) {
		if res.err != nil {
			return zero, fmt.Errorf("%s %s: %w", op, roomID, res.err)
		}
		return res.value, nil
	}

	select {
	case res := <-out:
		return finish(res)
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-d.done:
		select {
		case res := <-out:
			return finish(res)
		default:
			return zero, ErrStopped
		}
	}
}
