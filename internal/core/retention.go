package core

import "time"

// needsRestore reports whether joiners must wait for the mirror's copy of
// the log. Only rooms that were never restored or cleared qualify, which
// means their in-memory log was empty when the first joiner arrived.
func (h *Hub) needsRestore(room *Room) bool {
	return h.mirror != nil && !room.restored
}

// startRestore loads the room log from the mirror off the relay loop and
// posts the result back into it.
func (h *Hub) startRestore(room *Room) {
	if room.loading {
		return
	}
	room.loading = true

	ctx := h.ctx
	roomID := room.ID
	go func() {
		commands, err := h.mirror.LoadLog(ctx, roomID)
		select {
		case h.restored <- restoreResult{room: room, commands: commands, err: err}:
		case <-h.done:
		}
	}()
}

func (h *Hub) finishRestore(res restoreResult) {
	room := res.room
	room.loading = false

	if current, ok := h.rooms.get(room.ID); !ok || current != room {
		// Evicted while loading; a newer room starts its own restore.
		return
	}

	room.restored = true
	switch {
	case res.err != nil:
		h.log.Warn().Err(res.err).Str("room", room.ID).Msg("failed to load room log; continuing with memory only")
	case room.clearedLoading:
		h.log.Debug().Str("room", room.ID).Int("commands", len(res.commands)).Msg("discarding restored log after clear")
	default:
		room.mergeRestored(res.commands)
		if len(res.commands) > 0 {
			h.log.Info().Str("room", room.ID).Int("commands", len(res.commands)).Msg("restored room log")
		}
	}
	room.clearedLoading = false

	now := h.now()
	for connID, c := range room.awaiting {
		sess, ok := h.sessions.get(connID)
		if !ok || !room.HasClient(connID) {
			continue
		}
		c.send(&Event{
			Kind:         EventDrawingData,
			Room:         room.ID,
			UserID:       sess.UserID,
			ConnectionID: connID,
			Timestamp:    now.UnixMilli(),
			Commands:     room.snapshot(),
		})
	}
	room.awaiting = make(map[string]*Client)

	if room.Empty() {
		h.scheduleEviction(room)
	}
}

// scheduleEviction runs when a room loses its last member. A room without a
// log is dropped at once; otherwise the log survives the grace period.
func (h *Hub) scheduleEviction(room *Room) {
	if len(room.log) == 0 && !room.loading {
		h.rooms.remove(room.ID)
		h.log.Debug().Str("room", room.ID).Msg("removed empty room")
		return
	}

	room.evictGen++
	ev := eviction{room: room, gen: room.evictGen}
	time.AfterFunc(h.cfg.GracePeriod, func() {
		select {
		case h.evictions <- ev:
		case <-h.done:
		}
	})
	h.log.Debug().Str("room", room.ID).Dur("grace", h.cfg.GracePeriod).Msg("room empty; eviction scheduled")
}

// evict drops the room if it is still the same room, still empty, and no
// newer timer has been armed since.
func (h *Hub) evict(ev eviction) {
	room := ev.room
	current, ok := h.rooms.get(room.ID)
	if !ok || current != room || room.evictGen != ev.gen || !room.Empty() {
		return
	}

	h.rooms.remove(room.ID)
	h.log.Info().Str("room", room.ID).Int("commands", len(room.log)).Msg("evicted room after grace period")

	if h.mirror != nil {
		h.mirror.DiscardLog(room.ID)
	}
}
