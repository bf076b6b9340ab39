package core

import "time"

// Session binds one live connection to one room and user identity.
type Session struct {
	ConnectionID string
	RoomID       string
	UserID       string
	JoinedAt     time.Time
}

// sessions is the session registry, keyed by connection id.
// Only the hub's Run goroutine touches it.
type sessions struct {
	byConn map[string]*Session
}

func newSessions() *sessions {
	return &sessions{byConn: make(map[string]*Session)}
}

// join stores a new session for the connection. Callers must leave the
// previous session first; join replaces whatever is stored.
func (s *sessions) join(connID, roomID, userID string, now time.Time) *Session {
	sess := &Session{
		ConnectionID: connID,
		RoomID:       roomID,
		UserID:       userID,
		JoinedAt:     now,
	}
	s.byConn[connID] = sess
	return sess
}

// leave removes and returns the connection's session, if any.
// Calling it twice is a no-op the second time.
func (s *sessions) leave(connID string) (*Session, bool) {
	sess, ok := s.byConn[connID]
	if !ok {
		return nil, false
	}
	delete(s.byConn, connID)
	return sess, true
}

func (s *sessions) get(connID string) (*Session, bool) {
	sess, ok := s.byConn[connID]
	return sess, ok
}

// lookupRoom resolves which room the connection's events belong to.
func (s *sessions) lookupRoom(connID string) (string, bool) {
	sess, ok := s.byConn[connID]
	if !ok {
		return "", false
	}
	return sess.RoomID, true
}

func (s *sessions) count() int {
	return len(s.byConn)
}
