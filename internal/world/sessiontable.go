package world

import "time"

// SessionTable holds channel handles, identity, and last-activity for every
// connected session (spec.md §2, §4.3's dependency).
type SessionTable struct {
	sessions map[uint64]*Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[uint64]*Session)}
}

func (t *SessionTable) Add(s *Session) {
	t.sessions[s.ID] = s
}

func (t *SessionTable) Get(id uint64) (*Session, bool) {
	s, ok := t.sessions[id]
	return s, ok
}

func (t *SessionTable) Remove(id uint64) {
	delete(t.sessions, id)
}

func (t *SessionTable) Touch(id uint64, now time.Time) {
	if s, ok := t.sessions[id]; ok {
		s.LastSeenAt = now
	}
}

// IdleSince returns every session whose LastSeenAt is older than cutoff.
func (t *SessionTable) IdleSince(cutoff time.Time) []*Session {
	var out []*Session
	for _, s := range t.sessions {
		if s.LastSeenAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Send delivers a typed message to one session by id. No-op if the session
// is unknown or has no socket.
func (t *SessionTable) Send(id uint64, op string, payload any) {
	if s, ok := t.sessions[id]; ok {
		s.Send(op, payload)
	}
}
