package session

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Active-session table: at most one live report session per user. Safe for
// concurrent use across users; delivery to any single session must still be
// serialized by the host.
type Table struct {
	sessions *xsync.MapOf[string, *Session]
}

func NewTable() *Table {
	return &Table{
		sessions: xsync.NewMapOf[string, *Session](),
	}
}

// Registers a new session for the user. When the user already has an open
// session the new one is rejected and the existing session is returned
// unchanged: starting over mid-interview requires an explicit cancel first.
func (t *Table) Start(userID string, s *Session) (*Session, bool) {
	actual, loaded := t.sessions.LoadOrStore(userID, s)
	return actual, !loaded
}

func (t *Table) Get(userID string) (*Session, bool) {
	return t.sessions.Load(userID)
}

func (t *Table) Remove(userID string) {
	t.sessions.Delete(userID)
}
