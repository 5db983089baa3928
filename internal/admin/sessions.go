package admin

import (
	"sync"
	"time"

	"habilitaciones/internal/auth"
	"habilitaciones/internal/logging"
	"habilitaciones/internal/metrics"
	"habilitaciones/internal/service"
)

type session struct {
	table   *Table
	expires time.Time
}

// Sessions keeps one Table per signed-in session (token id). Tables of
// sessions whose token has expired are dropped the next time any table is
// looked up.
type Sessions struct {
	svc     service.SubmissionService
	log     *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.Mutex
	tables map[string]session
}

func NewSessions(svc service.SubmissionService, log *logging.Logger, m *metrics.Metrics) *Sessions {
	return &Sessions{svc: svc, log: log, metrics: m, now: time.Now, tables: make(map[string]session)}
}

// Table returns the session's table, creating an empty one on first use.
// expires is when the session token stops being accepted; zero never expires.
func (s *Sessions) Table(sessionID string, expires time.Time) *Table {
	s.mu.Lock()
	stale := s.sweep()
	e, ok := s.tables[sessionID]
	if !ok {
		e = session{table: NewTable(s.svc, s.log, s.metrics), expires: expires}
		s.tables[sessionID] = e
	}
	s.mu.Unlock()

	for _, t := range stale {
		t.Reset()
	}
	return e.table
}

// sweep forgets expired sessions and returns their tables. Caller holds s.mu.
func (s *Sessions) sweep() []*Table {
	now := s.now()
	var stale []*Table
	for id, e := range s.tables {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(s.tables, id)
			stale = append(stale, e.table)
		}
	}
	return stale
}

// Handle reacts to session changes: signing out clears and forgets that
// session's table. Other sessions of the same administrator are untouched.
func (s *Sessions) Handle(ev auth.Event) {
	if ev.Kind != auth.SignedOut {
		return
	}
	s.mu.Lock()
	e, ok := s.tables[ev.SessionID]
	delete(s.tables, ev.SessionID)
	s.mu.Unlock()
	if ok {
		e.table.Reset()
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables)
}
