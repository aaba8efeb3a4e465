// Package recorder implements the Execution Recorder (spec §4.F): an
// in-memory append-only buffer of kernel.Session values, optionally
// persisted to Postgres through store.SessionRepository for time-travel
// inspection across process restarts.
package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/store"
)

// Recorder holds every traced session in memory and, when persist is
// non-nil, mirrors each one to Postgres.
type Recorder struct {
	mu       sync.RWMutex
	sessions map[string]*kernel.Session
	programs map[string]string // session id -> program name, for the persisted row

	persist *store.SessionRepository
}

// New builds a Recorder. persist may be nil, in which case sessions live
// only in memory for the process's lifetime.
func New(persist *store.SessionRepository) *Recorder {
	return &Recorder{
		sessions: make(map[string]*kernel.Session),
		programs: make(map[string]string),
		persist:  persist,
	}
}

// Record stores session under its own ID, tagged with the program name it
// ran against, and mirrors it to Postgres if persistence is configured.
func (r *Recorder) Record(ctx context.Context, programName string, session *kernel.Session) error {
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.programs[session.ID] = programName
	r.mu.Unlock()

	if r.persist == nil {
		return nil
	}
	return r.persistSession(ctx, programName, session)
}

func (r *Recorder) persistSession(ctx context.Context, programName string, session *kernel.Session) error {
	finalFacts, err := factsToRaw(session.FinalFacts)
	if err != nil {
		return err
	}
	events, err := encodeEvents(session.Steps)
	if err != nil {
		return err
	}
	endedAt := session.StartedAt
	if len(session.Steps) > 0 {
		endedAt = session.Steps[len(session.Steps)-1].At
	}
	return r.persist.Insert(ctx, store.SessionRow{
		ID:          session.ID,
		ProgramName: programName,
		Status:      string(session.Status),
		StartedAt:   session.StartedAt,
		EndedAt:     endedAt,
		FinalFacts:  finalFacts,
		Events:      events,
	})
}

// Get returns a session by ID, checking the in-memory buffer first and
// falling back to the persisted store (spec §4.F querying: "by session
// id... returns ordered events and computed derived fields").
func (r *Recorder) Get(ctx context.Context, id string) (*kernel.Session, error) {
	r.mu.RLock()
	if s, ok := r.sessions[id]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	if r.persist == nil {
		return nil, store.ErrNotFound
	}
	row, err := r.persist.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rowToSession(row)
}

func rowToSession(row store.SessionRow) (*kernel.Session, error) {
	facts, err := rawToFacts(row.FinalFacts)
	if err != nil {
		return nil, err
	}
	events, err := decodeEvents(row.Events)
	if err != nil {
		return nil, err
	}
	return &kernel.Session{
		ID:         row.ID,
		StartedAt:  row.StartedAt,
		Steps:      events,
		FinalFacts: facts,
		Status:     kernel.Status(row.Status),
	}, nil
}

// Delete removes a session from both the in-memory buffer and the
// persisted store.
func (r *Recorder) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	delete(r.programs, id)
	r.mu.Unlock()

	if r.persist == nil {
		return nil
	}
	return r.persist.Delete(ctx, id)
}

// ClearAll drops every recorded session, in memory and in the store.
func (r *Recorder) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	r.sessions = make(map[string]*kernel.Session)
	r.programs = make(map[string]string)
	r.mu.Unlock()

	if r.persist == nil {
		return nil
	}
	return r.persist.ClearAll(ctx)
}

// PurgeOlderThan removes every session (memory and store) started before
// now-maxAge (spec §4.F retention sweep).
func (r *Recorder) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.StartedAt.Before(cutoff) {
			delete(r.sessions, id)
			delete(r.programs, id)
			removed++
		}
	}
	r.mu.Unlock()

	if r.persist == nil {
		return removed, nil
	}
	_, err := r.persist.PurgeOlderThan(ctx, cutoff)
	return removed, err
}

// Summary is the derived-field view spec §4.F's query operation returns
// alongside the raw event list.
type Summary struct {
	SessionID  string
	Status     kernel.Status
	Duration   time.Duration
	Matched    int
	Fired      int
}

// Describe computes Summary for a session already in hand (no further
// lookup), the way a caller of Get typically wants it immediately after.
func Describe(session *kernel.Session) Summary {
	matched, fired := session.RuleCounts()
	return Summary{
		SessionID: session.ID,
		Status:    session.Status,
		Duration:  session.Duration(),
		Matched:   matched,
		Fired:     fired,
	}
}
