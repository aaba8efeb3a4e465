package kernel

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// EventKind discriminates Session.Steps entries (spec §3 Execution Session).
type EventKind string

const (
	EventRuleMatched    EventKind = "RuleMatched"
	EventRuleFired      EventKind = "RuleFired"
	EventFactAssigned   EventKind = "FactAssigned"
	EventRuleRetracted  EventKind = "RuleRetracted"
	EventError          EventKind = "Error"
)

// Event is one append-only step in a session's trace.
type Event struct {
	Kind EventKind
	At   time.Time

	RuleName string // RuleMatched, RuleFired, RuleRetracted, Error

	Path   string     // FactAssigned
	Before fact.Value // FactAssigned
	After  fact.Value // FactAssigned

	ErrorCode    types.Code // Error
	ErrorMessage string     // Error

	ActionIndex int // Error: which action within RuleName failed
}

// Status is the terminal state of an evaluation (spec §4.D step 5, §5
// cancellation/timeouts).
type Status string

const (
	StatusCompleted     Status = "Completed"
	StatusNontermination Status = "Nontermination"
	StatusTimeout       Status = "Timeout"
	StatusFailed        Status = "Failed"
)

// Session is the full record of one evaluation (spec §3 Execution Session).
type Session struct {
	ID         string
	StartedAt  time.Time
	Steps      []Event
	FinalFacts *fact.Facts
	Status     Status
}

func newSession() *Session {
	id, err := uuid.NewV4()
	sessionID := ""
	if err == nil {
		sessionID = id.String()
	}
	return &Session{ID: sessionID, StartedAt: time.Now()}
}

func (s *Session) record(e Event) {
	e.At = time.Now()
	s.Steps = append(s.Steps, e)
}

// RuleCounts returns how many RuleMatched and RuleFired events this session
// recorded, a derived field the recorder/observability layers surface.
func (s *Session) RuleCounts() (matched int, fired int) {
	for _, e := range s.Steps {
		switch e.Kind {
		case EventRuleMatched:
			matched++
		case EventRuleFired:
			fired++
		}
	}
	return
}

// Duration is the wall-clock span from StartedAt to the last recorded event.
func (s *Session) Duration() time.Duration {
	if len(s.Steps) == 0 {
		return 0
	}
	return s.Steps[len(s.Steps)-1].At.Sub(s.StartedAt)
}
