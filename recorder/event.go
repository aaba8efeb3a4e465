package recorder

import (
	"encoding/json"
	"time"

	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/types"
)

const timeLayout = time.RFC3339Nano

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// storedEvent is kernel.Event's JSON-serializable shape. fact.Value has no
// MarshalJSON of its own (it is a sealed union meant to be addressed through
// Facts, not marshaled directly), so Before/After round-trip through
// valueToRaw/rawToValue instead of a struct tag.
type storedEvent struct {
	Kind         string          `json:"kind"`
	At           string          `json:"at"`
	RuleName     string          `json:"ruleName,omitempty"`
	Path         string          `json:"path,omitempty"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ActionIndex  int             `json:"actionIndex,omitempty"`
}

func encodeEvents(steps []kernel.Event) ([]byte, error) {
	out := make([]storedEvent, len(steps))
	for i, e := range steps {
		se := storedEvent{
			Kind:         string(e.Kind),
			At:           e.At.Format(timeLayout),
			RuleName:     e.RuleName,
			Path:         e.Path,
			ErrorCode:    string(e.ErrorCode),
			ErrorMessage: e.ErrorMessage,
			ActionIndex:  e.ActionIndex,
		}
		if e.Kind == kernel.EventFactAssigned {
			before, err := valueToRaw(e.Before)
			if err != nil {
				return nil, err
			}
			after, err := valueToRaw(e.After)
			if err != nil {
				return nil, err
			}
			se.Before, se.After = before, after
		}
		out[i] = se
	}
	return json.Marshal(out)
}

func decodeEvents(raw []byte) ([]kernel.Event, error) {
	var stored []storedEvent
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	out := make([]kernel.Event, len(stored))
	for i, se := range stored {
		at, _ := parseTime(se.At)
		e := kernel.Event{
			Kind:         kernel.EventKind(se.Kind),
			At:           at,
			RuleName:     se.RuleName,
			Path:         se.Path,
			ErrorMessage: se.ErrorMessage,
			ActionIndex:  se.ActionIndex,
		}
		if se.ErrorCode != "" {
			e.ErrorCode = types.Code(se.ErrorCode)
		}
		if se.Kind == string(kernel.EventFactAssigned) {
			before, err := rawToValue(se.Before)
			if err != nil {
				return nil, err
			}
			after, err := rawToValue(se.After)
			if err != nil {
				return nil, err
			}
			e.Before, e.After = before, after
		}
		out[i] = e
	}
	return out, nil
}
