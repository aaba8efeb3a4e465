package recorder

import (
	"encoding/json"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/tidwall/gjson"
)

// valueToRaw renders a single fact.Value to a json.RawMessage by wrapping it
// in a throwaway entity and reusing fact's own canonical serializer (the
// same round-trip idiom builtins/json_funcs.go uses for "stringify"), so a
// recorded Before/After value obeys the same Int64/Float64 canonicalization
// as every other persisted fact.
func valueToRaw(v fact.Value) (json.RawMessage, error) {
	f := fact.New()
	f.Entity("_").Set("v", v)
	text, err := f.Serialize()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(gjson.Get(text, "_.v").Raw), nil
}

// rawToValue is valueToRaw's inverse.
func rawToValue(raw json.RawMessage) (fact.Value, error) {
	if len(raw) == 0 {
		return fact.Null{}, nil
	}
	wrapped := `{"_":` + string(raw) + `}`
	f, err := fact.Deserialize(wrapped)
	if err != nil {
		return fact.Null{}, err
	}
	v, _ := f.Get("_")
	return v, nil
}

// factsToRaw/rawToFacts serialize a whole Facts snapshot the same way.
func factsToRaw(f *fact.Facts) (json.RawMessage, error) {
	if f == nil {
		return json.RawMessage("null"), nil
	}
	text, err := f.Serialize()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(text), nil
}

func rawToFacts(raw json.RawMessage) (*fact.Facts, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return fact.New(), nil
	}
	return fact.Deserialize(string(raw))
}
