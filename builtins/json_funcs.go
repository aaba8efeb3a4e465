package builtins

import (
	"github.com/PaesslerAG/jsonpath"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/tidwall/gjson"
)

// registerJSONFuncs wires the JSON built-in group (spec §4.C): parse,
// stringify, get-by-dotted-path, set-by-dotted-path. "parse"/"stringify"
// round-trip through fact's own canonical encoder so a JSON-built Value
// obeys the same Int64/Float64 rules as every other fact. The dotted-path
// reader decodes the text with gjson and looks the bare "a.b.c" path up with
// jsonpath (prefixed with "$."); a path that already starts with "$." is not
// recognized as such.
func registerJSONFuncs(r *Registry) {
	r.register(Signature{"parse", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		text, err := asString("parse", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		wrapped := "{\"_\":" + text + "}"
		f, parseErr := fact.Deserialize(wrapped)
		if parseErr != nil {
			return fact.Null{}, typeMismatch("parse", args[0], "valid JSON text")
		}
		v, _ := f.Get("_")
		return v, nil
	})

	r.register(Signature{"stringify", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		f := fact.New()
		f.Entity("_").Set("v", args[0])
		text, err := f.Serialize()
		if err != nil {
			return fact.Null{}, err
		}
		inner := gjson.Get(text, "_.v").Raw
		return fact.String(inner), nil
	})

	r.register(Signature{"get-by-dotted-path", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		text, err := asString("get-by-dotted-path", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		path, err := asString("get-by-dotted-path", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		// jsonpath expects a leading "$."; callers supply a bare dotted path.
		result, jpErr := jsonpath.Get("$."+path, mustDecodeAny(text))
		if jpErr != nil {
			return fact.Null{}, nil
		}
		return goValueToFact(result), nil
	})

	r.register(Signature{"set-by-dotted-path", 3, 3}, func(args []fact.Value) (fact.Value, error) {
		text, err := asString("set-by-dotted-path", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		path, err := asString("set-by-dotted-path", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		wrapped := "{\"_\":" + text + "}"
		f, parseErr := fact.Deserialize(wrapped)
		if parseErr != nil {
			return fact.Null{}, typeMismatch("set-by-dotted-path", args[0], "valid JSON text")
		}
		if setErr := f.Set("_."+path, args[2]); setErr != nil {
			return fact.Null{}, setErr
		}
		serialized, serErr := f.Serialize()
		if serErr != nil {
			return fact.Null{}, serErr
		}
		inner := gjson.Get(serialized, "_").Raw
		return fact.String(inner), nil
	})
}

func mustDecodeAny(text string) interface{} {
	var out interface{}
	parsed := gjson.Parse(text)
	out = parsed.Value()
	return out
}

func goValueToFact(v interface{}) fact.Value {
	switch t := v.(type) {
	case nil:
		return fact.Null{}
	case bool:
		return fact.Bool(t)
	case string:
		return fact.String(t)
	case int:
		return fact.Int64(int64(t))
	case int64:
		return fact.Int64(t)
	case float64:
		if t == float64(int64(t)) {
			return fact.Int64(int64(t))
		}
		return fact.Float64(t)
	case []interface{}:
		arr := make(fact.Array, len(t))
		for i, e := range t {
			arr[i] = goValueToFact(e)
		}
		return arr
	case map[string]interface{}:
		obj := fact.NewObject()
		for k, e := range t {
			obj.Set(k, goValueToFact(e))
		}
		return obj
	default:
		return fact.Null{}
	}
}
