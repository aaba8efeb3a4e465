package builtins

import (
	"strings"
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
)

// Clock abstracts wall-clock access so kernel tests can pin "today"/"now"
// to a fixed instant instead of depending on real time.
type Clock func() time.Time

func registerDateTimeFuncs(r *Registry, clock Clock) {
	r.register(Signature{"today", 0, 0}, func(args []fact.Value) (fact.Value, error) {
		n := clock().UTC()
		d := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
		return fact.DateTime(d), nil
	})

	r.register(Signature{"now", 0, 0}, func(args []fact.Value) (fact.Value, error) {
		return fact.DateTime(clock().UTC()), nil
	})

	r.register(Signature{"days-since", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		d, err := asDateTime("days-since", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		days := clock().UTC().Sub(d.Time()).Hours() / 24
		return fact.Float64(days), nil
	})

	r.register(Signature{"add-days", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		d, err := asDateTime("add-days", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		n, _, err := asNumber("add-days", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		return fact.DateTime(d.Time().AddDate(0, 0, int(n))), nil
	})

	r.register(Signature{"format", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		d, err := asDateTime("format", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		layout, err := asString("format", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		goLayout := strftimeToGoLayout(layout)
		return fact.String(d.Time().Format(goLayout)), nil
	})
}

func asDateTime(fn string, v fact.Value) (fact.DateTime, error) {
	switch t := v.(type) {
	case fact.DateTime:
		return t, nil
	case fact.String:
		dt, err := fact.ParseDateTime(string(t))
		if err != nil {
			return fact.DateTime{}, typeMismatch(fn, v, "DateTime or RFC3339 String")
		}
		return dt, nil
	default:
		return fact.DateTime{}, typeMismatch(fn, v, "DateTime")
	}
}

// strftimeToGoLayout translates the common ISO-8601-ish tokens the spec's
// "format" function is meant to support into Go's reference-time layout,
// since the DSL source text has no natural way to spell Go's layout string.
func strftimeToGoLayout(pattern string) string {
	replacer := strings.NewReplacer(
		"YYYY", "2006", "MM", "01", "DD", "02",
		"hh", "15", "mm", "04", "ss", "05",
	)
	return replacer.Replace(pattern)
}
