package builtins

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/ksd-co/rule-engine-postgres/fact"
)

func registerStringFuncs(r *Registry) {
	r.register(Signature{"length", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("length", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		return fact.Int64(len([]rune(s))), nil
	})

	r.register(Signature{"upper", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("upper", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		return fact.String(strings.ToUpper(s)), nil
	})

	r.register(Signature{"lower", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("lower", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		return fact.String(strings.ToLower(s)), nil
	})

	r.register(Signature{"trim", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("trim", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		return fact.String(strings.TrimSpace(s)), nil
	})

	r.register(Signature{"substring", 2, 3}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("substring", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		start, _, err := asNumber("substring", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		runes := []rune(s)
		from := clampIndex(int(start), len(runes))
		to := len(runes)
		if len(args) == 3 {
			end, _, err := asNumber("substring", args[2])
			if err != nil {
				return fact.Null{}, err
			}
			to = clampIndex(int(end), len(runes))
		}
		if to < from {
			to = from
		}
		return fact.String(string(runes[from:to])), nil
	})

	r.register(Signature{"contains", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("contains", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		sub, err := asString("contains", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		return fact.Bool(strings.Contains(s, sub)), nil
	})

	r.register(Signature{"regex-match", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("regex-match", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		pattern, err := asString("regex-match", args[1])
		if err != nil {
			return fact.Null{}, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fact.Null{}, typeMismatch("regex-match", args[1], "valid regular expression")
		}
		return fact.Bool(re.MatchString(s)), nil
	})

	r.register(Signature{"valid-email", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		s, err := asString("valid-email", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		_, parseErr := mail.ParseAddress(s)
		return fact.Bool(parseErr == nil), nil
	})
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
