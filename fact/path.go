package fact

import (
	"strings"

	"github.com/ksd-co/rule-engine-postgres/types"
)

// Path is a dotted identifier chain such as "Order.customer.tier". Path
// mutation never addresses array elements (spec §3); reading through an
// array index is not offered either — no layer of the engine parses
// bracket indices, so array elements are reachable only as a whole Array.
type Path []string

// ParsePath validates and splits a dotted path into its identifier segments.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return nil, types.NewError(types.CodePathMalformed, "empty path", nil)
	}
	segs := strings.Split(raw, ".")
	for _, s := range segs {
		if !isIdentifier(s) {
			return nil, types.NewError(types.CodePathMalformed, "path segment is not a valid identifier", map[string]interface{}{
				"path": raw, "segment": s,
			})
		}
	}
	return Path(segs), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (p Path) String() string {
	return strings.Join(p, ".")
}
