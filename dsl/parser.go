package dsl

import "github.com/ksd-co/rule-engine-postgres/types"

// Parser is the external collaborator contract (spec §4.B, §6): "text →
// RuleProgram or parse error". The kernel never parses rules source itself;
// it only ever consumes an already-parsed RuleProgram. Hosts may supply any
// Parser implementation — dslref in this package is the reference one.
type Parser interface {
	Parse(source string) (RuleProgram, error)
}

// ParseFunc adapts a plain function to the Parser interface.
type ParseFunc func(source string) (RuleProgram, error)

func (f ParseFunc) Parse(source string) (RuleProgram, error) { return f(source) }

// WrapParseError wraps a parser-internal error (e.g. from dslref) into the
// boundary Error shape (spec §7), so every Parser implementation's failures
// surface through the same CodeParseFailure discipline regardless of how
// that parser reports errors internally.
func WrapParseError(err error) error {
	if err == nil {
		return nil
	}
	return types.NewError(types.CodeParseFailure, err.Error(), nil)
}
