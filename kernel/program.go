// Package kernel implements the Rule Evaluation Kernel: a linear
// forward-chainer and a RETE-style network sharing one agenda/applicator
// semantics over a compiled rule program (spec §4.D).
package kernel

import (
	"fmt"
	"sync"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// CompiledRule is one rule, indexed for agenda ordering.
type CompiledRule struct {
	Name           string
	Salience       int
	Condition      dsl.Expr
	Actions        []dsl.Action
	InsertionIndex int
}

// CompiledProgram is the result of validating and indexing a RuleProgram; it
// is what the compiled-rule cache stores keyed by Fingerprint.
type CompiledProgram struct {
	Fingerprint dsl.Fingerprint
	Rules       []CompiledRule

	reteOnce sync.Once
	rete     *reteNetwork
}

// Compile validates program and builds a CompiledProgram, running any
// registered OnProgramValidateAspect before indexing (mirrors the teacher's
// OnChainBeforeInit validation hook, generalized from a chain definition to
// a rule program).
func Compile(program dsl.RuleProgram, aspects types.AspectList) (*CompiledProgram, error) {
	names := make([]string, len(program.Rules))
	for i, r := range program.Rules {
		names[i] = r.Name
	}
	for _, aspect := range aspects.GetOnProgramValidateAspects() {
		if err := aspect.OnProgramValidate(names); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(program.Rules))
	rules := make([]CompiledRule, len(program.Rules))
	for i, r := range program.Rules {
		if seen[r.Name] {
			return nil, types.NewError(types.CodeInputMalformed, fmt.Sprintf("duplicate rule name %q", r.Name), map[string]interface{}{"rule": r.Name})
		}
		seen[r.Name] = true
		rules[i] = CompiledRule{
			Name:           r.Name,
			Salience:       r.Salience,
			Condition:      r.Condition,
			Actions:        r.Actions,
			InsertionIndex: i,
		}
	}

	fp, err := dsl.ComputeFingerprint(program)
	if err != nil {
		return nil, err
	}

	return &CompiledProgram{Fingerprint: fp, Rules: rules}, nil
}

// reteFor lazily builds and caches this program's RETE network; every
// evaluation against the same *CompiledProgram reuses it (spec §4.D: "shared
// alpha/beta nodes").
func (p *CompiledProgram) reteFor() *reteNetwork {
	p.reteOnce.Do(func() {
		p.rete = buildReteNetwork(p.Rules)
	})
	return p.rete
}
