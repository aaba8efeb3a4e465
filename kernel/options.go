package kernel

import (
	"time"

	"github.com/ksd-co/rule-engine-postgres/builtins"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// Options configures one Evaluate call (spec §4.D "public API is
// evaluate(facts, program, options)").
type Options struct {
	BackEnd       types.BackEnd
	MaxIterations int
	Timeout       time.Duration
	Strict        bool
	Trace         bool

	Registry *builtins.Registry
	Aspects  types.AspectList
	Logger   types.Logger

	// timeoutCheck is set internally by Evaluate when Timeout > 0; the
	// back-ends poll it between firings (spec §5: "checked between rule
	// firings", never mid-firing).
	timeoutCheck func() bool
}

// withDefaults fills in zero-valued fields from cfg, the way the teacher's
// node contexts fall back to the chain-level Config when a node omits a
// setting.
func (o Options) withDefaults(cfg types.Config) Options {
	if o.BackEnd == "" {
		o.BackEnd = cfg.BackEnd
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = cfg.MaxIterations
	}
	if o.Timeout == 0 {
		o.Timeout = cfg.Timeout
	}
	if !o.Strict {
		o.Strict = cfg.Strict
	}
	if o.Registry == nil {
		o.Registry = builtins.New()
	}
	if o.Logger == nil {
		o.Logger = cfg.Logger
	}
	return o
}

// resolveBackEnd applies the "auto" heuristic documented in spec §4.D: RETE
// for programs with more than 5 rules, linear otherwise.
func resolveBackEnd(o Options, ruleCount int) types.BackEnd {
	if o.BackEnd != types.BackEndAuto && o.BackEnd != "" {
		return o.BackEnd
	}
	if ruleCount > 5 {
		return types.BackEndRete
	}
	return types.BackEndLinear
}
