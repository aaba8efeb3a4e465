/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "sort"

// Aspect is the base AOP contract: every cross-cutting concern (validation,
// debug logging, metrics) registers at Order() priority and gets its own
// New() instance per evaluation so instances never share mutable state.
type Aspect interface {
	// Order returns the execution priority; lower values run earlier.
	Order() int
	// New returns an isolated instance of this aspect for one kernel/engine.
	New() Aspect
}

// FiringContext exposes just enough about the current rule firing for an
// aspect's PointCut to decide whether it applies, without the aspect package
// needing to import the kernel (which in turn depends on types).
type FiringContext interface {
	SessionID() string
	RuleName() string
	Salience() int
}

// KernelAspect gates which firings an aspect applies to.
type KernelAspect interface {
	Aspect
	PointCut(ctx FiringContext) bool
}

// KernelBeforeRuleAspect runs just before a rule's actions are applied.
type KernelBeforeRuleAspect interface {
	KernelAspect
	BeforeRule(ctx FiringContext) error
}

// KernelAfterRuleAspect runs just after a rule's actions have been applied
// (err is non-nil if an action failed).
type KernelAfterRuleAspect interface {
	KernelAspect
	AfterRule(ctx FiringContext, err error) error
}

// KernelBeforeActionAspect runs before each individual action within a rule.
type KernelBeforeActionAspect interface {
	KernelAspect
	BeforeAction(ctx FiringContext, actionIndex int) error
}

// KernelAfterActionAspect runs after each individual action within a rule.
type KernelAfterActionAspect interface {
	KernelAspect
	AfterAction(ctx FiringContext, actionIndex int, err error) error
}

// OnProgramValidateAspect runs once per compiled program, before it is
// cached, mirroring the teacher's OnChainBeforeInit validation hook.
type OnProgramValidateAspect interface {
	Aspect
	OnProgramValidate(ruleNames []string) error
}

// AspectList holds every registered aspect for one kernel instance and
// extracts the typed subsets in priority order, exactly as the teacher's
// AspectList does for node/chain aspects.
type AspectList []Aspect

func (list AspectList) sorted() AspectList {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Order() < list[j].Order()
	})
	return list
}

func (list AspectList) GetBeforeRuleAspects() []KernelBeforeRuleAspect {
	var out []KernelBeforeRuleAspect
	for _, a := range list.sorted() {
		if v, ok := a.(KernelBeforeRuleAspect); ok {
			out = append(out, v)
		}
	}
	return out
}

func (list AspectList) GetAfterRuleAspects() []KernelAfterRuleAspect {
	var out []KernelAfterRuleAspect
	for _, a := range list.sorted() {
		if v, ok := a.(KernelAfterRuleAspect); ok {
			out = append(out, v)
		}
	}
	return out
}

func (list AspectList) GetBeforeActionAspects() []KernelBeforeActionAspect {
	var out []KernelBeforeActionAspect
	for _, a := range list.sorted() {
		if v, ok := a.(KernelBeforeActionAspect); ok {
			out = append(out, v)
		}
	}
	return out
}

func (list AspectList) GetAfterActionAspects() []KernelAfterActionAspect {
	var out []KernelAfterActionAspect
	for _, a := range list.sorted() {
		if v, ok := a.(KernelAfterActionAspect); ok {
			out = append(out, v)
		}
	}
	return out
}

func (list AspectList) GetOnProgramValidateAspects() []OnProgramValidateAspect {
	var out []OnProgramValidateAspect
	for _, a := range list.sorted() {
		if v, ok := a.(OnProgramValidateAspect); ok {
			out = append(out, v)
		}
	}
	return out
}
