// Package triggerpipeline implements the Reactive Trigger Pipeline (spec
// §4.G): hooking a row-change event on a user table to a rule execution,
// synchronously or through a durable async queue.
package triggerpipeline

import (
	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/fact"
)

// Operation is the row-change kind a trigger fires on.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Timing is when, relative to the host's own write, a trigger runs.
type Timing string

const (
	TimingBefore Timing = "BEFORE"
	TimingAfter  Timing = "AFTER"
)

// Mode selects synchronous-and-blocking vs. durable-and-async dispatch.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// RowImage is a raw column-name → value map, the NEW or OLD image the host
// database hands the pipeline on a row change (spec §4.G step 3 "row
// image"). Values are whatever the host driver decodes a column to
// (string, int64, float64, bool, time.Time, []byte, nil, ...).
type RowImage map[string]interface{}

// FactMapping is {entityName -> {factFieldName -> tableColumnName}} (spec §3
// Trigger Configuration).
type FactMapping map[string]map[string]string

// SideEffectHandler is invoked with the before/after fact snapshots of a
// sync-mode firing (spec §4.G step 4).
type SideEffectHandler func(before, after *fact.Facts)

// Config is one Trigger Configuration (spec §3).
type Config struct {
	ID                string
	Name              string
	TableName         string
	RuleName          string
	Event             Operation
	Timing            Timing
	FactMapping       FactMapping
	Mode              Mode
	WhenPredicate     *dsl.Expr
	SideEffectHandler SideEffectHandler
	Enabled           bool
	MaxRetries        int
}
