/*
 * Copyright 2023 The RuleGo Authors.
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

// Package types defines the shared configuration, error, and aspect contracts
// used across the rule engine's kernel, cache, trigger pipeline, and fan-out
// subsystems.
package types

import "time"

// BackEnd selects which evaluation strategy the kernel uses for a program.
type BackEnd string

const (
	BackEndAuto   BackEnd = "auto"
	BackEndRete   BackEnd = "rete"
	BackEndLinear BackEnd = "linear"
)

// Config carries every tunable the kernel and its surrounding subsystems
// need. It is built exclusively through NewConfig + functional options so
// that callers only ever specify the fields they care about.
type Config struct {
	// BackEnd picks the evaluation strategy: auto, rete, or linear.
	BackEnd BackEnd
	// MaxIterations is the hard fixpoint cap (default 10_000).
	MaxIterations int
	// Timeout is the optional soft wall-clock budget for one evaluation.
	Timeout time.Duration
	// Strict promotes any Error event raised during firing to a terminal
	// session failure.
	Strict bool
	// CacheCapacity bounds the compiled-rule cache (default 100).
	CacheCapacity int

	// BusPoolSize bounds the outbound bus connection pool (default 10).
	BusPoolSize int
	// BusConnectTimeout, BusReconnectDelay, BusMaxReconnect govern bus
	// connection lifecycle.
	BusConnectTimeout time.Duration
	BusReconnectDelay time.Duration
	BusMaxReconnect   int

	// DedupWindow is how long a repeated bus messageId collapses to one
	// stored message (default 120s, per spec Design Notes).
	DedupWindow time.Duration

	// RetentionInterval governs the session/envelope purge sweep.
	RetentionInterval time.Duration

	// Logger is the structured logging sink, defaulting to a zerolog-backed
	// implementation (see DefaultLogger).
	Logger Logger

	// Udf registers custom functions callable from rule conditions/actions
	// under their registered name, keyed by function name. A value is either
	// a Go func([]fact.Value) (fact.Value, error) or a UdfScript, in which
	// case it is compiled and run by a goja VM.
	Udf map[string]interface{}
}

// UdfScript is a goja-scripted user-defined function: JavaScript source
// defining a top-level function of the same name as the UDF it backs.
type UdfScript struct {
	Source string
}

// RegisterUdf registers a custom function under name — a Go closure or a
// UdfScript. Later registrations with the same name replace earlier ones.
func (c *Config) RegisterUdf(name string, fn interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	c.Udf[name] = fn
}

// NewConfig builds a Config with the engine's defaults and applies opts in
// order.
func NewConfig(opts ...Option) Config {
	c := &Config{
		BackEnd:           BackEndAuto,
		MaxIterations:     10_000,
		CacheCapacity:     100,
		BusPoolSize:       10,
		BusConnectTimeout: 5 * time.Second,
		BusReconnectDelay: 2 * time.Second,
		BusMaxReconnect:   -1,
		DedupWindow:       120 * time.Second,
		RetentionInterval: 24 * time.Hour,
		Logger:            DefaultLogger(),
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
