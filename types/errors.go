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

import (
	"fmt"
	"time"
)

// Code is a stable error code crossing the host boundary (spec §7). Names
// are illustrative but the values themselves must not change once shipped.
type Code string

const (
	CodeInputEmpty             Code = "InputEmpty"
	CodeInputTooLarge          Code = "InputTooLarge"
	CodeInputMalformed         Code = "InputMalformed"
	CodeParseFailure           Code = "ParseFailure"
	CodeUnknownFunction        Code = "UnknownFunction"
	CodeArity                  Code = "Arity"
	CodeTypeMismatch           Code = "TypeMismatch"
	CodePathMalformed          Code = "PathMalformed"
	CodePathMissing            Code = "PathMissing"
	CodeNontermination         Code = "Nontermination"
	CodeTimeout                Code = "Timeout"
	CodeCompileCacheUnavailable Code = "CompileCacheUnavailable"
	CodeTriggerMisconfigured   Code = "TriggerMisconfigured"
	CodeBusUnavailable         Code = "BusUnavailable"
	CodeBusPublishFailed       Code = "BusPublishFailed"
	CodeBusAuth                Code = "BusAuth"
	CodeQueueFull              Code = "QueueFull"
	CodeQueueConsumerCrashed   Code = "QueueConsumerCrashed"
	CodeCredentialSealFailed   Code = "CredentialSealFailed"
	CodeCredentialOpenFailed   Code = "CredentialOpenFailed"
)

// Error is the structured value every callable returns on failure, matching
// spec §7's "{code, message, timestamp, optional context}" exit discipline.
// It deliberately carries no stack/panic payload: nothing below the host
// boundary is allowed to escape as an unrecovered panic.
type Error struct {
	Code      Code
	Message   string
	Timestamp time.Time
	Context   map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError constructs a boundary Error, stamping the current time.
func NewError(code Code, message string, context map[string]interface{}) *Error {
	return &Error{Code: code, Message: message, Timestamp: time.Now(), Context: context}
}

// WithContext returns a copy of e with an additional context key set.
func (e *Error) WithContext(key string, value interface{}) *Error {
	cp := *e
	cp.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}
