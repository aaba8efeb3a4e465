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

import "time"

// Option mutates a Config during NewConfig. Following the functional-options
// idiom, each With* builder touches exactly one field.
type Option func(*Config) error

func WithBackEnd(b BackEnd) Option {
	return func(c *Config) error {
		c.BackEnd = b
		return nil
	}
}

func WithMaxIterations(n int) Option {
	return func(c *Config) error {
		c.MaxIterations = n
		return nil
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.Timeout = d
		return nil
	}
}

func WithStrict(strict bool) Option {
	return func(c *Config) error {
		c.Strict = strict
		return nil
	}
}

func WithCacheCapacity(n int) Option {
	return func(c *Config) error {
		c.CacheCapacity = n
		return nil
	}
}

func WithBusPoolSize(n int) Option {
	return func(c *Config) error {
		c.BusPoolSize = n
		return nil
	}
}

func WithDedupWindow(d time.Duration) Option {
	return func(c *Config) error {
		c.DedupWindow = d
		return nil
	}
}

func WithRetentionInterval(d time.Duration) Option {
	return func(c *Config) error {
		c.RetentionInterval = d
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}
