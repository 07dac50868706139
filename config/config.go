/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"go.uber.org/zap"

	"dirpx.dev/prefx/apis"
)

const (
	// DefaultPrefix represents the default for Prefix: keys are used as declared.
	DefaultPrefix = ""
	// DefaultReactive represents the default for Reactive.
	// When true, stream accessors are enabled wherever the store is Observable.
	DefaultReactive = true
	// DefaultMaxUnwrap represents the default for MaxUnwrap.
	// A value of 8 should be sufficient for all practical purposes.
	DefaultMaxUnwrap = 8
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	// Ensure MaxUnwrap is valid.
	if cfg.MaxUnwrap < 0 {
		cfg.MaxUnwrap = DefaultMaxUnwrap
	}
	return cfg
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		Prefix:    DefaultPrefix,
		Reactive:  DefaultReactive,
		MaxUnwrap: DefaultMaxUnwrap,
	}
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *apis.Config) {
		c.Prefix = prefix
	}
}

// WithReactive enables or disables stream accessors.
func WithReactive(enabled bool) Option {
	return func(c *apis.Config) {
		c.Reactive = enabled
	}
}

// WithMaxUnwrap sets the MaxUnwrap option.
// A negative value resets to the default.
func WithMaxUnwrap(max int) Option {
	return func(c *apis.Config) {
		if max < 0 {
			c.MaxUnwrap = DefaultMaxUnwrap
			return
		}
		c.MaxUnwrap = max
	}
}

// WithLogger sets the structured logger. Nil disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(c *apis.Config) {
		c.Logger = logger
	}
}
