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

package apis

import "go.uber.org/zap"

// Config carries read-only knobs shared by all accessors of a Prefs
// instance. It is passed by value and must be treated as immutable.
type Config struct {
	// Prefix is prepended to every resolved key when non-empty.
	Prefix string

	// Reactive enables stream accessors when the store is Observable.
	Reactive bool

	// MaxUnwrap limits pointer unwrapping when inspecting result types.
	MaxUnwrap int

	// Logger receives structured diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Log returns cfg.Logger, or a no-op logger when it is nil.
func (c Config) Log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
