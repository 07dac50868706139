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

import "context"

// Accessor is the resolved-on-first-use metadata of one declared method,
// and the dispatch target for its calls.
type Accessor interface {
	// ID returns the identity of the declared method.
	ID() MethodID
	// State reports the resolution lifecycle.
	State() State
	// Resolve performs the one-time resolution. It is idempotent and safe
	// for concurrent use; every caller observes the same outcome.
	Resolve() error
	// Binding resolves if needed and returns the immutable binding.
	Binding() (*Binding, error)
	// Get reads the current value. It fails for Void accessors.
	Get(ctx context.Context) (any, error)
	// Apply writes value, immediately when the accessor commits and
	// deferred otherwise.
	Apply(ctx context.Context, value any) error
	// Stream returns the reactive handle of a Stream accessor.
	Stream() (any, error)
}

// Registry caches one Accessor per declared method for the registry's
// lifetime. Implementations must be safe for concurrent use.
type Registry interface {
	// GetOrCreate returns the cached accessor for decl's identity, creating
	// it on first use. Concurrent calls for one identity converge on a
	// single instance.
	GetOrCreate(decl Declaration) (Accessor, error)
	// Lookup returns a cached accessor if present.
	Lookup(id MethodID) (Accessor, bool)
	// Entries returns a snapshot of cached accessors (order is unspecified).
	Entries() []Accessor
	// Count returns the number of cached accessors.
	Count() int
	// Reset drops every cached accessor.
	Reset()
}
