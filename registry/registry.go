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

package registry

import (
	"errors"
	"sync"

	"dirpx.dev/prefx/apis"
)

var (
	// ErrEmptyName is returned when a declaration has no method name.
	ErrEmptyName = errors.New("prefx(registry): empty method name")
	// ErrNilSignature is returned when a declaration has no func type.
	ErrNilSignature = errors.New("prefx(registry): nil accessor signature")
	// ErrNilAccessor is returned when the factory produces no accessor.
	ErrNilAccessor = errors.New("prefx(registry): factory returned nil accessor")
)

// New constructs a Registry whose accessors are created by factory.
// Creation does not resolve; accessors resolve on first use.
func New(factory func(apis.Declaration) apis.Accessor) apis.Registry {
	return &registry{factory: factory}
}

// registry is a Registry backed by sync.Map.
type registry struct {
	// factory creates accessors for unseen declarations.
	factory func(apis.Declaration) apis.Accessor
	// mu guards creation and count.
	mu sync.Mutex
	// m maps apis.MethodID to apis.Accessor.
	m sync.Map
	// count tracks the number of cached accessors.
	count int
}

// GetOrCreate returns the accessor cached for decl's identity, creating it
// on first use. Racing callers for one identity receive the same instance
// and the factory runs once.
func (r *registry) GetOrCreate(decl apis.Declaration) (apis.Accessor, error) {
	if decl.Name == "" {
		return nil, ErrEmptyName
	}
	if decl.Func == nil {
		return nil, ErrNilSignature
	}
	id := decl.ID()

	// Fast read path.
	if v, ok := r.m.Load(id); ok {
		return v.(apis.Accessor), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if v, ok := r.m.Load(id); ok {
		return v.(apis.Accessor), nil
	}

	a := r.factory(decl)
	if a == nil {
		return nil, ErrNilAccessor
	}
	r.m.Store(id, a)
	r.count++
	return a, nil
}

// Lookup returns the accessor cached for id if present.
func (r *registry) Lookup(id apis.MethodID) (apis.Accessor, bool) {
	if v, ok := r.m.Load(id); ok {
		return v.(apis.Accessor), true
	}
	return nil, false
}

// Entries returns a snapshot for diagnostics (order is unspecified).
func (r *registry) Entries() []apis.Accessor {
	entries := make([]apis.Accessor, 0, r.Count())
	r.m.Range(func(_, value any) bool {
		entries = append(entries, value.(apis.Accessor))
		return true
	})
	return entries
}

// Count returns the number of cached accessors.
func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset drops every cached accessor.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Clear()
	r.count = 0
}
