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

package memory

import (
	"context"
	"maps"
	"sync"
)

// Backend keeps values in process memory. It is intended for tests,
// examples and ephemeral preferences.
type Backend struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{data: make(map[string]any)}
}

// Load returns the value stored under key.
func (b *Backend) Load(_ context.Context, key string) (any, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok, nil
}

// Save stores value under key.
func (b *Backend) Save(_ context.Context, key string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

// Delete removes key.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Snapshot returns a copy of every stored value.
func (b *Backend) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.data)
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }
