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

// Strategy reads and writes one key of a Store for one semantic Kind.
// A Strategy is bound to its (store, key, default) at construction and is
// safe for concurrent use.
type Strategy interface {
	// Kind returns the semantic value type handled by the strategy.
	Kind() Kind
	// Key returns the bound store key.
	Key() string
	// Get returns the stored value, or the parsed default when the key is
	// absent. The value has the canonical Go type of Kind.
	Get(ctx context.Context) (any, error)
	// Set writes value with deferred durability.
	Set(value any) error
	// Commit writes value and blocks until the store reports the outcome.
	Commit(ctx context.Context, value any) error
}
