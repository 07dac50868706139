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

package strategy

import (
	"context"

	"dirpx.dev/prefx/apis"
)

// NewEmpty creates the inert strategy used for Unsupported kinds: reads
// return nil and writes are dropped.
func NewEmpty(key string) apis.Strategy {
	return emptyStrategy{key: key}
}

// emptyStrategy keeps an accessor "declared but inert" instead of failing.
type emptyStrategy struct {
	key string
}

// Ensure emptyStrategy implements apis.Strategy.
var _ apis.Strategy = emptyStrategy{}

// Kind always reports Unsupported.
func (emptyStrategy) Kind() apis.Kind { return apis.Unsupported }

// Key returns the key the accessor was declared with.
func (s emptyStrategy) Key() string { return s.key }

// Get returns nil without touching the store.
func (emptyStrategy) Get(context.Context) (any, error) { return nil, nil }

// Set drops the value.
func (emptyStrategy) Set(any) error { return nil }

// Commit drops the value and reports success.
func (emptyStrategy) Commit(context.Context, any) error { return nil }
