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
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"dirpx.dev/prefx/apis"
)

// Typed is the value strategy for one scalar Kind with Go representation T.
//
// The default is parsed once at construction. Reads return the stored value
// coerced into T, or the default when the key is absent. Writes coerce their
// input into T before handing it to the store, so the store only ever sees
// canonical values.
type Typed[T any] struct {
	// kind is the semantic type handled by this strategy.
	kind apis.Kind
	// store is the bound store.
	store apis.Store
	// key is the bound key.
	key string
	// def is the parsed default.
	def T
	// coerce converts raw store values and written values into T.
	coerce func(any) (T, error)
}

// Ensure Typed implements apis.Strategy.
var _ apis.Strategy = (*Typed[int])(nil)

// NewString creates the strategy for String keys.
func NewString(store apis.Store, key string, defaults []string) (*Typed[string], error) {
	return newTyped(apis.String, store, key, defaults, cast.ToStringE)
}

// NewBool creates the strategy for Bool keys.
func NewBool(store apis.Store, key string, defaults []string) (*Typed[bool], error) {
	return newTyped(apis.Bool, store, key, defaults, cast.ToBoolE)
}

// NewInt creates the strategy for Int keys.
func NewInt(store apis.Store, key string, defaults []string) (*Typed[int], error) {
	return newTyped(apis.Int, store, key, defaults, cast.ToIntE)
}

// NewFloat creates the strategy for Float keys.
func NewFloat(store apis.Store, key string, defaults []string) (*Typed[float64], error) {
	return newTyped(apis.Float, store, key, defaults, cast.ToFloat64E)
}

// NewLong creates the strategy for Long keys.
func NewLong(store apis.Store, key string, defaults []string) (*Typed[int64], error) {
	return newTyped(apis.Long, store, key, defaults, cast.ToInt64E)
}

// BindString binds a String strategy to an already parsed default.
func BindString(store apis.Store, key string, def string) *Typed[string] {
	return bind(apis.String, store, key, def, cast.ToStringE)
}

// BindBool binds a Bool strategy to an already parsed default.
func BindBool(store apis.Store, key string, def bool) *Typed[bool] {
	return bind(apis.Bool, store, key, def, cast.ToBoolE)
}

// BindInt binds an Int strategy to an already parsed default.
func BindInt(store apis.Store, key string, def int) *Typed[int] {
	return bind(apis.Int, store, key, def, cast.ToIntE)
}

// BindFloat binds a Float strategy to an already parsed default.
func BindFloat(store apis.Store, key string, def float64) *Typed[float64] {
	return bind(apis.Float, store, key, def, cast.ToFloat64E)
}

// BindLong binds a Long strategy to an already parsed default.
func BindLong(store apis.Store, key string, def int64) *Typed[int64] {
	return bind(apis.Long, store, key, def, cast.ToInt64E)
}

// newTyped parses defaults once and binds the strategy.
func newTyped[T any](kind apis.Kind, store apis.Store, key string, defaults []string, coerce func(any) (T, error)) (*Typed[T], error) {
	def, err := parseDefault(kind, defaults, coerce)
	if err != nil {
		return nil, err
	}
	return bind(kind, store, key, def, coerce), nil
}

// bind builds a strategy around an already parsed default.
func bind[T any](kind apis.Kind, store apis.Store, key string, def T, coerce func(any) (T, error)) *Typed[T] {
	return &Typed[T]{kind: kind, store: store, key: key, def: def, coerce: coerce}
}

// parseDefault parses the first default into T. No defaults, or an empty
// first default for a non-string kind, yields the zero value.
func parseDefault[T any](kind apis.Kind, defaults []string, coerce func(any) (T, error)) (T, error) {
	var zero T
	if len(defaults) == 0 {
		return zero, nil
	}
	raw := defaults[0]
	if kind != apis.String {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return zero, nil
		}
	}
	v, err := coerce(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %q is not a valid %s", apis.ErrUnparseableDefault, defaults[0], kind)
	}
	return v, nil
}

// Kind returns the semantic type handled by s.
func (s *Typed[T]) Kind() apis.Kind { return s.kind }

// Key returns the bound key.
func (s *Typed[T]) Key() string { return s.key }

// Default returns the parsed default.
func (s *Typed[T]) Default() T { return s.def }

// Value returns the stored value, or the default when the key is absent.
func (s *Typed[T]) Value(ctx context.Context) (T, error) {
	raw, ok, err := s.store.Lookup(ctx, s.key)
	if err != nil {
		return s.def, fmt.Errorf("strategy: lookup %q: %w", s.key, err)
	}
	if !ok {
		return s.def, nil
	}
	v, err := s.coerce(raw)
	if err != nil {
		return s.def, fmt.Errorf("strategy: %q holds %T: %w", s.key, raw, apis.ErrStoredValue)
	}
	return v, nil
}

// Get implements apis.Strategy. It is Value with the result boxed.
func (s *Typed[T]) Get(ctx context.Context) (any, error) {
	return s.Value(ctx)
}

// Put writes v with deferred durability.
func (s *Typed[T]) Put(v T) {
	s.store.Put(s.key, v)
}

// Save writes v and blocks until the store reports the outcome.
func (s *Typed[T]) Save(ctx context.Context, v T) error {
	return s.store.Commit(ctx, s.key, v)
}

// Set implements apis.Strategy. The value is coerced into T and written
// with deferred durability.
func (s *Typed[T]) Set(value any) error {
	v, err := s.convert(value)
	if err != nil {
		return err
	}
	s.Put(v)
	return nil
}

// Commit implements apis.Strategy. The store's outcome is returned unchanged.
func (s *Typed[T]) Commit(ctx context.Context, value any) error {
	v, err := s.convert(value)
	if err != nil {
		return err
	}
	return s.Save(ctx, v)
}

// IsSet reports whether the key currently holds a value.
func (s *Typed[T]) IsSet(ctx context.Context) (bool, error) {
	_, ok, err := s.store.Lookup(ctx, s.key)
	return ok, err
}

// Delete removes the key; subsequent reads return the default.
func (s *Typed[T]) Delete(ctx context.Context) error {
	return s.store.Remove(ctx, s.key)
}

// convert accepts values of T as is and coerces anything else, reporting
// ErrValueType when coercion fails.
func (s *Typed[T]) convert(value any) (T, error) {
	if v, ok := value.(T); ok {
		return v, nil
	}
	v, err := s.coerce(value)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("strategy: %q cannot take %T: %w", s.key, value, apis.ErrValueType)
	}
	return v, nil
}
