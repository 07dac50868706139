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

package rx

import (
	"context"
	"reflect"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/config"
	"dirpx.dev/prefx/strategy"
	uref "dirpx.dev/prefx/utils/reflect"
)

// origin is the package-qualified name of Preference without type arguments.
var origin = uref.Origin(reflect.TypeFor[Preference[int]](), config.DefaultConfig())

// reactive implements apis.Reactive over an observable store.
type reactive struct {
	store apis.Observable
}

// Ensure reactive implements apis.Reactive.
var _ apis.Reactive = reactive{}

// New returns the reactive capability for store.
func New(store apis.Observable) apis.Reactive {
	return reactive{store: store}
}

// Origin returns the generic origin of Preference.
func Origin() string { return origin }

func (r reactive) Origin() string { return origin }

func (r reactive) WrapString(key string, def string) any { return String(r.store, key, def) }

func (r reactive) WrapInt(key string, def int) any { return Int(r.store, key, def) }

func (r reactive) WrapFloat(key string, def float64) any { return Float(r.store, key, def) }

func (r reactive) WrapLong(key string, def int64) any { return Long(r.store, key, def) }

func (r reactive) WrapBool(key string, def bool) any { return Bool(r.store, key, def) }

// Preference is a live, typed view of one store key.
type Preference[T any] struct {
	typed *strategy.Typed[T]
	store apis.Observable
}

// String returns the string preference stored under key.
func String(store apis.Observable, key string, def string) *Preference[string] {
	return &Preference[string]{typed: strategy.BindString(store, key, def), store: store}
}

// Int returns the int preference stored under key.
func Int(store apis.Observable, key string, def int) *Preference[int] {
	return &Preference[int]{typed: strategy.BindInt(store, key, def), store: store}
}

// Float returns the float64 preference stored under key.
func Float(store apis.Observable, key string, def float64) *Preference[float64] {
	return &Preference[float64]{typed: strategy.BindFloat(store, key, def), store: store}
}

// Long returns the int64 preference stored under key.
func Long(store apis.Observable, key string, def int64) *Preference[int64] {
	return &Preference[int64]{typed: strategy.BindLong(store, key, def), store: store}
}

// Bool returns the bool preference stored under key.
func Bool(store apis.Observable, key string, def bool) *Preference[bool] {
	return &Preference[bool]{typed: strategy.BindBool(store, key, def), store: store}
}

// Key returns the store key.
func (p *Preference[T]) Key() string { return p.typed.Key() }

// Default returns the value reported when the key is absent.
func (p *Preference[T]) Default() T { return p.typed.Default() }

// Get returns the current value. Absent keys and store errors yield the
// default.
func (p *Preference[T]) Get(ctx context.Context) T {
	v, _ := p.typed.Value(ctx)
	return v
}

// Value returns the current value and the store error, if any.
func (p *Preference[T]) Value(ctx context.Context) (T, error) {
	return p.typed.Value(ctx)
}

// Set writes v with deferred durability.
func (p *Preference[T]) Set(v T) error {
	p.typed.Put(v)
	return nil
}

// Commit writes v and blocks until the store reports the outcome.
func (p *Preference[T]) Commit(ctx context.Context, v T) error {
	return p.typed.Save(ctx, v)
}

// Delete removes the key.
func (p *Preference[T]) Delete(ctx context.Context) error {
	return p.typed.Delete(ctx)
}

// IsSet reports whether the key holds a value.
func (p *Preference[T]) IsSet(ctx context.Context) bool {
	ok, err := p.typed.IsSet(ctx)
	return ok && err == nil
}

// Observe emits the current value, then the value after every change to
// the key. A slow receiver only sees the latest value. The channel is
// closed when ctx ends or the store closes.
func (p *Preference[T]) Observe(ctx context.Context) <-chan T {
	out := make(chan T, 1)
	changes, cancel := p.store.Subscribe(p.Key())

	go func() {
		defer close(out)
		defer cancel()

		emit := func() bool {
			v := p.Get(ctx)
			select {
			case <-out:
			default:
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok || !emit() {
					return
				}
			}
		}
	}()
	return out
}
