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

package metadata

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/strategy"
	uref "dirpx.dev/prefx/utils/reflect"
)

// Deps are the collaborators shared by every accessor of one Prefs instance.
type Deps struct {
	// Store holds the values.
	Store apis.Store
	// Resolver classifies declarations.
	Resolver apis.Resolver
	// Builder constructs strategies and stream handles.
	Builder apis.Builder
	// Reactive is the stream capability, nil when unavailable.
	Reactive apis.Reactive
	// Config carries the key prefix and logger.
	Config apis.Config
}

// outcome is the published result of resolution.
type outcome struct {
	binding *apis.Binding
	err     error
}

// Method is the lazily resolved metadata of one declared accessor.
//
// Resolution runs at most once. Its outcome, including a failure, is
// published through an atomic pointer and never changes afterwards, so the
// fast path of every call is a single atomic load.
type Method struct {
	decl apis.Declaration
	deps Deps
	log  *zap.Logger

	state  atomic.Int32
	result atomic.Pointer[outcome]
	mu     sync.Mutex
}

// Ensure Method implements apis.Accessor.
var _ apis.Accessor = (*Method)(nil)

// New returns the unresolved metadata for decl.
func New(decl apis.Declaration, deps Deps) *Method {
	return &Method{
		decl: decl,
		deps: deps,
		log:  deps.Config.Log().With(zap.Stringer("method", decl.ID())),
	}
}

// Factory adapts New to the registry factory signature.
func Factory(deps Deps) func(apis.Declaration) apis.Accessor {
	return func(decl apis.Declaration) apis.Accessor {
		return New(decl, deps)
	}
}

// ID returns the identity of the declared method.
func (m *Method) ID() apis.MethodID { return m.decl.ID() }

// Declaration returns the declaration m was created for.
func (m *Method) Declaration() apis.Declaration { return m.decl }

// State reports the resolution lifecycle.
func (m *Method) State() apis.State { return apis.State(m.state.Load()) }

// Resolve performs the one-time resolution and returns its outcome.
func (m *Method) Resolve() error {
	_, err := m.Binding()
	return err
}

// Binding resolves if needed and returns the immutable binding.
func (m *Method) Binding() (*apis.Binding, error) {
	if o := m.result.Load(); o != nil {
		return o.binding, o.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under lock in case another goroutine resolved meanwhile.
	if o := m.result.Load(); o != nil {
		return o.binding, o.err
	}

	m.state.Store(int32(apis.Resolving))
	b, err := m.resolve()
	if err != nil {
		m.log.Warn("accessor resolution failed", zap.Error(err))
		b = nil
	}
	m.result.Store(&outcome{binding: b, err: err})
	m.state.Store(int32(apis.Resolved))
	return b, err
}

func (m *Method) resolve() (*apis.Binding, error) {
	id := m.decl.ID()
	ann := m.decl.Annotations
	key := Key(m.deps.Config.Prefix, m.decl.Name, ann.Key)

	sig, err := m.deps.Resolver.Resolve(m.decl, m.deps.Reactive)
	if err != nil {
		return nil, err
	}

	st, err := m.deps.Builder.BuildStrategy(sig.Kind, m.deps.Store, key, ann.Defaults)
	if err != nil {
		return nil, apis.NewMethodError(id, err)
	}
	if err := checkDefault(sig, ann.Defaults); err != nil {
		return nil, apis.NewMethodError(id, err)
	}

	b := &apis.Binding{
		Key:      key,
		Defaults: append([]string(nil), ann.Defaults...),
		Commit:   ann.Commit,
		Response: sig.Response,
		Kind:     sig.Kind,
		Value:    sig.Value,
		Strategy: st,
	}

	if sig.Response == apis.Stream {
		h, err := m.deps.Builder.BuildStream(sig.Kind, m.deps.Reactive, key, ann.Defaults)
		if err != nil {
			return nil, apis.NewMethodError(id, err)
		}
		b.Stream = h
	}

	if sig.Kind == apis.Unsupported {
		m.log.Warn("no strategy for accessor type; reads yield nil and writes are dropped",
			zap.String("type", typeString(sig.Value)), zap.Stringer("response", sig.Response))
	}
	m.log.Debug("accessor resolved",
		zap.String("key", key),
		zap.Stringer("response", sig.Response),
		zap.Stringer("kind", sig.Kind),
		zap.Bool("commit", ann.Commit))
	return b, nil
}

// checkDefault rejects a default that parses for the kind but does not fit
// the declared type, such as 300 for an int8 getter.
func checkDefault(sig apis.Signature, defaults []string) error {
	if len(defaults) == 0 || sig.Value == nil || sig.Kind == apis.Unsupported {
		return nil
	}
	def, err := strategy.ParseDefault(sig.Kind, defaults)
	if err != nil {
		return err
	}
	if !uref.Fits(def, sig.Value) {
		return fmt.Errorf("%w: %q overflows %s", apis.ErrUnparseableDefault, defaults[0], sig.Value)
	}
	return nil
}

// Get reads the current value through the bound strategy.
func (m *Method) Get(ctx context.Context) (any, error) {
	b, err := m.Binding()
	if err != nil {
		return nil, err
	}
	if b.Response == apis.Void {
		return nil, apis.NewMethodError(m.ID(), apis.ErrNotReadable)
	}
	v, err := b.Strategy.Get(ctx)
	if err != nil {
		return v, apis.NewMethodError(m.ID(), err)
	}
	return v, nil
}

// Apply writes value: immediately when the accessor commits, deferred
// otherwise. A commit returns the store's outcome unchanged.
func (m *Method) Apply(ctx context.Context, value any) error {
	b, err := m.Binding()
	if err != nil {
		return err
	}
	if b.Commit {
		return b.Strategy.Commit(ctx, value)
	}
	return b.Strategy.Set(value)
}

// Stream returns the reactive handle. It is nil when the carried type has
// no stream representation.
func (m *Method) Stream() (any, error) {
	b, err := m.Binding()
	if err != nil {
		return nil, err
	}
	if b.Response != apis.Stream {
		return nil, apis.NewMethodError(m.ID(), apis.ErrNotStream)
	}
	return b.Stream, nil
}

// Key returns the store key of an accessor: the explicit key when set,
// otherwise the key derived from name, with prefix prepended.
func Key(prefix, name, explicit string) string {
	key := explicit
	if key == "" {
		key = DeriveKey(name)
	}
	return prefix + key
}

// DeriveKey strips a leading "get" or "set" (any case) from name and
// lower-cases the rest. A name that is only the verb is kept whole.
func DeriveKey(name string) string {
	lower := strings.ToLower(name)
	for _, verb := range [...]string{"get", "set"} {
		if rest, ok := strings.CutPrefix(lower, verb); ok && rest != "" {
			return rest
		}
	}
	return lower
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
