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

package prefx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/builder"
	"dirpx.dev/prefx/config"
	"dirpx.dev/prefx/metadata"
)

var (
	// ErrNilRegistry is returned when a builder returns a nil registry.
	ErrNilRegistry = errors.New("prefx: builder returned nil registry")
	// ErrNilResolver is returned when a builder returns a nil resolver.
	ErrNilResolver = errors.New("prefx: builder returned nil resolver")
)

// state is an immutable snapshot of everything accessors depend on.
type state struct {
	// cfg is the active configuration.
	cfg apis.Config
	// bld constructs the other components.
	bld apis.Builder
	// res classifies declarations.
	res apis.Resolver
	// reg caches accessors built for this snapshot.
	reg apis.Registry
	// rx is the reactive capability, nil when unavailable.
	rx apis.Reactive
	// pres marks res as pinned by SetResolver.
	pres bool
}

// Prefs dispatches declared accessors to a store.
//
// Reads load the current snapshot atomically and never lock. Writers
// (SetConfig, SetBuilder, SetResolver) build a new snapshot under a short
// mutex and publish it; accessors cached by the previous snapshot keep
// working but are no longer handed out.
type Prefs struct {
	store   apis.Store
	st      atomic.Pointer[state]
	buildMu sync.Mutex
}

// New returns Prefs over store using the default builder.
func New(store apis.Store, opts ...config.Option) *Prefs {
	p := &Prefs{store: store}
	p.st.Store(p.build(config.NewConfig(opts...), builder.New(), nil, nil))
	return p
}

// build assembles a snapshot. A non-nil res is kept as a pinned resolver.
func (p *Prefs) build(cfg apis.Config, b apis.Builder, res apis.Resolver, prev apis.Registry) *state {
	s := &state{cfg: cfg, bld: b, pres: res != nil}
	s.rx = b.BuildReactive(cfg, p.store)
	s.res = res
	if s.res == nil {
		s.res = b.BuildResolver(cfg)
	}
	if s.res == nil {
		panic(ErrNilResolver)
	}

	deps := metadata.Deps{
		Store:    p.store,
		Resolver: s.res,
		Builder:  b,
		Reactive: s.rx,
		Config:   cfg,
	}
	s.reg = b.BuildRegistry(cfg, metadata.Factory(deps), prev)
	if s.reg == nil {
		panic(ErrNilRegistry)
	}
	return s
}

// pinned returns the resolver to carry into a rebuild, nil when it is not
// pinned.
func (s *state) pinned() apis.Resolver {
	if s.pres {
		return s.res
	}
	return nil
}

// Store returns the underlying store.
func (p *Prefs) Store() apis.Store { return p.store }

// Accessor returns the cached accessor for decl, creating it on first use.
// The accessor resolves lazily.
func (p *Prefs) Accessor(decl apis.Declaration) (apis.Accessor, error) {
	return p.st.Load().reg.GetOrCreate(decl)
}

// Get reads the value of a getter declaration.
func (p *Prefs) Get(ctx context.Context, decl apis.Declaration) (any, error) {
	a, err := p.Accessor(decl)
	if err != nil {
		return nil, err
	}
	return a.Get(ctx)
}

// Apply writes value through decl, immediately when decl commits.
func (p *Prefs) Apply(ctx context.Context, decl apis.Declaration, value any) error {
	a, err := p.Accessor(decl)
	if err != nil {
		return err
	}
	return a.Apply(ctx, value)
}

// Stream returns the reactive handle of a stream declaration.
func (p *Prefs) Stream(decl apis.Declaration) (any, error) {
	a, err := p.Accessor(decl)
	if err != nil {
		return nil, err
	}
	return a.Stream()
}

// Config returns the active configuration.
func (p *Prefs) Config() apis.Config {
	return p.st.Load().cfg
}

// SetConfig replaces the configuration and rebuilds every component.
func (p *Prefs) SetConfig(cfg apis.Config) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	old := p.st.Load()
	p.st.Store(p.build(cfg, old.bld, old.pinned(), old.reg))
}

// Builder returns the active builder.
func (p *Prefs) Builder() apis.Builder {
	return p.st.Load().bld
}

// SetBuilder replaces the builder and rebuilds every component with it.
// A nil builder is ignored.
func (p *Prefs) SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	old := p.st.Load()
	p.st.Store(p.build(old.cfg, b, old.pinned(), old.reg))
}

// Resolver returns the active resolver.
func (p *Prefs) Resolver() apis.Resolver {
	return p.st.Load().res
}

// SetResolver pins res as the resolver. Pinned resolvers survive SetConfig
// and SetBuilder until UnpinResolver. A nil resolver is ignored.
func (p *Prefs) SetResolver(res apis.Resolver) {
	if res == nil {
		return
	}
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	old := p.st.Load()
	p.st.Store(p.build(old.cfg, old.bld, res, old.reg))
}

// IsResolverPinned reports whether SetResolver pinned the resolver.
func (p *Prefs) IsResolverPinned() bool {
	return p.st.Load().pres
}

// UnpinResolver lets the builder construct the resolver again.
func (p *Prefs) UnpinResolver() {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	old := p.st.Load()
	if !old.pres {
		return
	}
	p.st.Store(p.build(old.cfg, old.bld, nil, old.reg))
}

// Registry returns the active accessor registry.
func (p *Prefs) Registry() apis.Registry {
	return p.st.Load().reg
}

// Reactive returns the reactive capability, nil when it is disabled or the
// store does not publish changes.
func (p *Prefs) Reactive() apis.Reactive {
	return p.st.Load().rx
}
