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

package prefx_test

import (
	"context"
	"reflect"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/prefx"
	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/builder"
	"dirpx.dev/prefx/config"
	"dirpx.dev/prefx/resolver"
	"dirpx.dev/prefx/rx"
	"dirpx.dev/prefx/store"
)

type Network struct{}

func newPrefs(t *testing.T, opts ...config.Option) (*prefx.Prefs, *store.Store) {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { _ = s.Close() })
	return prefx.New(s, opts...), s
}

func declare[F any](name string, ann apis.Annotations) apis.Declaration {
	return apis.Declaration{
		Owner:       reflect.TypeFor[Network](),
		Name:        name,
		Func:        reflect.TypeFor[F](),
		Annotations: ann,
	}
}

// countingBuilder records how often each component was built.
type countingBuilder struct {
	apis.Builder
	mu        sync.Mutex
	resolvers int
	registry  int
}

func (c *countingBuilder) BuildResolver(cfg apis.Config) apis.Resolver {
	c.mu.Lock()
	c.resolvers++
	c.mu.Unlock()
	return c.Builder.BuildResolver(cfg)
}

func (c *countingBuilder) BuildRegistry(cfg apis.Config, f func(apis.Declaration) apis.Accessor, prev apis.Registry) apis.Registry {
	c.mu.Lock()
	c.registry++
	c.mu.Unlock()
	return c.Builder.BuildRegistry(cfg, f, prev)
}

// nilBuilder returns a nil registry.
type nilBuilder struct{ apis.Builder }

func (nilBuilder) BuildRegistry(apis.Config, func(apis.Declaration) apis.Accessor, apis.Registry) apis.Registry {
	return nil
}

func TestGetApply_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p, _ := newPrefs(t)

	get := declare[func() int]("GetTimeout", apis.Annotations{Defaults: []string{"30"}})
	set := declare[func(int)]("SetTimeout", apis.Annotations{Key: "timeout", Commit: true})

	v, err := p.Get(ctx, get)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	require.NoError(t, p.Apply(ctx, set, 45))
	v, err = p.Get(ctx, get)
	require.NoError(t, err)
	assert.Equal(t, 45, v)
}

func TestAccessor_CachedPerIdentity(t *testing.T) {
	p, _ := newPrefs(t)
	d := declare[func() string]("GetName", apis.Annotations{})

	a1, err := p.Accessor(d)
	require.NoError(t, err)
	a2, err := p.Accessor(d)
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, p.Registry().Count())
}

func TestStream(t *testing.T) {
	p, _ := newPrefs(t)
	require.NotNil(t, p.Reactive())

	h, err := p.Stream(declare[func() *rx.Preference[bool]]("WatchEnabled", apis.Annotations{Defaults: []string{"true"}}))
	require.NoError(t, err)
	pref, ok := h.(*rx.Preference[bool])
	require.True(t, ok)
	assert.Equal(t, "watchenabled", pref.Key())
	assert.True(t, pref.Get(context.Background()))
}

func TestReactive_DisabledByConfig(t *testing.T) {
	p, _ := newPrefs(t, config.WithReactive(false))
	assert.Nil(t, p.Reactive())
}

func TestSetConfig_RebuildsWithNewPrefix(t *testing.T) {
	ctx := context.Background()
	p, s := newPrefs(t)
	set := declare[func(string)]("SetTheme", apis.Annotations{Commit: true})

	require.NoError(t, p.Apply(ctx, set, "dark"))
	old := p.Registry()

	p.SetConfig(config.NewConfig(config.WithPrefix("ui.")))
	assert.Equal(t, "ui.", p.Config().Prefix)
	assert.NotSame(t, old, p.Registry())
	assert.Equal(t, 0, p.Registry().Count())

	require.NoError(t, p.Apply(ctx, set, "light"))
	v, _, _ := s.Lookup(ctx, "theme")
	assert.Equal(t, "dark", v)
	v, _, _ = s.Lookup(ctx, "ui.theme")
	assert.Equal(t, "light", v)
}

func TestSetBuilder(t *testing.T) {
	p, _ := newPrefs(t)
	cb := &countingBuilder{Builder: builder.New()}

	p.SetBuilder(nil)
	p.SetBuilder(cb)
	assert.Same(t, cb, p.Builder())
	assert.Equal(t, 1, cb.resolvers)
	assert.Equal(t, 1, cb.registry)

	p.SetConfig(p.Config())
	assert.Equal(t, 2, cb.resolvers)
}

func TestSetResolver_Pins(t *testing.T) {
	p, _ := newPrefs(t)
	cb := &countingBuilder{Builder: builder.New()}
	res := resolver.Default(config.DefaultConfig())

	p.SetResolver(nil)
	assert.False(t, p.IsResolverPinned())

	p.SetResolver(res)
	assert.True(t, p.IsResolverPinned())
	assert.Equal(t, res, p.Resolver())

	p.SetBuilder(cb)
	assert.Equal(t, 0, cb.resolvers)
	assert.Equal(t, res, p.Resolver())

	p.UnpinResolver()
	assert.False(t, p.IsResolverPinned())
	assert.Equal(t, 1, cb.resolvers)
}

func TestSetBuilder_NilRegistryPanics(t *testing.T) {
	p, _ := newPrefs(t)
	assert.PanicsWithValue(t, prefx.ErrNilRegistry, func() {
		p.SetBuilder(nilBuilder{builder.New()})
	})
}

func TestConcurrentReadsDuringRebuild(t *testing.T) {
	ctx := context.Background()
	p, _ := newPrefs(t)
	get := declare[func() int64]("GetLimit", apis.Annotations{Defaults: []string{"5"}})

	workers := runtime.GOMAXPROCS(0) * 4
	var wg sync.WaitGroup
	wg.Add(workers + 1)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				v, err := p.Get(ctx, get)
				if err != nil || v != int64(5) {
					t.Errorf("Get = (%v, %v), want (5, nil)", v, err)
					return
				}
			}
		}()
	}
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			p.SetConfig(p.Config())
		}
	}()
	wg.Wait()
}
