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

package builder

import (
	"go.uber.org/zap"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/registry"
	"dirpx.dev/prefx/resolver"
	"dirpx.dev/prefx/rx"
	"dirpx.dev/prefx/strategy"
)

// New creates and returns a new instance of an apis.Builder.
func New() apis.Builder {
	return &builder{}
}

// builder is an empty struct to be used as a receiver for builder methods.
type builder struct{}

// streamConstructor builds the stream handle of one Kind.
type streamConstructor func(reactive apis.Reactive, key string, defaults []string) (any, error)

// streams holds exactly one stream constructor per Kind variant.
var streams = [apis.NumKinds]streamConstructor{
	apis.Unsupported: func(apis.Reactive, string, []string) (any, error) { return nil, nil },
	apis.String:      wrap(apis.String, apis.Reactive.WrapString),
	apis.Bool:        wrap(apis.Bool, apis.Reactive.WrapBool),
	apis.Int:         wrap(apis.Int, apis.Reactive.WrapInt),
	apis.Float:       wrap(apis.Float, apis.Reactive.WrapFloat),
	apis.Long:        wrap(apis.Long, apis.Reactive.WrapLong),
}

// wrap parses the default for kind and hands it to the typed constructor.
func wrap[T any](kind apis.Kind, fn func(apis.Reactive, string, T) any) streamConstructor {
	return func(reactive apis.Reactive, key string, defaults []string) (any, error) {
		def, err := strategy.ParseDefault(kind, defaults)
		if err != nil {
			return nil, err
		}
		return fn(reactive, key, def.(T)), nil
	}
}

// BuildResolver builds the stream, value, void classifier chain.
func (b *builder) BuildResolver(cfg apis.Config) apis.Resolver {
	return resolver.Default(cfg)
}

// BuildRegistry builds an empty registry. Entries of prev are not carried
// over because their bindings depend on the configuration being replaced.
func (b *builder) BuildRegistry(cfg apis.Config, factory func(apis.Declaration) apis.Accessor, prev apis.Registry) apis.Registry {
	if prev != nil {
		cfg.Log().Debug("registry rebuilt", zap.Int("dropped", prev.Count()))
	}
	return registry.New(factory)
}

// BuildStrategy selects the value strategy for kind.
func (b *builder) BuildStrategy(kind apis.Kind, store apis.Store, key string, defaults []string) (apis.Strategy, error) {
	return strategy.New(kind, store, key, defaults)
}

// BuildStream builds the stream handle for kind. It returns nil for
// Unsupported kinds and when reactive is nil.
func (b *builder) BuildStream(kind apis.Kind, reactive apis.Reactive, key string, defaults []string) (any, error) {
	if reactive == nil || !kind.Valid() || streams[kind] == nil {
		return nil, nil
	}
	return streams[kind](reactive, key, defaults)
}

// BuildReactive returns the reactive capability when cfg enables it and
// store publishes changes.
func (b *builder) BuildReactive(cfg apis.Config, store apis.Store) apis.Reactive {
	if !cfg.Reactive || store == nil {
		return nil
	}
	obs, ok := store.(apis.Observable)
	if !ok {
		return nil
	}
	return rx.New(obs)
}
