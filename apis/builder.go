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

// Builder composes the components behind an accessor from a Config.
type Builder interface {
	// BuildResolver constructs the Resolver for cfg.
	BuildResolver(cfg Config) Resolver
	// BuildRegistry constructs a Registry whose accessors are made by
	// factory. prev is the registry being replaced, if any.
	BuildRegistry(cfg Config, factory func(Declaration) Accessor, prev Registry) Registry
	// BuildStrategy selects and constructs the strategy for kind.
	BuildStrategy(kind Kind, store Store, key string, defaults []string) (Strategy, error)
	// BuildStream constructs the stream handle for kind, or returns nil when
	// kind has no stream representation.
	BuildStream(kind Kind, rx Reactive, key string, defaults []string) (any, error)
	// BuildReactive probes store for the reactive capability. It returns nil
	// when the capability is disabled in cfg or unsupported by store.
	BuildReactive(cfg Config, store Store) Reactive
}
