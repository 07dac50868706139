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
	"github.com/spf13/cast"

	"dirpx.dev/prefx/apis"
)

// constructor builds the strategy of one Kind.
type constructor func(store apis.Store, key string, defaults []string) (apis.Strategy, error)

// table holds exactly one constructor per Kind variant.
var table = [apis.NumKinds]constructor{
	apis.Unsupported: func(_ apis.Store, key string, _ []string) (apis.Strategy, error) {
		return NewEmpty(key), nil
	},
	apis.String: func(store apis.Store, key string, defaults []string) (apis.Strategy, error) {
		s, err := NewString(store, key, defaults)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	apis.Bool: func(store apis.Store, key string, defaults []string) (apis.Strategy, error) {
		s, err := NewBool(store, key, defaults)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	apis.Int: func(store apis.Store, key string, defaults []string) (apis.Strategy, error) {
		s, err := NewInt(store, key, defaults)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	apis.Float: func(store apis.Store, key string, defaults []string) (apis.Strategy, error) {
		s, err := NewFloat(store, key, defaults)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	apis.Long: func(store apis.Store, key string, defaults []string) (apis.Strategy, error) {
		s, err := NewLong(store, key, defaults)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
}

// New selects the strategy for kind and binds it to (store, key, defaults).
// Out-of-range kinds get the inert strategy.
func New(kind apis.Kind, store apis.Store, key string, defaults []string) (apis.Strategy, error) {
	if !kind.Valid() || table[kind] == nil {
		return NewEmpty(key), nil
	}
	return table[kind](store, key, defaults)
}

// Covers reports whether the dispatch table has a constructor for kind.
func Covers(kind apis.Kind) bool {
	return kind.Valid() && table[kind] != nil
}

// parsers holds one default parser per Kind variant.
var parsers = [apis.NumKinds]func(defaults []string) (any, error){
	apis.Unsupported: func([]string) (any, error) { return nil, nil },
	apis.String:      func(d []string) (any, error) { return parseDefault(apis.String, d, cast.ToStringE) },
	apis.Bool:        func(d []string) (any, error) { return parseDefault(apis.Bool, d, cast.ToBoolE) },
	apis.Int:         func(d []string) (any, error) { return parseDefault(apis.Int, d, cast.ToIntE) },
	apis.Float:       func(d []string) (any, error) { return parseDefault(apis.Float, d, cast.ToFloat64E) },
	apis.Long:        func(d []string) (any, error) { return parseDefault(apis.Long, d, cast.ToInt64E) },
}

// ParseDefault parses the first default into the canonical Go value of kind.
// Unsupported kinds yield nil.
func ParseDefault(kind apis.Kind, defaults []string) (any, error) {
	if !kind.Valid() || parsers[kind] == nil {
		return nil, nil
	}
	return parsers[kind](defaults)
}
