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

package commands

import (
	"context"
	"fmt"
	"reflect"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/rx"
)

// streamTypes maps each streamable kind to its handle type.
var streamTypes = [apis.NumKinds]reflect.Type{
	apis.String: reflect.TypeFor[*rx.Preference[string]](),
	apis.Bool:   reflect.TypeFor[*rx.Preference[bool]](),
	apis.Int:    reflect.TypeFor[*rx.Preference[int]](),
	apis.Float:  reflect.TypeFor[*rx.Preference[float64]](),
	apis.Long:   reflect.TypeFor[*rx.Preference[int64]](),
}

// parseKind parses a --type flag. Unsupported is rejected since the
// command line always reads and writes concrete values.
func parseKind(s string) (apis.Kind, error) {
	kind, err := apis.ParseKind(s)
	if err != nil {
		return apis.Unsupported, err
	}
	if kind == apis.Unsupported {
		return apis.Unsupported, fmt.Errorf("type %q cannot be read or written", s)
	}
	return kind, nil
}

// getter declares a Value accessor for key.
func getter(key string, kind apis.Kind, defaults []string) apis.Declaration {
	return apis.Declaration{
		Name:        "get " + key,
		Func:        reflect.FuncOf(nil, []reflect.Type{kind.Type()}, false),
		Annotations: apis.Annotations{Key: key, Defaults: defaults},
	}
}

// setter declares a Void accessor for key.
func setter(key string, kind apis.Kind, commit bool) apis.Declaration {
	return apis.Declaration{
		Name:        "set " + key,
		Func:        reflect.FuncOf([]reflect.Type{kind.Type()}, nil, false),
		Annotations: apis.Annotations{Key: key, Commit: commit},
	}
}

// watcher declares a Stream accessor for key.
func watcher(key string, kind apis.Kind, defaults []string) apis.Declaration {
	return apis.Declaration{
		Name:        "watch " + key,
		Func:        reflect.FuncOf(nil, []reflect.Type{streamTypes[kind]}, false),
		Annotations: apis.Annotations{Key: key, Defaults: defaults},
	}
}

// observe forwards every value of handle to emit until ctx ends.
func observe(ctx context.Context, handle any, emit func(any) bool) error {
	switch h := handle.(type) {
	case *rx.Preference[string]:
		return drain(ctx, h.Observe(ctx), emit)
	case *rx.Preference[bool]:
		return drain(ctx, h.Observe(ctx), emit)
	case *rx.Preference[int]:
		return drain(ctx, h.Observe(ctx), emit)
	case *rx.Preference[float64]:
		return drain(ctx, h.Observe(ctx), emit)
	case *rx.Preference[int64]:
		return drain(ctx, h.Observe(ctx), emit)
	default:
		return fmt.Errorf("no stream handle (%T)", handle)
	}
}

func drain[T any](ctx context.Context, ch <-chan T, emit func(any) bool) error {
	for v := range ch {
		if !emit(v) {
			return nil
		}
	}
	return ctx.Err()
}
