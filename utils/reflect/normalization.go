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

package reflect

import (
	"errors"
	"reflect"
	"strings"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/config"
)

var (
	// ErrReflectNilType is returned when a nil reflect.Type is provided.
	ErrReflectNilType = errors.New("reflect: nil reflect.Type provided")
	// ErrReflectTypeNotNamed indicates that the provided type (after unwrapping
	// pointers) is not a named type (e.g., anonymous struct, func, slice).
	ErrReflectTypeNotNamed = errors.New("reflect: type is not named")
)

// Normalize unwraps pointers according to cfg.MaxUnwrap and returns the
// nearest named type, or an error if none is found within the limit.
//
// If MaxUnwrap <= 0, DefaultMaxUnwrap is used.
func Normalize(t reflect.Type, cfg apis.Config) (reflect.Type, error) {
	if t == nil {
		return nil, ErrReflectNilType
	}
	maxUnwrap := cfg.MaxUnwrap
	if maxUnwrap <= 0 {
		maxUnwrap = config.DefaultMaxUnwrap
	}

	for i := 0; i < maxUnwrap; i++ {
		if t.Kind() != reflect.Pointer {
			break
		}
		t = t.Elem()
	}

	if t.Kind() == reflect.Pointer || t.Name() == "" {
		return nil, ErrReflectTypeNotNamed
	}
	return t, nil
}

// Origin returns the package-qualified name of t's generic origin, e.g.
// "dirpx.dev/prefx/rx.Preference" for *rx.Preference[int]. Instantiation
// arguments are stripped. It returns "" for unnamed or builtin types.
func Origin(t reflect.Type, cfg apis.Config) string {
	base, err := Normalize(t, cfg)
	if err != nil || base.PkgPath() == "" {
		return ""
	}
	return base.PkgPath() + "." + StripTypeParams(base.Name())
}

// OriginOf is Origin for the dynamic type of v.
func OriginOf(v any, cfg apis.Config) string {
	if v == nil {
		return ""
	}
	return Origin(reflect.TypeOf(v), cfg)
}

// StripTypeParams removes a generic instantiation suffix: "T[int,string]" -> "T".
func StripTypeParams(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}

// KindOf maps a Go type onto its semantic Kind. Named types map through
// their underlying kind.
func KindOf(t reflect.Type) apis.Kind {
	if t == nil {
		return apis.Unsupported
	}
	switch t.Kind() {
	case reflect.String:
		return apis.String
	case reflect.Bool:
		return apis.Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return apis.Int
	case reflect.Int64:
		return apis.Long
	case reflect.Float32, reflect.Float64:
		return apis.Float
	default:
		return apis.Unsupported
	}
}

// Fits reports whether v converts to t without leaving t's range, for
// example 300 does not fit int8. Non-numeric values only need to be
// convertible.
func Fits(v any, t reflect.Type) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || t == nil {
		return true
	}
	if !rv.CanConvert(t) {
		return false
	}
	target := reflect.Zero(t)
	switch {
	case rv.CanInt() && target.CanInt():
		return !target.OverflowInt(rv.Int())
	case rv.CanFloat() && target.CanFloat():
		return !target.OverflowFloat(rv.Float())
	default:
		return true
	}
}

// Carried returns the value type carried by a generic handle type: the
// first result of its Get method. ok is false when t has no such method.
func Carried(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.MethodByName("Get")
	if !ok || m.Type.NumOut() == 0 {
		return nil, false
	}
	return m.Type.Out(0), true
}
