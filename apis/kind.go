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

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the semantic value type of an accessor.
//
// # Overview
//
// Kind is a closed set. Every accessor resolves to exactly one Kind, and
// every component that dispatches on Kind (strategies, stream handles)
// provides one handler per variant, so adding a variant without a handler
// is caught by the table-totality tests rather than silently falling
// through.
//
// Go types map onto Kind by reflect.Kind, so named types such as
// time.Duration resolve through their underlying kind:
//
//   - string                   -> String
//   - bool                     -> Bool
//   - int, int8, int16, int32  -> Int
//   - int64                    -> Long
//   - float32, float64         -> Float
//   - anything else            -> Unsupported
type Kind int

const (
	// Unsupported marks a type with no dedicated strategy. Accessors of this
	// kind are declared but inert.
	Unsupported Kind = iota
	// String is a text value.
	String
	// Bool is a boolean value.
	Bool
	// Int is a machine-sized integer value.
	Int
	// Float is a floating point value.
	Float
	// Long is a 64-bit integer value.
	Long

	// kindCount is the number of Kind variants. Dispatch tables are sized by it.
	kindCount
)

// NumKinds is the number of Kind variants, Unsupported included.
// Dispatch tables indexed by Kind are declared as [NumKinds]T.
const NumKinds = int(kindCount)

// Kinds returns every Kind variant in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Unsupported; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// canonical holds the Go representation used for values of each Kind.
var canonical = [kindCount]reflect.Type{
	Unsupported: nil,
	String:      reflect.TypeFor[string](),
	Bool:        reflect.TypeFor[bool](),
	Int:         reflect.TypeFor[int](),
	Float:       reflect.TypeFor[float64](),
	Long:        reflect.TypeFor[int64](),
}

// Type returns the canonical Go type carried by values of k.
// It returns nil for Unsupported and out-of-range values.
func (k Kind) Type() reflect.Type {
	if !k.Valid() {
		return nil
	}
	return canonical[k]
}

// Valid reports whether k is one of the declared variants.
func (k Kind) Valid() bool {
	return k >= Unsupported && k < kindCount
}

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses the textual form produced by Kind.String.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Unsupported, fmt.Errorf("prefx: empty kind")
	}

	switch strings.ToLower(trimmed) {
	case "string":
		return String, nil
	case "bool", "boolean":
		return Bool, nil
	case "int", "integer":
		return Int, nil
	case "float":
		return Float, nil
	case "long":
		return Long, nil
	case "unsupported":
		return Unsupported, nil
	default:
		return Unsupported, fmt.Errorf("prefx: unknown kind %q", s)
	}
}
