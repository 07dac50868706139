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
)

// MethodID identifies a declared accessor method. It is comparable and is
// the key under which a Registry caches accessors.
type MethodID struct {
	// Owner is the declaring type. It may be nil for free-standing
	// declarations (for example, ones built by a command line tool).
	Owner reflect.Type
	// Name is the method name as declared.
	Name string
}

// String renders the id as "Owner.Name".
func (id MethodID) String() string {
	return OwnerName(id.Owner) + "." + id.Name
}

// OwnerName returns the short name of a declaring type, "?" for nil.
func OwnerName(t reflect.Type) string {
	if t == nil {
		return "?"
	}
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// Annotations are the declarative facts attached to an accessor.
// Their textual encoding belongs to the declaration layer.
type Annotations struct {
	// Key is the store key. Empty means "derive from the method name".
	Key string
	// Defaults holds default values in textual form. Scalar kinds only use
	// the first entry.
	Defaults []string
	// Commit selects immediate, blocking writes. When false, writes are
	// deferred and batched by the store.
	Commit bool
}

// Declaration is the full, immutable description of one accessor method.
type Declaration struct {
	// Owner is the declaring type (may be nil).
	Owner reflect.Type
	// Name is the declared method name.
	Name string
	// Func is the accessor signature. It must be a func type.
	Func reflect.Type
	// Annotations carries key, defaults and the commit flag.
	Annotations Annotations
}

// ID returns the identity of d.
func (d Declaration) ID() MethodID {
	return MethodID{Owner: d.Owner, Name: d.Name}
}

// ResponseKind classifies how an accessor responds to a call.
type ResponseKind int

const (
	// Void is a pure setter: one parameter, no result.
	Void ResponseKind = iota
	// Stream is a getter returning a live value stream.
	Stream
	// Value is a plain synchronous getter.
	Value
)

func (r ResponseKind) String() string {
	switch r {
	case Void:
		return "void"
	case Stream:
		return "stream"
	case Value:
		return "value"
	default:
		return fmt.Sprintf("ResponseKind(%d)", int(r))
	}
}

// Signature is what a Resolver infers from a Declaration.
type Signature struct {
	// Response is the response classification.
	Response ResponseKind
	// Kind is the semantic value type.
	Kind Kind
	// Value is the declared Go type of the value (the result for getters,
	// the parameter for setters, the carried type for streams).
	Value reflect.Type
}

// State is the resolution lifecycle of an Accessor.
type State int32

const (
	// Unresolved accessors have not started resolution.
	Unresolved State = iota
	// Resolving accessors are running their one-time resolution.
	Resolving
	// Resolved accessors are immutable from now on.
	Resolved
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Binding is the resolved, immutable metadata of an accessor.
type Binding struct {
	// Key is the final store key, prefix included.
	Key string
	// Defaults are the declared defaults, unparsed.
	Defaults []string
	// Commit selects immediate writes.
	Commit bool
	// Response is the response classification.
	Response ResponseKind
	// Kind is the semantic value type.
	Kind Kind
	// Value is the declared Go type of the value.
	Value reflect.Type
	// Strategy is the value strategy bound to Key. Never nil.
	Strategy Strategy
	// Stream is the reactive handle for Stream responses. It is nil for
	// other responses and for unsupported carried types.
	Stream any
}
