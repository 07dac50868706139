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

package resolver

import (
	"errors"
	"fmt"
	"reflect"

	"dirpx.dev/prefx/apis"
	uref "dirpx.dev/prefx/utils/reflect"
)

// Classifier recognizes one response shape. Classifiers only see func types
// that already passed signature validation.
type Classifier interface {
	// Classify returns the signature of fn and true when fn has the shape
	// this classifier handles.
	Classify(fn reflect.Type, rx apis.Reactive) (apis.Signature, bool)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(fn reflect.Type, rx apis.Reactive) (apis.Signature, bool)

// Classify calls f.
func (f ClassifierFunc) Classify(fn reflect.Type, rx apis.Reactive) (apis.Signature, bool) {
	return f(fn, rx)
}

var errorType = reflect.TypeFor[error]()

// New constructs an apis.Resolver that validates a declaration and then
// tries the given classifiers in order. Nil classifiers are ignored.
func New(classifiers ...Classifier) apis.Resolver {
	out := make([]Classifier, 0, len(classifiers))
	for _, c := range classifiers {
		if c != nil {
			out = append(out, c)
		}
	}
	return chain{classifiers: out}
}

// Default returns the resolver used by Prefs: stream, value, then void.
func Default(cfg apis.Config) apis.Resolver {
	return New(StreamClassifier(cfg), ValueClassifier(), VoidClassifier())
}

// chain is an immutable, order-preserving resolver over a set of classifiers.
type chain struct {
	classifiers []Classifier
}

// Resolve validates decl.Func and returns the first classification.
func (r chain) Resolve(decl apis.Declaration, rx apis.Reactive) (apis.Signature, error) {
	fn := decl.Func
	if err := Validate(fn); err != nil {
		return apis.Signature{}, apis.NewMethodError(decl.ID(), err)
	}
	for _, c := range r.classifiers {
		if sig, ok := c.Classify(fn, rx); ok {
			return sig, nil
		}
	}
	return apis.Signature{}, apis.NewMethodError(decl.ID(),
		fmt.Errorf("%w: unrecognized accessor shape %s", apis.ErrInvalidSignature, fn))
}

// Validate checks the accessor contract: at most one parameter, at most one
// value result optionally followed by an error, and never both a parameter
// and a result.
func Validate(fn reflect.Type) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{apis.ErrInvalidSignature}, args...)...)
	}
	switch {
	case fn == nil:
		return invalid("nil func type")
	case fn.Kind() != reflect.Func:
		return invalid("%s is not a func", fn)
	case fn.IsVariadic():
		return invalid("variadic accessor")
	case fn.NumIn() > 1:
		return invalid("more than one parameter")
	case fn.NumOut() > 2:
		return invalid("more than two results")
	case fn.NumOut() == 2 && fn.Out(1) != errorType:
		return invalid("second result must be error, got %s", fn.Out(1))
	case fn.NumOut() > 0 && fn.NumIn() > 0:
		return invalid("getter should not have parameter")
	case fn.NumOut() == 0 && fn.NumIn() == 0:
		return invalid("accessor has neither parameter nor result")
	}
	return nil
}

// IsInvalidSignature reports whether err is a signature violation.
func IsInvalidSignature(err error) bool {
	return errors.Is(err, apis.ErrInvalidSignature)
}

// StreamClassifier recognizes getters returning the reactive handle type.
// The comparison uses the generic origin, so every instantiation of the
// handle matches. Only a carried type equal to its kind's canonical type
// gets a stream; other carried types degrade to Unsupported.
func StreamClassifier(cfg apis.Config) Classifier {
	return ClassifierFunc(func(fn reflect.Type, rx apis.Reactive) (apis.Signature, bool) {
		if rx == nil || fn.NumOut() == 0 {
			return apis.Signature{}, false
		}
		ret := fn.Out(0)
		origin := uref.Origin(ret, cfg)
		if origin == "" || origin != rx.Origin() {
			return apis.Signature{}, false
		}
		carried, ok := uref.Carried(ret)
		if !ok {
			return apis.Signature{Response: apis.Stream, Kind: apis.Unsupported}, true
		}
		kind := uref.KindOf(carried)
		if kind.Type() != carried {
			kind = apis.Unsupported
		}
		return apis.Signature{Response: apis.Stream, Kind: kind, Value: carried}, true
	})
}

// ValueClassifier recognizes plain getters.
func ValueClassifier() Classifier {
	return ClassifierFunc(func(fn reflect.Type, _ apis.Reactive) (apis.Signature, bool) {
		if fn.NumOut() == 0 {
			return apis.Signature{}, false
		}
		ret := fn.Out(0)
		return apis.Signature{Response: apis.Value, Kind: uref.KindOf(ret), Value: ret}, true
	})
}

// VoidClassifier recognizes setters.
func VoidClassifier() Classifier {
	return ClassifierFunc(func(fn reflect.Type, _ apis.Reactive) (apis.Signature, bool) {
		if fn.NumOut() != 0 || fn.NumIn() != 1 {
			return apis.Signature{}, false
		}
		param := fn.In(0)
		return apis.Signature{Response: apis.Void, Kind: uref.KindOf(param), Value: param}, true
	})
}
