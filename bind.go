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
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"dirpx.dev/prefx/apis"
	uref "dirpx.dev/prefx/utils/reflect"
)

// Struct tags recognized by Bind.
const (
	// TagKey names the store key. "-" skips the field.
	TagKey = "prefx"
	// TagDefault holds a single default value.
	TagDefault = "default"
	// TagDefaults holds comma-separated default values.
	TagDefaults = "defaults"
	// TagCommit selects immediate writes when true.
	TagCommit = "commit"
)

// ErrBindTarget is returned when Bind is not given a pointer to a struct.
var ErrBindTarget = errors.New("prefx: bind target must be a non-nil pointer to a struct")

var errorType = reflect.TypeFor[error]()

// Bind fills the exported func fields of the struct pointed to by target
// with accessors. Each field is declared with its field name as the method
// name and its struct tags as annotations:
//
//	type Settings struct {
//		Timeout      func() int                  `default:"30"`
//		SetTimeout   func(int)                   `prefx:"timeout" commit:"true"`
//		WatchTimeout func() *rx.Preference[int]  `prefx:"timeout" default:"30"`
//	}
//
// Accessors are resolved before Bind returns, so signature and default
// errors surface here. Fields that fail are left untouched; the errors of
// all fields are joined.
//
// Bound funcs look their accessor up on every call, so they follow
// SetConfig and SetBuilder. Getters without an error result log failures
// and return the default, or the zero value when the stored number does not
// fit the declared type. Setters log failed writes.
func (p *Prefs) Bind(target any) error {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrBindTarget, target)
	}
	sv := v.Elem()
	st := sv.Type()

	var errs []error
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Func || f.Tag.Get(TagKey) == "-" {
			continue
		}

		ann, err := annotations(f.Tag)
		if err != nil {
			errs = append(errs, apis.NewMethodError(apis.MethodID{Owner: st, Name: f.Name}, err))
			continue
		}
		decl := apis.Declaration{Owner: st, Name: f.Name, Func: f.Type, Annotations: ann}

		a, err := p.Accessor(decl)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b, err := a.Binding()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sv.Field(i).Set(reflect.MakeFunc(f.Type, p.dispatcher(decl, b.Response)))
	}
	return errors.Join(errs...)
}

// annotations reads the accessor annotations from a struct tag.
func annotations(tag reflect.StructTag) (apis.Annotations, error) {
	ann := apis.Annotations{Key: tag.Get(TagKey)}
	if list, ok := tag.Lookup(TagDefaults); ok {
		for _, d := range strings.Split(list, ",") {
			ann.Defaults = append(ann.Defaults, strings.TrimSpace(d))
		}
	} else if d, ok := tag.Lookup(TagDefault); ok {
		ann.Defaults = []string{d}
	}
	if c, ok := tag.Lookup(TagCommit); ok {
		commit, err := cast.ToBoolE(c)
		if err != nil {
			return ann, fmt.Errorf("invalid %s tag %q", TagCommit, c)
		}
		ann.Commit = commit
	}
	return ann, nil
}

// dispatcher returns the MakeFunc body for a declaration.
func (p *Prefs) dispatcher(decl apis.Declaration, response apis.ResponseKind) func([]reflect.Value) []reflect.Value {
	ft := decl.Func
	switch response {
	case apis.Void:
		return func(args []reflect.Value) []reflect.Value {
			if err := p.set(decl, args[0]); err != nil {
				p.Config().Log().Error("preference write failed",
					zap.Stringer("method", decl.ID()), zap.Error(err))
			}
			return nil
		}
	case apis.Stream:
		return func([]reflect.Value) []reflect.Value {
			h, err := p.Stream(decl)
			out, _ := results(ft, h, err)
			return out
		}
	default:
		return func([]reflect.Value) []reflect.Value {
			v, err := p.Get(context.Background(), decl)
			out, err := results(ft, v, err)
			if err != nil && ft.NumOut() == 1 {
				p.Config().Log().Warn("preference read failed",
					zap.Stringer("method", decl.ID()), zap.Error(err))
			}
			return out
		}
	}
}

// set converts the declared argument to the canonical type of its kind
// and applies it.
func (p *Prefs) set(decl apis.Declaration, arg reflect.Value) error {
	a, err := p.Accessor(decl)
	if err != nil {
		return err
	}
	b, err := a.Binding()
	if err != nil {
		return err
	}
	value := arg.Interface()
	if ct := b.Kind.Type(); ct != nil && arg.Type() != ct && arg.CanConvert(ct) {
		value = arg.Convert(ct).Interface()
	}
	return a.Apply(context.Background(), value)
}

// results builds the return values of a getter of type ft. A value that
// does not fit the declared result type is reported as ErrStoredValue and
// replaced by the zero value.
func results(ft reflect.Type, v any, err error) ([]reflect.Value, error) {
	rv, cerr := value(ft.Out(0), v)
	if err == nil {
		err = cerr
	}
	out := []reflect.Value{rv}
	if ft.NumOut() == 2 {
		ev := reflect.Zero(errorType)
		if err != nil {
			ev = reflect.ValueOf(&err).Elem()
		}
		out = append(out, ev)
	}
	return out, err
}

// value converts v to t. Numbers outside t's range are rejected rather than
// truncated.
func value(t reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv, nil
	}
	if !rv.CanConvert(t) {
		return reflect.Zero(t), nil
	}
	if !uref.Fits(v, t) {
		return reflect.Zero(t), fmt.Errorf("%w: %v overflows %s", apis.ErrStoredValue, v, t)
	}
	return rv.Convert(t), nil
}
