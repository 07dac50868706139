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
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature reports an accessor signature that violates the
	// accessor contract (too many parameters, getter with a parameter, ...).
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnparseableDefault reports a default that cannot be parsed into the
	// accessor's semantic type.
	ErrUnparseableDefault = errors.New("unparseable default")
	// ErrStoredValue reports a stored value that cannot be coerced into the
	// accessor's semantic type.
	ErrStoredValue = errors.New("stored value has wrong type")
	// ErrValueType reports a written value that cannot be converted into the
	// accessor's semantic type.
	ErrValueType = errors.New("value has wrong type")
	// ErrNotReadable is returned by Get on a Void accessor.
	ErrNotReadable = errors.New("accessor is not readable")
	// ErrNotStream is returned by Stream on a non-Stream accessor.
	ErrNotStream = errors.New("accessor is not a stream")
)

// MethodError attributes an error to a declared method.
type MethodError struct {
	// Owner is the short name of the declaring type.
	Owner string
	// Method is the declared method name.
	Method string
	// Err is the underlying error.
	Err error
}

// NewMethodError wraps err for the method identified by id.
func NewMethodError(id MethodID, err error) *MethodError {
	return &MethodError{Owner: OwnerName(id.Owner), Method: id.Name, Err: err}
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("prefx: %s.%s: %v", e.Owner, e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *MethodError) Unwrap() error { return e.Err }
