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

// Reactive wraps store keys into live value streams.
//
// Reactive is an optional capability: components receive it explicitly and
// treat nil as "not available".
type Reactive interface {
	// Origin names the generic stream handle type, package-qualified and
	// without instantiation arguments (e.g. "example.com/rx.Preference").
	// A declared result type with the same origin requests a stream.
	Origin() string
	// WrapString returns a stream handle for a string key.
	WrapString(key string, def string) any
	// WrapInt returns a stream handle for an int key.
	WrapInt(key string, def int) any
	// WrapFloat returns a stream handle for a float key.
	WrapFloat(key string, def float64) any
	// WrapLong returns a stream handle for an int64 key.
	WrapLong(key string, def int64) any
	// WrapBool returns a stream handle for a bool key.
	WrapBool(key string, def bool) any
}
