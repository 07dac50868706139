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

package registry_test

import (
	"reflect"
	"runtime"
	"sync"
	"testing"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/registry"
)

// A few named types to avoid anonymous/unnamed pitfalls.
type T0 struct{}
type T1 struct{}
type T2 struct{}
type T3 struct{}
type T4 struct{}

// TestConcurrentGetOrCreate verifies that racing first calls converge on one
// accessor per identity and that Lookup/Entries/Count stay consistent.
func TestConcurrentGetOrCreate(t *testing.T) {
	factory, calls := countingFactory()
	reg := registry.New(factory)

	owners := []reflect.Type{
		reflect.TypeOf(T0{}), reflect.TypeOf(T1{}), reflect.TypeOf(T2{}),
		reflect.TypeOf(T3{}), reflect.TypeOf(T4{}),
	}
	names := []string{"GetTimeout", "SetTimeout"}

	var decls []apis.Declaration
	for _, o := range owners {
		for _, n := range names {
			decls = append(decls, declFor(o, n))
		}
	}

	workers := runtime.GOMAXPROCS(0) * 4
	seen := make([][]apis.Accessor, workers)

	start := make(chan struct{})
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			<-start
			got := make([]apis.Accessor, len(decls))
			for i := 0; i < 2000; i++ {
				j := (i + id) % len(decls)
				a, err := reg.GetOrCreate(decls[j])
				if err != nil {
					t.Errorf("GetOrCreate %v: %v", decls[j].ID(), err)
					return
				}
				if got[j] != nil && got[j] != a {
					t.Errorf("identity %v changed instance", decls[j].ID())
					return
				}
				got[j] = a
				_, _ = reg.Lookup(decls[j].ID())
				_ = reg.Count()
				_ = reg.Entries()
			}
			seen[id] = got
		}(w)
	}
	close(start)
	wg.Wait()

	if reg.Count() != len(decls) {
		t.Fatalf("count mismatch: got %d want %d", reg.Count(), len(decls))
	}
	if int(calls.Load()) != len(decls) {
		t.Fatalf("factory calls = %d, want %d", calls.Load(), len(decls))
	}
	for w := 1; w < workers; w++ {
		for j := range decls {
			if seen[w] != nil && seen[0] != nil && seen[w][j] != nil && seen[0][j] != nil && seen[w][j] != seen[0][j] {
				t.Fatalf("workers observed distinct accessors for %v", decls[j].ID())
			}
		}
	}
}

// TestResetSnapshot ensures Reset is safe and Entries returns a stable snapshot.
func TestResetSnapshot(t *testing.T) {
	factory, _ := countingFactory()
	reg := registry.New(factory)

	_, _ = reg.GetOrCreate(declFor(reflect.TypeOf(T0{}), "GetA"))
	first, _ := reg.GetOrCreate(declFor(reflect.TypeOf(T1{}), "GetB"))

	snap := reg.Entries() // snapshot copy expected
	reg.Reset()

	// After Reset, Count() should be 0, but previous snapshot must still be usable.
	if reg.Count() != 0 {
		t.Fatalf("count after reset: got %d want 0", reg.Count())
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot length changed unexpectedly: %d", len(snap))
	}
	if _, ok := reg.Lookup(first.ID()); ok {
		t.Fatalf("Lookup after reset found a dropped accessor")
	}

	// a fresh instance is created after reset
	again, _ := reg.GetOrCreate(declFor(reflect.TypeOf(T1{}), "GetB"))
	if again == first {
		t.Fatalf("Reset did not drop the cached accessor")
	}
}

// This ensures the interface is satisfied; not a test but a compile-time check.
var _ apis.Registry = registry.New(nil)
