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

// Package prefx provides typed preference accessors over a key-value store.
//
// An accessor is a declared method shape (a getter, a setter or a stream
// getter) plus annotations naming its key, its defaults and whether writes
// commit immediately. prefx turns each declaration into a typed view of one
// store key the first time it is used.
//
// # Design
//
// Every Prefs instance holds a read-mostly snapshot with four components:
//
//   - Config: the key prefix, whether streams are enabled, the pointer
//     unwrap limit and the logger.
//
//   - Resolver: classifies a declaration as Void (setter), Value (getter)
//     or Stream (getter returning *rx.Preference[T]) and maps its Go type
//     onto a Kind: String, Bool, Int, Float, Long or Unsupported.
//
//   - Registry: caches one accessor per declared method. Accessors resolve
//     once, on first use, and never change afterwards.
//
//   - Builder: constructs the resolver and registry, selects the value
//     strategy for a Kind and builds stream handles.
//
// Readers load the snapshot atomically. SetConfig, SetBuilder and
// SetResolver build a new snapshot under a mutex and publish it.
//
// # Writes
//
// Accessors annotated with commit write through the store and return its
// error. Other writes are deferred: the store records them, makes them
// visible to reads at once and persists them from a background flusher.
//
// # Binding structs
//
// Bind fills the func fields of a struct:
//
//	type Settings struct {
//		Timeout      func() int                 `default:"30"`
//		SetTimeout   func(int)                  `prefx:"timeout" commit:"true"`
//		WatchTimeout func() *rx.Preference[int] `prefx:"timeout" default:"30"`
//	}
//
//	s := store.NewMemory()
//	defer s.Close()
//
//	var settings Settings
//	if err := prefx.New(s).Bind(&settings); err != nil {
//		return err
//	}
//	settings.SetTimeout(45)
//	for v := range settings.WatchTimeout().Observe(ctx) {
//		fmt.Println(v)
//	}
//
// # Stores
//
// store.Store wraps a Backend with write-behind and change notifications.
// Backends live in store/memory, store/yamlfile, store/redisstore and
// store/sqlstore (SQLite and PostgreSQL).
package prefx
