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

import "context"

// Store is the key-value store behind every accessor.
//
// Implementations must be safe for concurrent use. Values are exchanged in
// their canonical Go form (see Kind.Type); backends that persist text may
// return strings from Lookup, which strategies coerce on read.
type Store interface {
	// Lookup returns the raw value stored under key. ok is false when the
	// key is absent.
	Lookup(ctx context.Context, key string) (value any, ok bool, err error)
	// Put writes value under key with deferred durability. It returns
	// immediately; a later Lookup observes the value.
	Put(key string, value any)
	// Commit writes value under key and blocks until the write is durable.
	Commit(ctx context.Context, key string, value any) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Change notifies that the value under Key changed.
type Change struct {
	// Key is the changed key.
	Key string
	// Removed is true when the key was deleted.
	Removed bool
}

// Observable is a Store that publishes per-key change notifications.
// The reactive extension is only available on top of an Observable.
type Observable interface {
	Store
	// Subscribe returns a channel of changes for key and a cancel func that
	// releases the subscription and closes the channel. Delivery coalesces:
	// a slow receiver sees at least the latest change.
	Subscribe(key string) (<-chan Change, func())
}
