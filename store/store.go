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

package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dirpx.dev/prefx/apis"
)

// ErrClosed is returned by writes on a closed Store.
var ErrClosed = errors.New("store: closed")

// Backend persists raw values. Backends are only called by a Store, which
// serializes writes; reads may run concurrently with writes.
type Backend interface {
	// Load returns the value stored under key.
	Load(ctx context.Context, key string) (value any, ok bool, err error)
	// Save durably writes value under key.
	Save(ctx context.Context, key string, value any) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Watcher is implemented by backends that observe out-of-band changes
// (for example, another process editing a file). The Store registers fn
// once, at construction.
type Watcher interface {
	OnChange(fn func(key string))
}

// Option configures a Store.
type Option func(*options)

type options struct {
	flushDelay time.Duration
	logger     *zap.Logger
}

// WithFlushDelay delays deferred writes by d so bursts coalesce into one
// flush. Zero flushes as soon as the flusher wakes up.
func WithFlushDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.flushDelay = d
		}
	}
}

// WithLogger sets the logger used for deferred write failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// pendingWrite is a deferred write not yet saved by the backend.
type pendingWrite struct {
	value any
	seq   uint64
}

// Store is a write-behind apis.Observable over a Backend.
//
// Put records the value as pending and returns; a single flusher goroutine
// saves pending values. Lookups see pending values first, so deferred
// writes are immediately readable. Commit and Remove write through under
// the same lock as the flusher, so a stale pending value can never land
// after a newer committed one.
type Store struct {
	backend Backend
	log     *zap.Logger
	delay   time.Duration

	// mu guards pending and seq.
	mu      sync.RWMutex
	pending map[string]pendingWrite
	seq     uint64

	// writeMu serializes backend writes.
	writeMu sync.Mutex

	// subMu guards subs; sends and closes happen under it.
	subMu sync.Mutex
	subs  map[string]map[uuid.UUID]chan apis.Change

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Ensure Store implements apis.Observable.
var _ apis.Observable = (*Store)(nil)

// New starts a Store over backend. Call Close to stop the flusher and
// persist pending writes.
func New(backend Backend, opts ...Option) *Store {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		backend: backend,
		log:     o.logger.Named("store"),
		delay:   o.flushDelay,
		pending: make(map[string]pendingWrite),
		subs:    make(map[string]map[uuid.UUID]chan apis.Change),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if w, ok := backend.(Watcher); ok {
		w.OnChange(func(key string) {
			s.notify(apis.Change{Key: key})
		})
	}
	go s.run()
	return s
}

// Lookup implements apis.Store.
func (s *Store) Lookup(ctx context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	p, ok := s.pending[key]
	s.mu.RUnlock()
	if ok {
		return p.value, true, nil
	}
	return s.backend.Load(ctx, key)
}

// Put implements apis.Store. Writes after Close are dropped and logged.
func (s *Store) Put(key string, value any) {
	s.mu.Lock()
	// closed is set under mu, so a write recorded here is always seen by
	// the final flush in Close.
	if s.closed.Load() {
		s.mu.Unlock()
		s.log.Warn("deferred write after close dropped", zap.String("key", key))
		return
	}
	s.seq++
	s.pending[key] = pendingWrite{value: value, seq: s.seq}
	s.mu.Unlock()

	s.notify(apis.Change{Key: key})
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Commit implements apis.Store. The backend's error is returned unchanged.
func (s *Store) Commit(ctx context.Context, key string, value any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.writeMu.Lock()
	mark := s.mark()
	err := s.backend.Save(ctx, key, value)
	if err == nil {
		s.settle(key, mark)
	}
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.notify(apis.Change{Key: key})
	return nil
}

// Remove implements apis.Store.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.writeMu.Lock()
	mark := s.mark()
	err := s.backend.Delete(ctx, key)
	if err == nil {
		s.settle(key, mark)
	}
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.notify(apis.Change{Key: key, Removed: true})
	return nil
}

// Flush saves every pending write. Failed writes stay pending and are
// retried on the next flush.
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	batch := maps.Clone(s.pending)
	s.mu.RUnlock()

	var errs []error
	for key, p := range batch {
		if err := s.backend.Save(ctx, key, p.value); err != nil {
			errs = append(errs, fmt.Errorf("store: flush %q: %w", key, err))
			continue
		}
		s.settle(key, p.seq)
	}
	return errors.Join(errs...)
}

// Pending returns the number of deferred writes not yet flushed.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Subscribe implements apis.Observable.
func (s *Store) Subscribe(key string) (<-chan apis.Change, func()) {
	ch := make(chan apis.Change, 1)
	id := uuid.New()

	s.subMu.Lock()
	if s.closed.Load() {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if s.subs[key] == nil {
		s.subs[key] = make(map[uuid.UUID]chan apis.Change)
	}
	s.subs[key][id] = ch
	s.subMu.Unlock()

	cancel := sync.OnceFunc(func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		m := s.subs[key]
		if c, ok := m[id]; ok {
			delete(m, id)
			close(c)
		}
		if len(m) == 0 {
			delete(s.subs, key)
		}
	})
	return ch, cancel
}

// Close stops the flusher, flushes pending writes, ends subscriptions and
// closes the backend. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		s.mu.Unlock()
		close(s.stop)
		<-s.done

		flushErr := s.Flush(context.Background())

		s.subMu.Lock()
		for key, m := range s.subs {
			for id, c := range m {
				close(c)
				delete(m, id)
			}
			delete(s.subs, key)
		}
		s.subMu.Unlock()

		s.closeErr = errors.Join(flushErr, s.backend.Close())
	})
	return s.closeErr
}

// run is the flusher loop.
func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.kick:
		}
		if s.delay > 0 {
			t := time.NewTimer(s.delay)
			select {
			case <-t.C:
			case <-s.stop:
				t.Stop()
				return
			}
		}
		if err := s.Flush(context.Background()); err != nil {
			s.log.Error("deferred write failed", zap.Error(err))
		}
	}
}

// mark returns the current write sequence.
func (s *Store) mark() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// settle drops the pending write for key if it is not newer than seq.
func (s *Store) settle(key string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok && p.seq <= seq {
		delete(s.pending, key)
	}
}

// notify delivers c to every subscriber of c.Key, replacing an undelivered
// older change rather than blocking.
func (s *Store) notify(c apis.Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[c.Key] {
		select {
		case ch <- c:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
		}
	}
}
