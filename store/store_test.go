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

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dirpx.dev/prefx/apis"
	"dirpx.dev/prefx/store"
	"dirpx.dev/prefx/store/memory"
)

// gatedBackend blocks Save calls until released and can fail them.
type gatedBackend struct {
	*memory.Backend

	mu      sync.Mutex
	gate    chan struct{}
	saveErr error
	saves   []string
	onWatch func(string)
	closed  bool
}

func newGated() *gatedBackend {
	return &gatedBackend{Backend: memory.New()}
}

func (b *gatedBackend) Save(ctx context.Context, key string, value any) error {
	b.mu.Lock()
	gate, err := b.gate, b.saveErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.saves = append(b.saves, key)
	b.mu.Unlock()
	return b.Backend.Save(ctx, key, value)
}

func (b *gatedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *gatedBackend) OnChange(fn func(string)) { b.onWatch = fn }

func (b *gatedBackend) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveErr = err
}

func TestLookup_MissingKey(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()

	v, ok, err := s.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestPut_ReadYourWrites(t *testing.T) {
	b := newGated()
	b.gate = make(chan struct{})
	s := store.New(b)

	s.Put("volume", 45)
	v, ok, err := s.Lookup(context.Background(), "volume")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 45, v)
	assert.Equal(t, 1, s.Pending())

	close(b.gate)
	require.NoError(t, s.Close())
	assert.Equal(t, 45, b.Snapshot()["volume"])
}

func TestPut_FlushedInBackground(t *testing.T) {
	b := memory.New()
	s := store.New(b)
	defer s.Close()

	s.Put("name", "alice")
	require.Eventually(t, func() bool {
		return b.Snapshot()["name"] == "alice" && s.Pending() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPut_FlushDelayCoalesces(t *testing.T) {
	b := newGated()
	s := store.New(b, store.WithFlushDelay(50*time.Millisecond))
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.Put("n", i)
	}
	require.Eventually(t, func() bool { return s.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"n"}, b.saves)
	assert.Equal(t, 9, b.Snapshot()["n"])
}

func TestCommit_PropagatesBackendError(t *testing.T) {
	boom := errors.New("boom")
	b := newGated()
	b.setErr(boom)
	s := store.New(b)
	defer func() {
		b.setErr(nil)
		_ = s.Close()
	}()

	err := s.Commit(context.Background(), "k", "v")
	assert.Same(t, boom, err)

	_, ok, _ := s.Lookup(context.Background(), "k")
	assert.False(t, ok)
}

func TestCommit_NotOverwrittenByStalePendingWrite(t *testing.T) {
	ctx := context.Background()
	b := newGated()
	b.gate = make(chan struct{})
	s := store.New(b)

	s.Put("k", "deferred")

	done := make(chan error, 1)
	go func() { done <- s.Commit(ctx, "k", "committed") }()
	close(b.gate)
	require.NoError(t, <-done)

	require.NoError(t, s.Flush(ctx))
	v, ok, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "committed", v)
	assert.Equal(t, "committed", b.Snapshot()["k"])
	require.NoError(t, s.Close())
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	defer s.Close()

	require.NoError(t, s.Commit(ctx, "k", 1))
	s.Put("k", 2)
	require.NoError(t, s.Remove(ctx, "k"))

	_, ok, err := s.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Pending())

	require.NoError(t, s.Remove(ctx, "never-set"))
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	defer s.Close()

	ch, cancel := s.Subscribe("k")
	defer cancel()
	other, cancelOther := s.Subscribe("other")
	defer cancelOther()

	require.NoError(t, s.Commit(ctx, "k", 1))
	assert.Equal(t, apis.Change{Key: "k"}, <-ch)

	require.NoError(t, s.Remove(ctx, "k"))
	assert.Equal(t, apis.Change{Key: "k", Removed: true}, <-ch)

	select {
	case c := <-other:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestSubscribe_CoalescesForSlowReceivers(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()

	ch, cancel := s.Subscribe("k")
	defer cancel()

	for i := 0; i < 100; i++ {
		s.Put("k", i)
	}
	assert.Equal(t, "k", (<-ch).Key)
	select {
	case <-ch:
		t.Fatal("expected changes to coalesce into one")
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()

	ch, cancel := s.Subscribe("k")
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	s.Put("k", 1)
}

func TestWatcher_ForwardsExternalChanges(t *testing.T) {
	b := newGated()
	s := store.New(b)
	defer s.Close()
	require.NotNil(t, b.onWatch)

	ch, cancel := s.Subscribe("theme")
	defer cancel()

	b.onWatch("theme")
	assert.Equal(t, apis.Change{Key: "theme"}, <-ch)
}

func TestFlush_FailureKeepsWritePendingAndLogs(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	boom := errors.New("disk full")
	b := newGated()
	b.setErr(boom)
	s := store.New(b, store.WithLogger(zap.New(core)))

	s.Put("k", "v")
	require.Eventually(t, func() bool { return logs.Len() > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "deferred write failed", logs.All()[0].Message)
	assert.Equal(t, 1, s.Pending())

	err := s.Flush(context.Background())
	assert.ErrorIs(t, err, boom)

	b.setErr(nil)
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 0, s.Pending())
	require.NoError(t, s.Close())
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	b := newGated()
	s := store.New(b, store.WithFlushDelay(time.Hour))
	ch, _ := s.Subscribe("k")

	s.Put("k", "v")
	<-ch
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, "v", b.Snapshot()["k"])
	assert.True(t, b.closed)

	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, s.Commit(ctx, "k", "w"), store.ErrClosed)
	assert.ErrorIs(t, s.Remove(ctx, "k"), store.ErrClosed)
	s.Put("k", "dropped")
	assert.Equal(t, "v", b.Snapshot()["k"])

	late, _ := s.Subscribe("k")
	_, ok = <-late
	assert.False(t, ok)
}

func TestPut_RacingCloseIsPersistedOrLogged(t *testing.T) {
	for round := 0; round < 50; round++ {
		core, logs := observer.New(zap.WarnLevel)
		b := memory.New()
		s := store.New(b, store.WithLogger(zap.New(core)))

		const writers = 8
		var wg sync.WaitGroup
		start := make(chan struct{})
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				<-start
				s.Put(fmt.Sprintf("key-%d", w), w)
			}(w)
		}
		close(start)
		require.NoError(t, s.Close())
		wg.Wait()

		dropped := logs.FilterMessage("deferred write after close dropped").Len()
		require.Equal(t, writers, len(b.Snapshot())+dropped, "round %d", round)
	}
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	defer s.Close()

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if i%2 == 0 {
					s.Put("shared", i)
				} else {
					_ = s.Commit(ctx, "shared", i)
				}
				_, _, _ = s.Lookup(ctx, "shared")
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, s.Pending())
}
