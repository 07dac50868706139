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

package redisstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/prefx/store/redisstore"
)

func setupTestRedis(t *testing.T, cfg redisstore.Config) (*redisstore.Backend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := redisstore.New(client, cfg)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisstore.DefaultConfig()
	cfg.Addr = mr.Addr()

	b, err := redisstore.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestOpen_ConnectionError(t *testing.T) {
	cfg := redisstore.DefaultConfig()
	cfg.Addr = "localhost:99999"

	_, err := redisstore.Open(cfg)
	assert.Error(t, err)
}

func TestSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	b, mr := setupTestRedis(t, redisstore.DefaultConfig())

	_, ok, err := b.Load(ctx, "volume")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "volume", 45))
	require.NoError(t, b.Save(ctx, "ratio", 0.25))
	require.NoError(t, b.Save(ctx, "enabled", true))

	got, err := mr.Get("prefx:volume")
	require.NoError(t, err)
	assert.Equal(t, "45", got)

	v, ok, err := b.Load(ctx, "ratio")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.25", v)

	v, _, _ = b.Load(ctx, "enabled")
	assert.Equal(t, "true", v)

	require.NoError(t, b.Delete(ctx, "volume"))
	assert.False(t, mr.Exists("prefx:volume"))
	require.NoError(t, b.Delete(ctx, "volume"))
}

func TestNamespace(t *testing.T) {
	ctx := context.Background()
	cfg := redisstore.DefaultConfig()
	cfg.Namespace = "app:"
	b, mr := setupTestRedis(t, cfg)

	require.NoError(t, b.Save(ctx, "theme", "dark"))
	assert.True(t, mr.Exists("app:theme"))
	assert.False(t, mr.Exists("prefx:theme"))
}

func TestLoad_ServerError(t *testing.T) {
	b, mr := setupTestRedis(t, redisstore.DefaultConfig())
	mr.SetError("LOADING")

	_, _, err := b.Load(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, b.Save(context.Background(), "k", "v"))
}

func TestWatch_ReportsOtherWriters(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	newWatched := func() *redisstore.Backend {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cfg := redisstore.DefaultConfig()
		cfg.Watch = true
		b := redisstore.New(client, cfg)
		t.Cleanup(func() { _ = b.Close() })
		return b
	}
	reader, writer := newWatched(), newWatched()

	var mu sync.Mutex
	var readerSeen, writerSeen []string
	reader.OnChange(func(key string) {
		mu.Lock()
		defer mu.Unlock()
		readerSeen = append(readerSeen, key)
	})
	writer.OnChange(func(key string) {
		mu.Lock()
		defer mu.Unlock()
		writerSeen = append(writerSeen, key)
	})

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(reader.Channel())[reader.Channel()] == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, writer.Save(ctx, "theme", "dark"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(readerSeen) == 1 && readerSeen[0] == "theme"
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, writerSeen)
}
