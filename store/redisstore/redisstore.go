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

package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// DefaultNamespace prefixes every key written by a Backend.
const DefaultNamespace = "prefx:"

// Config holds connection settings for Open.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Namespace is prepended to every key.
	Namespace string
	// Watch publishes writes on a channel and reports writes made by other
	// processes sharing the namespace.
	Watch bool
	// Logger receives watch diagnostics.
	Logger *zap.Logger
}

// DefaultConfig returns a configuration for a local server.
func DefaultConfig() Config {
	return Config{Addr: "localhost:6379", Namespace: DefaultNamespace}
}

// Backend stores each preference as a Redis string under a namespaced key.
type Backend struct {
	client    *redis.Client
	namespace string
	owned     bool
	log       *zap.Logger

	// id tags change messages so a backend ignores its own writes.
	id     string
	watch  bool
	pubsub *redis.PubSub
	done   chan struct{}

	cbMu     sync.Mutex
	onChange func(key string)
}

// Open connects to the server described by cfg and verifies the connection.
func Open(cfg Config) (*Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: connect %s: %w", cfg.Addr, err)
	}

	b := newBackend(client, cfg)
	b.owned = true
	if cfg.Watch {
		b.startWatch()
	}
	return b, nil
}

// New wraps an existing client. The client is not closed by Close.
func New(client *redis.Client, cfg Config) *Backend {
	b := newBackend(client, cfg)
	if cfg.Watch {
		b.startWatch()
	}
	return b
}

func newBackend(client *redis.Client, cfg Config) *Backend {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		client:    client,
		namespace: cfg.Namespace,
		log:       log.Named("redisstore"),
		id:        uuid.NewString(),
		watch:     cfg.Watch,
	}
}

// Channel returns the pub/sub channel carrying change messages.
func (b *Backend) Channel() string { return b.namespace + "changes" }

// Load returns the string stored under key.
func (b *Backend) Load(ctx context.Context, key string) (any, bool, error) {
	v, err := b.client.Get(ctx, b.namespace+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: get %q: %w", key, err)
	}
	return v, true, nil
}

// Save stores the text form of value under key.
func (b *Backend) Save(ctx context.Context, key string, value any) error {
	text, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Errorf("redisstore: %q: %w", key, err)
	}
	if err := b.client.Set(ctx, b.namespace+key, text, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %q: %w", key, err)
	}
	b.publish(ctx, key)
	return nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.namespace+key).Err(); err != nil {
		return fmt.Errorf("redisstore: del %q: %w", key, err)
	}
	b.publish(ctx, key)
	return nil
}

// OnChange registers fn to receive keys written by other backends.
func (b *Backend) OnChange(fn func(key string)) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.onChange = fn
}

// Close stops watching and closes the client if Open created it.
func (b *Backend) Close() error {
	var errs []error
	if b.pubsub != nil {
		errs = append(errs, b.pubsub.Close())
		<-b.done
	}
	if b.owned {
		errs = append(errs, b.client.Close())
	}
	return errors.Join(errs...)
}

func (b *Backend) publish(ctx context.Context, key string) {
	if !b.watch {
		return
	}
	if err := b.client.Publish(ctx, b.Channel(), b.id+" "+key).Err(); err != nil {
		b.log.Warn("redis publish failed", zap.String("key", key), zap.Error(err))
	}
}

func (b *Backend) startWatch() {
	b.pubsub = b.client.Subscribe(context.Background(), b.Channel())
	b.done = make(chan struct{})
	ch := b.pubsub.Channel()
	go func() {
		defer close(b.done)
		for msg := range ch {
			from, key, ok := strings.Cut(msg.Payload, " ")
			if !ok || from == b.id {
				continue
			}
			b.cbMu.Lock()
			fn := b.onChange
			b.cbMu.Unlock()
			if fn != nil {
				fn(key)
			}
		}
	}()
}
