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

package yamlfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Option configures a Backend.
type Option func(*Backend)

// WithWatch reloads the file when another process changes it and reports
// the keys whose values changed.
func WithWatch(enabled bool) Option {
	return func(b *Backend) { b.watch = enabled }
}

// WithLogger sets the logger used by the watch loop.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.log = logger.Named("yamlfile")
		}
	}
}

// Backend stores all keys in one YAML mapping. Every write rewrites the
// file through a temporary file and a rename, so readers never observe a
// partial document.
type Backend struct {
	path  string
	watch bool
	log   *zap.Logger

	mu   sync.RWMutex
	data map[string]any

	cbMu     sync.Mutex
	onChange func(key string)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads path, creating an empty document on first write when the file
// does not exist yet.
func Open(path string, opts ...Option) (*Backend, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("yamlfile: %w", err)
	}
	b := &Backend{path: abs, log: zap.NewNop(), data: map[string]any{}}
	for _, opt := range opts {
		opt(b)
	}

	data, err := b.read()
	if err != nil {
		return nil, err
	}
	b.data = data

	if b.watch {
		if err := b.startWatch(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Path returns the absolute path of the document.
func (b *Backend) Path() string { return b.path }

// Load returns the value stored under key.
func (b *Backend) Load(_ context.Context, key string) (any, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok, nil
}

// Save stores value under key and rewrites the file.
func (b *Backend) Save(_ context.Context, key string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := maps.Clone(b.data)
	next[key] = value
	if err := b.write(next); err != nil {
		return err
	}
	b.data = next
	return nil
}

// Delete removes key and rewrites the file.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.data[key]; !ok {
		return nil
	}
	next := maps.Clone(b.data)
	delete(next, key)
	if err := b.write(next); err != nil {
		return err
	}
	b.data = next
	return nil
}

// OnChange registers fn to receive keys changed by other writers.
func (b *Backend) OnChange(fn func(key string)) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.onChange = fn
}

// Close stops watching the file.
func (b *Backend) Close() error {
	if b.watcher == nil {
		return nil
	}
	err := b.watcher.Close()
	<-b.done
	return err
}

func (b *Backend) read() (map[string]any, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("yamlfile: read %s: %w", b.path, err)
	}
	data := map[string]any{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("yamlfile: parse %s: %w", b.path, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// write replaces the file with data. The caller holds mu.
func (b *Backend) write(data map[string]any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("yamlfile: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("yamlfile: encode: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("yamlfile: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*")
	if err != nil {
		return fmt.Errorf("yamlfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("yamlfile: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("yamlfile: sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("yamlfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("yamlfile: replace %s: %w", b.path, err)
	}
	return nil
}

// startWatch watches the parent directory, since a rename replaces the
// file's inode and would end a watch on the file itself.
func (b *Backend) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("yamlfile: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(b.path)); err != nil {
		w.Close()
		return fmt.Errorf("yamlfile: watch %s: %w", filepath.Dir(b.path), err)
	}
	b.watcher = w
	b.done = make(chan struct{})
	go b.loop()
	return nil
}

func (b *Backend) loop() {
	defer close(b.done)
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != b.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				b.reload()
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.log.Warn("yaml watch error", zap.String("path", b.path), zap.Error(err))
		}
	}
}

// reload re-reads the file and reports keys whose values differ from the
// in-memory document.
func (b *Backend) reload() {
	b.mu.Lock()
	data, err := b.read()
	if err != nil {
		b.mu.Unlock()
		b.log.Warn("yaml reload failed", zap.String("path", b.path), zap.Error(err))
		return
	}
	changed := diff(b.data, data)
	b.data = data
	b.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	b.log.Debug("yaml reloaded", zap.String("path", b.path), zap.Strings("changed", changed))

	b.cbMu.Lock()
	fn := b.onChange
	b.cbMu.Unlock()
	if fn == nil {
		return
	}
	for _, key := range changed {
		fn(key)
	}
}

// diff returns keys added, removed or changed between old and next. Values
// compare by their text form, since YAML decodes integers as int.
func diff(old, next map[string]any) []string {
	var changed []string
	for k, v := range next {
		prev, ok := old[k]
		if !ok || cast.ToString(prev) != cast.ToString(v) {
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := next[k]; !ok {
			changed = append(changed, k)
		}
	}
	return changed
}
