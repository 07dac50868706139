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

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dirpx.dev/prefx"
	"dirpx.dev/prefx/config"
	"dirpx.dev/prefx/store"
	"dirpx.dev/prefx/store/memory"
	"dirpx.dev/prefx/store/redisstore"
	"dirpx.dev/prefx/store/sqlstore"
	"dirpx.dev/prefx/store/yamlfile"
)

// session is one opened store plus the Prefs over it.
type session struct {
	settings *config.Settings
	log      *zap.Logger
	store    *store.Store
	prefs    *prefx.Prefs
}

// openSession loads settings named by the --config flag and opens the
// configured backend.
func openSession(cmd *cobra.Command) (*session, error) {
	path := flagString(cmd, "config")
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		settings.Debug = true
	}

	log := zap.NewNop()
	if settings.Debug {
		if log, err = zap.NewDevelopment(); err != nil {
			log = zap.NewNop()
		}
	}

	backend, err := openBackend(settings, log)
	if err != nil {
		return nil, err
	}
	s := store.New(backend,
		store.WithFlushDelay(settings.Store.FlushDelay),
		store.WithLogger(log))

	opts := append(settings.Options(), config.WithLogger(log))
	return &session{
		settings: settings,
		log:      log,
		store:    s,
		prefs:    prefx.New(s, opts...),
	}, nil
}

// Close flushes deferred writes and releases the backend.
func (s *session) Close() error {
	err := s.store.Close()
	_ = s.log.Sync()
	return err
}

// openBackend constructs the backend selected by settings.
func openBackend(settings *config.Settings, log *zap.Logger) (store.Backend, error) {
	st := settings.Store
	switch st.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendYAML:
		return yamlfile.Open(st.Path, yamlfile.WithWatch(st.Watch), yamlfile.WithLogger(log))
	case config.BackendRedis:
		return redisstore.Open(redisstore.Config{
			Addr:      st.Redis.Addr,
			Password:  st.Redis.Password,
			DB:        st.Redis.DB,
			Namespace: st.Redis.Namespace,
			Watch:     st.Watch,
			Logger:    log,
		})
	case config.BackendSQLite:
		return sqlstore.OpenSQLite(st.Path, st.Table)
	case config.BackendPostgres:
		return sqlstore.OpenPostgres(st.DSN, st.Table)
	default:
		return nil, fmt.Errorf("unknown store backend %q", st.Backend)
	}
}

// withSession opens a session, runs fn and closes the session, joining
// the close error into the result.
func withSession(cmd *cobra.Command, fn func(*session) error) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

func flagString(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
