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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load,
// e.g. PREFX_STORE_BACKEND.
const EnvPrefix = "PREFX"

// Backend names accepted in StoreSettings.Backend.
const (
	BackendMemory   = "memory"
	BackendYAML     = "yaml"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Settings is the file/env representation of a prefx setup.
type Settings struct {
	Prefix    string        `mapstructure:"prefix"`
	Reactive  bool          `mapstructure:"reactive"`
	MaxUnwrap int           `mapstructure:"max_unwrap"`
	Debug     bool          `mapstructure:"debug"`
	Store     StoreSettings `mapstructure:"store"`
}

// StoreSettings selects and configures a store backend.
type StoreSettings struct {
	Backend    string        `mapstructure:"backend"`
	Path       string        `mapstructure:"path"`
	DSN        string        `mapstructure:"dsn"`
	Table      string        `mapstructure:"table"`
	FlushDelay time.Duration `mapstructure:"flush_delay"`
	Watch      bool          `mapstructure:"watch"`
	Redis      RedisSettings `mapstructure:"redis"`
}

// RedisSettings configures the redis backend.
type RedisSettings struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

// Load reads settings from the YAML file at path (optional: a missing file
// yields defaults) and from PREFX_* environment variables.
// An empty path looks for prefx.yaml in the working directory.
func Load(path string) (*Settings, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("prefix", DefaultPrefix)
	v.SetDefault("reactive", DefaultReactive)
	v.SetDefault("max_unwrap", DefaultMaxUnwrap)
	v.SetDefault("debug", false)
	v.SetDefault("store.backend", BackendYAML)
	v.SetDefault("store.path", "prefs.yaml")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "prefs")
	v.SetDefault("store.flush_delay", 0)
	v.SetDefault("store.watch", false)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.namespace", "prefx:")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prefx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(path, err) {
			return nil, fmt.Errorf("config: read %q: %w", v.ConfigFileUsed(), err)
		}
		// Config file not found - use defaults
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// isMissingFile reports whether err comes from an explicit config path that
// does not exist.
func isMissingFile(path string, err error) bool {
	return path != "" && errors.Is(err, fs.ErrNotExist)
}

// Validate checks the backend selection and its required fields.
func (s *Settings) Validate() error {
	switch s.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendYAML, BackendSQLite:
		if s.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for backend %q", s.Store.Backend)
		}
	case BackendPostgres:
		if s.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for backend %q", s.Store.Backend)
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q", s.Store.Backend)
	}
	if s.Store.FlushDelay < 0 {
		return fmt.Errorf("config: store.flush_delay must not be negative, got %s", s.Store.FlushDelay)
	}
	return nil
}

// Options converts the settings into config options.
func (s *Settings) Options() []Option {
	return []Option{
		WithPrefix(s.Prefix),
		WithReactive(s.Reactive),
		WithMaxUnwrap(s.MaxUnwrap),
	}
}
