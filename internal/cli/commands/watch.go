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
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var (
		typeFlag    string
		defaultFlag string
		limitFlag   int
	)

	cmd := &cobra.Command{
		Use:   "watch <key>...",
		Short: "Print preferences as they change",
		Long: `Print the current value of each key, then every change, until interrupted.

Changes made by other processes are reported when the backend is watched
(store.watch: true for the yaml and redis backends).`,
		Example: `  # Follow two integer keys
  prefx watch timeout retries --type int --default 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(typeFlag)
			if err != nil {
				return err
			}
			var defaults []string
			if cmd.Flags().Changed("default") {
				defaults = []string{defaultFlag}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = withSession(cmd, func(s *session) error {
				if s.prefs.Reactive() == nil {
					return errors.New("watch requires reactive: true")
				}
				return watchKeys(ctx, cmd, s, args, func(key string) (any, error) {
					return s.prefs.Stream(watcher(key, kind, defaults))
				}, limitFlag)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "string", "Value type: string, bool, int, long or float")
	cmd.Flags().StringVarP(&defaultFlag, "default", "d", "", "Value reported while the key is absent")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Exit after this many values per key (0 = no limit)")

	return cmd
}

// watchKeys runs one observer per key and prints "key: value" lines.
func watchKeys(ctx context.Context, cmd *cobra.Command, s *session, keys []string, handle func(string) (any, error), limit int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keyColor := color.New(color.FgCyan, color.Bold)
	var mu sync.Mutex
	out := cmd.OutOrStdout()

	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		h, err := handle(key)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("%s: no stream for this type", key)
		}
		g.Go(func() error {
			seen := 0
			return observe(ctx, h, func(v any) bool {
				mu.Lock()
				keyColor.Fprintf(out, "%s: ", s.settings.Prefix+key)
				fmt.Fprintln(out, v)
				mu.Unlock()
				seen++
				return limit <= 0 || seen < limit
			})
		})
	}
	return g.Wait()
}
