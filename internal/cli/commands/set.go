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
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dirpx.dev/prefx/strategy"
)

// NewSetCommand creates the set command
func NewSetCommand() *cobra.Command {
	var (
		typeFlag   string
		commitFlag bool
	)

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a preference",
		Long: `Write value under key after checking it parses as --type.

Without --commit the write is deferred and persisted when the command exits.`,
		Example: `  # Write an integer and wait until it is durable
  prefx set timeout 45 --type int --commit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, raw := args[0], args[1]
			kind, err := parseKind(typeFlag)
			if err != nil {
				return err
			}
			value, err := strategy.ParseDefault(kind, []string{raw})
			if err != nil {
				return err
			}

			return withSession(cmd, func(s *session) error {
				if err := s.prefs.Apply(cmd.Context(), setter(key, kind, commitFlag), value); err != nil {
					return err
				}
				successColor := color.New(color.FgGreen, color.Bold)
				successColor.Fprintf(cmd.OutOrStdout(), "✓ %s = %v\n", s.settings.Prefix+key, value)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "string", "Value type: string, bool, int, long or float")
	cmd.Flags().BoolVar(&commitFlag, "commit", false, "Write through and fail if the store rejects the value")

	return cmd
}
