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
	"fmt"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command
func NewGetCommand() *cobra.Command {
	var (
		typeFlag    string
		defaultFlag string
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a preference",
		Long: `Print the value stored under key, coerced to --type.

When the key is absent the --default value is printed instead.`,
		Example: `  # Read an integer with a default
  prefx get timeout --type int --default 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(typeFlag)
			if err != nil {
				return err
			}
			var defaults []string
			if cmd.Flags().Changed("default") {
				defaults = []string{defaultFlag}
			}

			return withSession(cmd, func(s *session) error {
				v, err := s.prefs.Get(cmd.Context(), getter(args[0], kind, defaults))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "string", "Value type: string, bool, int, long or float")
	cmd.Flags().StringVarP(&defaultFlag, "default", "d", "", "Value printed when the key is absent")

	return cmd
}
