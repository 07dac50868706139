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
)

// NewRemoveCommand creates the rm command
func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>...",
		Aliases: []string{"remove"},
		Short:   "Remove preferences",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				infoColor := color.New(color.FgCyan)
				for _, key := range args {
					full := s.settings.Prefix + key
					if err := s.store.Remove(cmd.Context(), full); err != nil {
						return err
					}
					infoColor.Fprintf(cmd.OutOrStdout(), "removed %s\n", full)
				}
				return nil
			})
		},
	}
}
