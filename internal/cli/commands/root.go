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
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prefx",
		Short: "Read, write and watch typed preferences",
		Long: color.CyanString(`prefx - typed preferences over a key-value store

Preferences live in the store selected by prefx.yaml (or --config) and
PREFX_* environment variables: a YAML file, Redis, SQLite or PostgreSQL.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the settings file (default ./prefx.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log store and accessor diagnostics to stderr")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewGetCommand())
	rootCmd.AddCommand(NewSetCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewWatchCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "prefx version: ")
			_, _ = out.Write([]byte(Version + "\n"))
			titleColor.Fprint(out, "Git commit: ")
			_, _ = out.Write([]byte(GitCommit + "\n"))
			titleColor.Fprint(out, "Go version: ")
			_, _ = out.Write([]byte(runtime.Version() + "\n"))
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
