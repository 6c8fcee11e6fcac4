/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package changes provides the changes command for touched.
package changes

import (
	"errors"

	"github.com/spf13/cobra"

	"bennypowers.dev/touched/config"
	"bennypowers.dev/touched/internal/cli"
	"bennypowers.dev/touched/internal/output"
	"bennypowers.dev/touched/outcome"
)

// Cmd is the changes cobra command that lists changed files.
var Cmd = &cobra.Command{
	Use:   "changes",
	Short: "List files changed between two refs and in the work tree",
	Example: `  touched changes
  touched changes -b HEAD -r refs/remotes/origin/main --exclude '**/*.md'`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	config.RegisterFlags(Cmd.Flags())
}

func run(cmd *cobra.Command, args []string) error {
	env, err := cli.Setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var report output.ChangesReport
	paths, err := env.Session.ChangedPaths(cmd.Context())
	var skip *outcome.SkipError
	switch {
	case errors.As(err, &skip):
		report = output.ChangesReport{Skipped: true, Reason: skip.Error(), Paths: []string{}}
	case err != nil:
		return err
	default:
		h, _ := env.Session.Repository()
		report = output.NewChangesReport(h.WorkTree(), paths.Sorted())
	}
	return output.Write(env.FS, cmd.OutOrStdout(), env.Config.Output, env.Config.Format, report)
}
