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
// Package modules provides the modules command for touched.
package modules

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bennypowers.dev/touched/config"
	"bennypowers.dev/touched/internal/cli"
	"bennypowers.dev/touched/internal/output"
	"bennypowers.dev/touched/outcome"
)

// Cmd is the modules cobra command that lists the build modules touched by
// the current changes.
var Cmd = &cobra.Command{
	Use:   "modules",
	Short: "List build modules touched by changes",
	Long: `List the build modules that own at least one changed file.

Changes are the files that differ between the base and reference branches,
plus uncommitted and untracked files in the work tree. Each changed file is
attributed to the nearest enclosing module.

When incremental detection is not possible, every module is listed and the
report is marked as skipped so the caller can fall back to a full build.`,
	Example: `  # Modules changed on HEAD since it left origin/develop
  touched modules

  # Compare against main, fetching it first
  touched modules -r origin/main --fetch-reference-branch

  # Only look at the work tree
  touched modules --disable-branch-comparison -f json`,
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
	ctx := cmd.Context()

	var report output.ModulesReport
	res, err := env.Session.Impacted(ctx)
	var skip *outcome.SkipError
	switch {
	case errors.As(err, &skip):
		env.Logger.Warn("incremental detection skipped, listing all modules", zap.String("reason", skip.Error()))
		idx, err := env.Session.Modules(ctx)
		if err != nil {
			return err
		}
		report = output.ModulesReport{Skipped: true, Reason: skip.Error(), Modules: idx.Modules()}
	case err != nil:
		return err
	default:
		report = output.ModulesReport{Modules: res.Modules, Outside: res.Outside}
	}
	return output.Write(env.FS, cmd.OutOrStdout(), env.Config.Output, env.Config.Format, report)
}
