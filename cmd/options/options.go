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
// Package options provides the options command for touched.
package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bennypowers.dev/touched/config"
	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/output"
)

// Cmd is the options cobra command that documents every configuration
// option with its flag, environment variable and default.
var Cmd = &cobra.Command{
	Use:   "options",
	Short: "Describe configuration options",
	Long: `Describe every configuration option.

Options are read from command-line flags, then TOUCHED_* environment
variables, then a .touched.{yaml,yml,json,toml} file in the start directory,
then defaults.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	report := output.OptionsReport{Options: make([]output.OptionRow, 0, len(config.Options))}
	for _, opt := range config.Options {
		report.Options = append(report.Options, output.OptionRow{
			Name:       opt.Name,
			Short:      opt.Short,
			Default:    formatDefault(opt.Default),
			Env:        opt.EnvVar(),
			Deprecated: opt.Deprecated,
			Usage:      opt.Usage,
		})
	}
	return output.Write(fs.NewOSFileSystem(), cmd.OutOrStdout(), "", format, report)
}

func formatDefault(v any) string {
	switch d := v.(type) {
	case []string:
		return strings.Join(d, ",")
	case time.Duration:
		if d == 0 {
			return "0"
		}
		return d.String()
	default:
		return fmt.Sprint(d)
	}
}
