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
// Package config declares touched's options and loads them from flags, the
// environment and a project file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every option's environment variable.
const EnvPrefix = "TOUCHED_"

// Option describes one configuration option. The type of Default decides
// the flag type: bool, string, []string or time.Duration.
type Option struct {
	Name       string
	Short      string
	Default    any
	Deprecated string
	Usage      string
}

// IsBool reports whether the option is a boolean switch.
func (o Option) IsBool() bool {
	_, ok := o.Default.(bool)
	return ok
}

// EnvVar returns the environment variable carrying the option.
func (o Option) EnvVar() string {
	return envName(o.Name)
}

// DeprecatedEnvVar returns the environment variable of the deprecated
// alias, or "" if there is none.
func (o Option) DeprecatedEnvVar() string {
	if o.Deprecated == "" {
		return ""
	}
	return envName(o.Deprecated)
}

func envName(name string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Option names.
const (
	KeyDir                     = "dir"
	KeyBaseBranch              = "base-branch"
	KeyReferenceBranch         = "reference-branch"
	KeyFetchBaseBranch         = "fetch-base-branch"
	KeyFetchReferenceBranch    = "fetch-reference-branch"
	KeyCompareToMergeBase      = "compare-to-merge-base"
	KeyUncommitted             = "uncommitted"
	KeyUntracked               = "untracked"
	KeyFailOnMissingGitDir     = "fail-on-missing-git-dir"
	KeyDisableBranchComparison = "disable-branch-comparison"
	KeySSHPrivateKey           = "ssh-private-key"
	KeyInclude                 = "include"
	KeyExclude                 = "exclude"
	KeyDescriptors             = "descriptors"
	KeySkipDirs                = "skip-dirs"
	KeyTimeout                 = "timeout"
	KeyFormat                  = "format"
	KeyOutput                  = "output"
	KeyLogLevel                = "log-level"
)

// Options is the complete option table.
var Options = []Option{
	{Name: KeyDir, Short: "C", Default: ".", Usage: "Directory to start searching for the repository from"},
	{Name: KeyBaseBranch, Short: "b", Default: "HEAD", Usage: "Ref holding the changes"},
	{Name: KeyReferenceBranch, Short: "r", Default: "refs/remotes/origin/develop", Usage: "Ref to compare against"},
	{Name: KeyFetchBaseBranch, Default: false, Usage: "Fetch the base branch from its remote first"},
	{Name: KeyFetchReferenceBranch, Default: false, Usage: "Fetch the reference branch from its remote first"},
	{Name: KeyCompareToMergeBase, Default: true, Usage: "Diff against the merge-base of the two refs instead of the reference tip"},
	{Name: KeyUncommitted, Default: true, Deprecated: "uncommited", Usage: "Include staged and unstaged working-tree changes"},
	{Name: KeyUntracked, Default: true, Usage: "Include untracked files"},
	{Name: KeyFailOnMissingGitDir, Default: true, Deprecated: "fail-on-missing-gitdir", Usage: "Fail instead of skipping when no repository is found"},
	{Name: KeyDisableBranchComparison, Default: false, Usage: "Only consider working-tree changes"},
	{Name: KeySSHPrivateKey, Default: "", Usage: "Private key for fetching over SSH"},
	{Name: KeyInclude, Default: []string{}, Usage: "Only consider changed paths matching these globs"},
	{Name: KeyExclude, Default: []string{}, Usage: "Ignore changed paths matching these globs"},
	{Name: KeyDescriptors, Default: []string{"pom.xml", "package.json", "go.mod"}, Usage: "Build descriptor file names marking a module root"},
	{Name: KeySkipDirs, Default: []string{"node_modules", "vendor", "target", ".git"}, Usage: "Directory names not searched for modules"},
	{Name: KeyTimeout, Default: time.Duration(0), Usage: "Timeout for network operations (0 for none)"},
	{Name: KeyFormat, Short: "f", Default: "text", Usage: "Output format (text, json, yaml)"},
	{Name: KeyOutput, Short: "o", Default: "", Usage: "Output file (default: stdout)"},
	{Name: KeyLogLevel, Default: "warn", Usage: "Log level (debug, info, warn, error, none)"},
}

// Lookup finds an option by canonical or deprecated name.
func Lookup(name string) (Option, bool) {
	name = strings.ToLower(name)
	for _, opt := range Options {
		if opt.Name == name || (opt.Deprecated != "" && opt.Deprecated == name) {
			return opt, true
		}
	}
	return Option{}, false
}

// RegisterFlags adds a flag for every option to flags. Deprecated names are
// accepted and normalised to their canonical flag.
func RegisterFlags(flags *pflag.FlagSet) {
	for _, opt := range Options {
		switch def := opt.Default.(type) {
		case bool:
			flags.BoolP(opt.Name, opt.Short, def, opt.Usage)
		case string:
			flags.StringP(opt.Name, opt.Short, def, opt.Usage)
		case []string:
			flags.StringSliceP(opt.Name, opt.Short, def, opt.Usage)
		case time.Duration:
			flags.DurationP(opt.Name, opt.Short, def, opt.Usage)
		default:
			panic(fmt.Sprintf("config: option %s has unsupported default %T", opt.Name, def))
		}
	}
	flags.SetNormalizeFunc(NormalizeFlagName)
}

// NormalizeFlagName maps deprecated flag names onto their canonical name.
func NormalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if opt, ok := Lookup(name); ok {
		return pflag.NormalizedName(opt.Name)
	}
	return pflag.NormalizedName(name)
}
