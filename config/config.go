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
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
)

// ProjectFileName is the base name of the project-level configuration file,
// looked up in the start directory with any of ProjectFileTypes.
const ProjectFileName = ".touched"

// ProjectFileTypes are the accepted project file extensions, in lookup order.
var ProjectFileTypes = []string{"yaml", "yml", "json", "toml"}

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "yaml"}

// Config is the fully resolved configuration of one run.
type Config struct {
	Dir                     string
	BaseBranch              string
	ReferenceBranch         string
	FetchBaseBranch         bool
	FetchReferenceBranch    bool
	CompareToMergeBase      bool
	Uncommitted             bool
	Untracked               bool
	FailOnMissingGitDir     bool
	DisableBranchComparison bool
	SSHPrivateKey           string
	Include                 []string
	Exclude                 []string
	Descriptors             []string
	SkipDirs                []string
	Timeout                 time.Duration
	Format                  string
	Output                  string
	LogLevel                string

	// ProjectFile is the project file that was read, if any.
	ProjectFile string
}

// Default returns the configuration built from option defaults alone.
func Default() Config {
	v := viper.New()
	for _, opt := range Options {
		v.SetDefault(opt.Name, opt.Default)
	}
	return fromViper(v)
}

// Loader resolves options from three tiers. Per-invocation flags win over
// process-wide TOUCHED_* environment variables, which win over the
// project file found in the start directory. Defaults fill the rest.
type Loader struct {
	FS     fs.FileSystem
	Logger *zap.Logger
}

// Load resolves and validates the configuration. flags may be nil.
func (l *Loader) Load(flags *pflag.FlagSet) (Config, error) {
	logger := logging.OrNop(l.Logger)
	v := viper.New()

	for _, opt := range Options {
		v.SetDefault(opt.Name, opt.Default)
		envs := []string{opt.EnvVar()}
		if dep := opt.DeprecatedEnvVar(); dep != "" {
			envs = append(envs, dep)
			if _, ok := os.LookupEnv(dep); ok {
				logger.Warn("deprecated environment variable",
					zap.String("variable", dep),
					zap.String("use", opt.EnvVar()))
			}
		}
		if err := v.BindEnv(append([]string{opt.Name}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", opt.Name, err)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("binding flags: %w", err)
		}
	}

	dir, err := filepath.Abs(v.GetString(KeyDir))
	if err != nil {
		return Config{}, &outcome.ConfigError{Option: KeyDir, Msg: "invalid directory", Err: err}
	}
	v.Set(KeyDir, dir)

	projectFile, values, err := l.readProjectFile(dir, logger)
	if err != nil {
		return Config{}, err
	}
	if values != nil {
		if err := v.MergeConfigMap(values); err != nil {
			return Config{}, &outcome.ConfigError{Option: projectFile, Msg: "cannot merge project file", Err: err}
		}
	}

	cfg := fromViper(v)
	cfg.ProjectFile = projectFile
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readProjectFile reads the first project file present in dir. Keys are
// checked against the option table and deprecated names are rewritten.
func (l *Loader) readProjectFile(dir string, logger *zap.Logger) (string, map[string]any, error) {
	if l.FS == nil {
		return "", nil, nil
	}
	for _, ext := range ProjectFileTypes {
		path := filepath.Join(dir, ProjectFileName+"."+ext)
		if !l.FS.Exists(path) {
			continue
		}
		data, err := l.FS.ReadFile(path)
		if err != nil {
			return "", nil, &outcome.ConfigError{Option: path, Msg: "cannot read project file", Err: err}
		}

		fv := viper.New()
		fv.SetConfigType(ext)
		if err := fv.ReadConfig(bytes.NewReader(data)); err != nil {
			return "", nil, &outcome.ConfigError{Option: path, Msg: "cannot parse project file", Err: err}
		}

		values := make(map[string]any)
		var unknown []string
		for _, key := range fv.AllKeys() {
			opt, ok := Lookup(key)
			if !ok {
				unknown = append(unknown, key)
				continue
			}
			if key != opt.Name {
				logger.Warn("deprecated option in project file",
					zap.String("file", path),
					zap.String("option", key),
					zap.String("use", opt.Name))
				if fv.IsSet(opt.Name) {
					continue
				}
			}
			values[opt.Name] = fv.Get(key)
		}
		if len(unknown) > 0 {
			slices.Sort(unknown)
			return "", nil, outcome.Configf(path, "unknown option(s): %s", strings.Join(unknown, ", "))
		}
		logger.Debug("read project file", zap.String("file", path))
		return path, values, nil
	}
	return "", nil, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Dir:                     v.GetString(KeyDir),
		BaseBranch:              strings.TrimSpace(v.GetString(KeyBaseBranch)),
		ReferenceBranch:         strings.TrimSpace(v.GetString(KeyReferenceBranch)),
		FetchBaseBranch:         v.GetBool(KeyFetchBaseBranch),
		FetchReferenceBranch:    v.GetBool(KeyFetchReferenceBranch),
		CompareToMergeBase:      v.GetBool(KeyCompareToMergeBase),
		Uncommitted:             v.GetBool(KeyUncommitted),
		Untracked:               v.GetBool(KeyUntracked),
		FailOnMissingGitDir:     v.GetBool(KeyFailOnMissingGitDir),
		DisableBranchComparison: v.GetBool(KeyDisableBranchComparison),
		SSHPrivateKey:           v.GetString(KeySSHPrivateKey),
		Include:                 stringSlice(v, KeyInclude),
		Exclude:                 stringSlice(v, KeyExclude),
		Descriptors:             stringSlice(v, KeyDescriptors),
		SkipDirs:                stringSlice(v, KeySkipDirs),
		Timeout:                 v.GetDuration(KeyTimeout),
		Format:                  v.GetString(KeyFormat),
		Output:                  v.GetString(KeyOutput),
		LogLevel:                v.GetString(KeyLogLevel),
	}
}

// stringSlice reads a list option. Environment values arrive as a single
// string and are split on commas.
func stringSlice(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate rejects invalid values and option combinations.
func (c Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return outcome.Configf(KeyFormat, "invalid format %q: must be one of %s", c.Format, strings.Join(Formats, ", "))
	}
	if c.Timeout < 0 {
		return outcome.Configf(KeyTimeout, "must not be negative")
	}
	if len(c.Descriptors) == 0 {
		return outcome.Configf(KeyDescriptors, "at least one descriptor name is required")
	}
	if c.DisableBranchComparison {
		if !c.Uncommitted && !c.Untracked {
			return outcome.Configf(KeyDisableBranchComparison, "nothing to compare: %s and %s are both disabled", KeyUncommitted, KeyUntracked)
		}
		if c.FetchBaseBranch || c.FetchReferenceBranch {
			return outcome.Configf(KeyDisableBranchComparison, "cannot be combined with %s or %s", KeyFetchBaseBranch, KeyFetchReferenceBranch)
		}
		return nil
	}
	if c.BaseBranch == "" {
		return outcome.Configf(KeyBaseBranch, "must not be empty")
	}
	if c.ReferenceBranch == "" {
		return outcome.Configf(KeyReferenceBranch, "must not be empty")
	}
	return nil
}
