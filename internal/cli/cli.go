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
// Package cli sets up the state shared by touched's subcommands.
package cli

import (
	"cmp"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bennypowers.dev/touched/config"
	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
	"bennypowers.dev/touched/session"
)

// Env is what a command needs to run.
type Env struct {
	Config  config.Config
	FS      fs.FileSystem
	Logger  *zap.Logger
	Session *session.Session
}

// Setup loads the configuration from cmd's flags, the environment and the
// project file, and opens a session for it. Callers must Close the Env.
func Setup(cmd *cobra.Command) (*Env, error) {
	osfs := fs.NewOSFileSystem()

	// Configuration warnings are reported at the level requested on the
	// command line or in the environment; the project file cannot lower it.
	level, _ := cmd.Flags().GetString(config.KeyLogLevel)
	if !cmd.Flags().Changed(config.KeyLogLevel) {
		level = cmp.Or(os.Getenv(optionEnv(config.KeyLogLevel)), level)
	}
	bootLogger, err := logging.New(level)
	if err != nil {
		bootLogger = zap.NewNop()
	}

	loader := &config.Loader{FS: osfs, Logger: bootLogger}
	cfg, err := loader.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, &outcome.ConfigError{Option: config.KeyLogLevel, Msg: "invalid level", Err: err}
	}
	if cfg.ProjectFile != "" {
		logger.Debug("read project file", zap.String("path", cfg.ProjectFile))
	}

	return &Env{
		Config:  cfg,
		FS:      osfs,
		Logger:  logger,
		Session: session.New(cfg, osfs, logger),
	}, nil
}

// Close releases the session and flushes the logger.
func (e *Env) Close() error {
	err := e.Session.Close()
	_ = e.Logger.Sync()
	return err
}

func optionEnv(name string) string {
	opt, _ := config.Lookup(name)
	return opt.EnvVar()
}
