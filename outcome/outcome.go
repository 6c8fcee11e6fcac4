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
// Package outcome classifies failures that cross component boundaries.
//
// Two kinds matter to callers. A ConfigError aborts the run: the inputs
// were wrong and rerunning will not help. A SkipError is not a failure at
// all: incremental detection cannot be trusted for this tree, and the
// caller should fall back to a full build.
package outcome

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid option value or combination.
type ConfigError struct {
	// Option names the offending option or ref, if any.
	Option string
	Msg    string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Option != "" {
		msg = fmt.Sprintf("%s: %s", e.Option, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Configf returns a ConfigError for the given option.
func Configf(option, format string, args ...any) *ConfigError {
	return &ConfigError{Option: option, Msg: fmt.Sprintf(format, args...)}
}

// SkipError signals that incremental detection should be skipped.
type SkipError struct {
	Reason string
	Err    error
}

func (e *SkipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("skipping incremental detection: %s: %v", e.Reason, e.Err)
	}
	return "skipping incremental detection: " + e.Reason
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// Skip wraps cause in a SkipError.
func Skip(reason string, cause error) *SkipError {
	return &SkipError{Reason: reason, Err: cause}
}

// IsSkip reports whether err, or any error it wraps, is a SkipError.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

// IsConfig reports whether err, or any error it wraps, is a ConfigError.
func IsConfig(err error) bool {
	var cfg *ConfigError
	return errors.As(err, &cfg)
}
