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
// Package output renders command results for the touched CLI.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/version"
	"bennypowers.dev/touched/module"
	"bennypowers.dev/touched/outcome"
)

var (
	idColor   = color.New(color.Bold)
	dimColor  = color.New(color.FgHiBlack)
	warnColor = color.New(color.FgYellow)
)

// Report is a command result that can also render itself as text.
type Report interface {
	WriteText(w io.Writer) error
}

// ModulesReport lists impacted modules. When Skipped is set, incremental
// detection was not possible and Modules holds every known module.
type ModulesReport struct {
	Skipped bool            `json:"skipped" yaml:"skipped"`
	Reason  string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Modules []module.Module `json:"modules" yaml:"modules"`
	Outside []string        `json:"outside,omitempty" yaml:"outside,omitempty"`
}

// WriteText writes one module per line: ID, then root relative to base.
func (r ModulesReport) WriteText(w io.Writer) error {
	if r.Skipped {
		if _, err := warnColor.Fprintf(w, "# incremental detection skipped: %s\n", r.Reason); err != nil {
			return err
		}
	}
	for _, m := range r.Modules {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", idColor.Sprint(m.ID), m.Root); err != nil {
			return err
		}
	}
	for _, p := range r.Outside {
		if _, err := dimColor.Fprintf(w, "# outside build tree: %s\n", p); err != nil {
			return err
		}
	}
	return nil
}

// ChangesReport lists changed files relative to the work tree.
type ChangesReport struct {
	Skipped  bool     `json:"skipped" yaml:"skipped"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	WorkTree string   `json:"worktree,omitempty" yaml:"worktree,omitempty"`
	Paths    []string `json:"paths" yaml:"paths"`
}

// NewChangesReport relativises sorted absolute paths against workTree.
func NewChangesReport(workTree string, paths []string) ChangesReport {
	r := ChangesReport{WorkTree: workTree, Paths: make([]string, 0, len(paths))}
	for _, p := range paths {
		if rel, err := filepath.Rel(workTree, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		r.Paths = append(r.Paths, p)
	}
	return r
}

// WriteText writes one path per line.
func (r ChangesReport) WriteText(w io.Writer) error {
	if r.Skipped {
		if _, err := warnColor.Fprintf(w, "# incremental detection skipped: %s\n", r.Reason); err != nil {
			return err
		}
	}
	for _, p := range r.Paths {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

// OptionsReport describes every configuration option.
type OptionsReport struct {
	Options []OptionRow `json:"options" yaml:"options"`
}

// OptionRow is one option in an OptionsReport.
type OptionRow struct {
	Name       string `json:"name" yaml:"name"`
	Short      string `json:"short,omitempty" yaml:"short,omitempty"`
	Default    string `json:"default" yaml:"default"`
	Env        string `json:"env" yaml:"env"`
	Deprecated string `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Usage      string `json:"usage" yaml:"usage"`
}

// WriteText writes the options as an aligned table.
func (r OptionsReport) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPTION\tSHORT\tDEFAULT\tENV\tDEPRECATED\tUSAGE")
	for _, o := range r.Options {
		short := o.Short
		if short != "" {
			short = "-" + short
		}
		fmt.Fprintf(tw, "--%s\t%s\t%s\t%s\t%s\t%s\n", o.Name, short, o.Default, o.Env, o.Deprecated, o.Usage)
	}
	return tw.Flush()
}

// VersionReport describes the running binary.
type VersionReport struct {
	version.Info `yaml:",inline"`
}

// WriteText writes "touched <version>".
func (r VersionReport) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "touched %s\n", r.Info)
	return err
}

// Render encodes r in format: text, json or yaml.
func Render(format string, r Report) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "text", "":
		if err := r.WriteText(&buf); err != nil {
			return nil, err
		}
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, outcome.Configf("format", "unknown format %q", format)
	}
	return buf.Bytes(), nil
}

// Write renders r and writes it to path, or to stdout when path is empty.
func Write(fsys fs.FileSystem, stdout io.Writer, path, format string, r Report) error {
	data, err := Render(format, r)
	if err != nil {
		return err
	}
	if path != "" {
		return fsys.WriteFile(path, data, 0644)
	}
	_, err = stdout.Write(data)
	return err
}
