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
// Package packagejson parses the package.json fields used to identify npm
// modules.
package packagejson

import (
	"encoding/json"
	"fmt"

	"bennypowers.dev/touched/fs"
)

// workspacesObjectFormat represents the object format for workspaces field.
// Used by yarn classic with nohoist: {"packages": [...], "nohoist": [...]}
type workspacesObjectFormat struct {
	Packages []string `json:"packages"`
}

// PackageJSON represents the subset of package.json needed to name a module.
type PackageJSON struct {
	Name          string          `json:"name"`
	RawWorkspaces json.RawMessage `json:"workspaces,omitempty"`
}

// WorkspacePatterns returns the workspace glob patterns from the workspaces field.
// Handles both array format ["packages/*"] and object format {"packages": ["libs/*"]}.
func (pkg *PackageJSON) WorkspacePatterns() []string {
	if len(pkg.RawWorkspaces) == 0 {
		return nil
	}

	var patterns []string
	if err := json.Unmarshal(pkg.RawWorkspaces, &patterns); err == nil {
		return patterns
	}

	var obj workspacesObjectFormat
	if err := json.Unmarshal(pkg.RawWorkspaces, &obj); err == nil {
		return obj.Packages
	}

	return nil
}

// HasWorkspaces returns true if the package has workspace patterns defined.
func (pkg *PackageJSON) HasWorkspaces() bool {
	return len(pkg.WorkspacePatterns()) > 0
}

// ModuleID returns the identifier used for the package in reports: the
// package name, or fallback when the name is empty.
func (pkg *PackageJSON) ModuleID(fallback string) string {
	if pkg.Name == "" {
		return fallback
	}
	return pkg.Name
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fsys fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pkg, nil
}
