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
// Package module identifies build modules and indexes them by root
// directory.
package module

import (
	"path/filepath"
	"slices"
)

// Kind names the build system a module belongs to.
type Kind string

const (
	KindMaven   Kind = "maven"
	KindNPM     Kind = "npm"
	KindGo      Kind = "go"
	KindGeneric Kind = "generic"
)

// Module is a build unit rooted at a directory.
type Module struct {
	// ID is the module's coordinates: groupId:artifactId for Maven, the
	// package name for npm, the module path for Go.
	ID   string `json:"id" yaml:"id"`
	Kind Kind   `json:"kind" yaml:"kind"`
	// Root is the absolute, cleaned module directory.
	Root string `json:"root" yaml:"root"`
	// Descriptor is the file the module was read from.
	Descriptor string `json:"descriptor" yaml:"descriptor"`
	// Workspace is the ID of the npm workspace root listing this module as
	// a member, if any.
	Workspace string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
}

// Index maps module roots to the modules declared there. Several modules
// may share a root. An Index is never modified after NewIndex returns.
type Index struct {
	byRoot map[string][]Module
	roots  []string
	size   int
}

// NewIndex groups modules by cleaned root, keeping every module and the
// input order within a root.
func NewIndex(modules []Module) *Index {
	idx := &Index{byRoot: make(map[string][]Module)}
	for _, m := range modules {
		m.Root = filepath.Clean(m.Root)
		if _, ok := idx.byRoot[m.Root]; !ok {
			idx.roots = append(idx.roots, m.Root)
		}
		idx.byRoot[m.Root] = append(idx.byRoot[m.Root], m)
		idx.size++
	}
	slices.Sort(idx.roots)
	return idx
}

// Len returns the number of modules.
func (idx *Index) Len() int {
	return idx.size
}

// Roots returns every module root in lexical order.
func (idx *Index) Roots() []string {
	return slices.Clone(idx.roots)
}

// Modules returns every module, ordered by root.
func (idx *Index) Modules() []Module {
	out := make([]Module, 0, idx.size)
	for _, root := range idx.roots {
		out = append(out, idx.byRoot[root]...)
	}
	return out
}

// Lookup returns the modules rooted exactly at root.
func (idx *Index) Lookup(root string) []Module {
	return slices.Clone(idx.byRoot[filepath.Clean(root)])
}

// Nearest returns the deepest module root enclosing path, which may be
// path itself, with the modules declared there.
func (idx *Index) Nearest(path string) (string, []Module, bool) {
	dir := filepath.Clean(path)
	for {
		if mods, ok := idx.byRoot[dir]; ok {
			return dir, slices.Clone(mods), true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, false
		}
		dir = parent
	}
}
