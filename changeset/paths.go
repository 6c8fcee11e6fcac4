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
package changeset

import (
	"maps"
	"path/filepath"
	"slices"
)

// Paths is a set of absolute, cleaned filesystem paths.
type Paths map[string]struct{}

// NewPaths returns a set holding paths.
func NewPaths(paths ...string) Paths {
	p := make(Paths, len(paths))
	for _, path := range paths {
		p.Add(path)
	}
	return p
}

// Add inserts a cleaned copy of path.
func (p Paths) Add(path string) {
	p[filepath.Clean(path)] = struct{}{}
}

// Has reports whether path is in the set.
func (p Paths) Has(path string) bool {
	_, ok := p[filepath.Clean(path)]
	return ok
}

// Len returns the number of paths.
func (p Paths) Len() int {
	return len(p)
}

// Union adds every path of other to p.
func (p Paths) Union(other Paths) {
	maps.Copy(p, other)
}

// Sorted returns the paths in lexical order.
func (p Paths) Sorted() []string {
	return slices.Sorted(maps.Keys(p))
}
