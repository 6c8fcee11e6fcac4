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
// Package impact maps changed files to the modules that own them.
package impact

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/module"
)

// Result is the outcome of one resolution.
type Result struct {
	// Modules holds each impacted module once, ordered by root, ID, then
	// descriptor.
	Modules []module.Module `json:"modules" yaml:"modules"`
	// Outside lists changed paths that no module encloses.
	Outside []string `json:"outside,omitempty" yaml:"outside,omitempty"`
}

// Has reports whether a module with the given root and ID is impacted.
func (r Result) Has(root, id string) bool {
	return slices.ContainsFunc(r.Modules, func(m module.Module) bool {
		return m.Root == root && m.ID == id
	})
}

// IDs returns the IDs of the impacted modules in result order.
func (r Result) IDs() []string {
	ids := make([]string, 0, len(r.Modules))
	for _, m := range r.Modules {
		ids = append(ids, m.ID)
	}
	return ids
}

// Resolve maps each path to its nearest enclosing module root and collects
// every module declared there. Paths outside all modules are reported in
// Result.Outside and logged; they never cause an error.
func Resolve(paths []string, idx *module.Index, logger *zap.Logger) Result {
	logger = logging.OrNop(logger)

	// Every module at a root is added the first time the root matches, so
	// colocated modules are never collapsed, even when their IDs coincide.
	seen := make(map[string]struct{})
	res := Result{Modules: []module.Module{}}
	for _, p := range paths {
		root, mods, ok := idx.Nearest(p)
		if !ok {
			logger.Warn("changed file is outside the build tree", zap.String("path", p))
			res.Outside = append(res.Outside, p)
			continue
		}
		logger.Debug("mapped changed file", zap.String("path", p), zap.String("root", root))
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		res.Modules = append(res.Modules, mods...)
	}

	slices.SortFunc(res.Modules, func(a, b module.Module) int {
		return cmp.Or(cmp.Compare(a.Root, b.Root), cmp.Compare(a.ID, b.ID), cmp.Compare(a.Descriptor, b.Descriptor))
	})
	slices.Sort(res.Outside)
	return res
}
