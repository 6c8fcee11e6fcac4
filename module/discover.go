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
package module

import (
	"cmp"
	"context"
	"encoding/xml"
	"fmt"
	iofs "io/fs"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
	"bennypowers.dev/touched/packagejson"
)

// DefaultDescriptors are the file names that mark a module root.
var DefaultDescriptors = []string{"pom.xml", "package.json", "go.mod"}

// DefaultSkipDirs are directory names never searched for descriptors.
var DefaultSkipDirs = []string{"node_modules", "vendor", "target", ".git"}

// DiscoverOptions configures Discover. Descriptors and SkipDirs are
// doublestar patterns matched against base names.
type DiscoverOptions struct {
	Descriptors []string
	SkipDirs    []string
	Logger      *zap.Logger
}

type pom struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Parent     struct {
		GroupID string `xml:"groupId"`
	} `xml:"parent"`
}

// Discover finds every module descriptor under root and reads its identity.
// Descriptors that cannot be read or parsed are logged and skipped.
// Modules are returned in path order.
func Discover(ctx context.Context, fsys fs.FileSystem, root string, opts DiscoverOptions) ([]Module, error) {
	logger := logging.OrNop(opts.Logger)
	descriptors := opts.Descriptors
	if len(descriptors) == 0 {
		descriptors = DefaultDescriptors
	}
	for _, p := range slices.Concat(descriptors, opts.SkipDirs) {
		if !doublestar.ValidatePattern(p) {
			return nil, outcome.Configf(p, "invalid file name pattern")
		}
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	sub, err := fsys.Sub(root)
	if err != nil {
		return nil, fmt.Errorf("reading module tree %s: %w", root, err)
	}

	var found []string
	err = iofs.WalkDir(sub, ".", func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && matchAny(opts.SkipDirs, d.Name()) {
				return iofs.SkipDir
			}
			return nil
		}
		if matchAny(descriptors, d.Name()) {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s for modules: %w", root, err)
	}

	results := make([]*descriptor, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range found {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := readDescriptor(fsys, root, rel)
			if err != nil {
				logger.Warn("skipping module descriptor", zap.String("path", d.Descriptor), zap.Error(err))
				return nil
			}
			results[i] = &d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results = slices.DeleteFunc(results, func(d *descriptor) bool { return d == nil })
	linkWorkspaces(results, logger)

	modules := make([]Module, 0, len(results))
	for _, d := range results {
		modules = append(modules, d.Module)
	}
	logger.Debug("discovered modules", zap.String("root", root), zap.Int("count", len(modules)))
	return modules, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// descriptor is a parsed module descriptor. workspaces holds the member
// patterns of an npm workspace root.
type descriptor struct {
	Module
	workspaces []string
}

// readDescriptor reads the module declared by the descriptor at rel, a
// slash path relative to root. The result always carries the descriptor
// path, even on error.
func readDescriptor(fsys fs.FileSystem, root, rel string) (descriptor, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	d := descriptor{Module: Module{
		Kind:       KindGeneric,
		Root:       filepath.Dir(abs),
		Descriptor: abs,
	}}
	m := &d.Module
	fallback := fallbackID(root, m.Root)

	switch path.Base(rel) {
	case "pom.xml":
		m.Kind = KindMaven
		data, err := fsys.ReadFile(abs)
		if err != nil {
			return d, err
		}
		id, err := mavenID(data)
		if err != nil {
			return d, fmt.Errorf("parsing %s: %w", abs, err)
		}
		m.ID = cmp.Or(id, fallback)
	case "package.json":
		m.Kind = KindNPM
		pkg, err := packagejson.ParseFile(fsys, abs)
		if err != nil {
			return d, err
		}
		m.ID = pkg.ModuleID(fallback)
		if pkg.HasWorkspaces() {
			d.workspaces = pkg.WorkspacePatterns()
		}
	case "go.mod":
		m.Kind = KindGo
		data, err := fsys.ReadFile(abs)
		if err != nil {
			return d, err
		}
		m.ID = cmp.Or(modfile.ModulePath(data), fallback)
	default:
		m.ID = fallback
	}
	return d, nil
}

// linkWorkspaces sets Workspace on every npm module that an npm workspace
// root lists as a member. A member claimed by nested workspace roots
// belongs to the deepest one.
func linkWorkspaces(found []*descriptor, logger *zap.Logger) {
	var roots []*descriptor
	for _, d := range found {
		if len(d.workspaces) > 0 {
			roots = append(roots, d)
		}
	}
	slices.SortFunc(roots, func(a, b *descriptor) int {
		return cmp.Compare(len(b.Root), len(a.Root))
	})

	for _, ws := range roots {
		patterns := make([]string, 0, len(ws.workspaces))
		for _, p := range ws.workspaces {
			p = strings.TrimPrefix(strings.TrimSuffix(p, "/"), "./")
			if !doublestar.ValidatePattern(p) {
				logger.Warn("ignoring workspace pattern",
					zap.String("descriptor", ws.Descriptor), zap.String("pattern", p))
				continue
			}
			patterns = append(patterns, p)
		}
		for _, d := range found {
			if d.Kind != KindNPM || d.Workspace != "" || d.Root == ws.Root {
				continue
			}
			rel, err := filepath.Rel(ws.Root, d.Root)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			if matchAny(patterns, filepath.ToSlash(rel)) {
				d.Workspace = ws.ID
			}
		}
	}
}

func mavenID(data []byte) (string, error) {
	var p pom
	if err := xml.Unmarshal(data, &p); err != nil {
		return "", err
	}
	if p.ArtifactID == "" {
		return "", nil
	}
	group := cmp.Or(p.GroupID, p.Parent.GroupID)
	if group == "" {
		return p.ArtifactID, nil
	}
	return group + ":" + p.ArtifactID, nil
}

// fallbackID names a module by its directory relative to the search root.
func fallbackID(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(dir)
	}
	return filepath.ToSlash(rel)
}
