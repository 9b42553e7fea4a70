// SPDX-License-Identifier: AGPL-3.0-or-later
package schemastore

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/flowd-org/ask/internal/configloader"
	"github.com/flowd-org/ask/internal/paths"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Root is one schema search root. Dir is empty for roots that do not live on
// disk (the built-in schemas).
type Root struct {
	Name string
	FS   fs.FS
	Dir  string
}

// DirRoot returns a root backed by a directory on disk.
func DirRoot(name, dir string) Root {
	return Root{Name: name, FS: os.DirFS(dir), Dir: dir}
}

// BuiltinRoot holds the schemas shipped with ask (confirm).
func BuiltinRoot() Root {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return Root{Name: "builtin", FS: sub}
}

// RootsFromSpecs converts resolved root specs into disk roots.
func RootsFromSpecs(specs []paths.RootSpec) []Root {
	out := make([]Root, 0, len(specs))
	for _, s := range specs {
		out = append(out, DirRoot(s.Name, s.Dir))
	}
	return out
}

// Location is a located schema file.
type Location struct {
	Root Root
	Path string // slash-separated, relative to the root
}

// Folder is the on-disk directory containing the file ("" for built-ins).
func (l Location) Folder() string {
	if l.Root.Dir == "" {
		return ""
	}
	return filepath.Join(l.Root.Dir, filepath.FromSlash(path.Dir(l.Path)))
}

func (l Location) String() string {
	if l.Root.Dir == "" {
		return l.Root.Name + ":" + l.Path
	}
	return filepath.Join(l.Root.Dir, filepath.FromSlash(l.Path))
}

// Locator finds schema files over an ordered list of roots.
type Locator struct {
	roots []Root
	exts  []string
}

// NewLocator searches roots in the given order; the first existing file wins.
func NewLocator(roots ...Root) *Locator {
	return &Locator{roots: roots, exts: configloader.SchemaExtensions}
}

// Roots returns the search roots in precedence order.
func (l *Locator) Roots() []Root {
	return append([]Root(nil), l.roots...)
}

// ActionPath maps an action name onto its relative schema path ("a:b" -> "a/b").
func ActionPath(action string) string {
	p := strings.ReplaceAll(strings.TrimSpace(action), ":", "/")
	return strings.Trim(path.Clean("/"+p), "/")
}

// Find returns the first schema file for rel across roots and extensions.
func (l *Locator) Find(rel string) (Location, error) {
	rel = ActionPath(rel)
	if rel == "" || !fs.ValidPath(rel) {
		return Location{}, fmt.Errorf("%w: invalid action path %q", ErrSchemaNotFound, rel)
	}
	for _, root := range l.roots {
		for _, ext := range l.exts {
			candidate := rel + ext
			info, err := fs.Stat(root.FS, candidate)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return Location{}, fmt.Errorf("stat %s in %s: %w", candidate, root.Name, err)
			}
			if info.IsDir() {
				continue
			}
			return Location{Root: root, Path: candidate}, nil
		}
	}
	return Location{}, fmt.Errorf("%w: %s", ErrSchemaNotFound, rel)
}

// Read returns the raw bytes of a located file.
func (l Location) Read() ([]byte, error) {
	return fs.ReadFile(l.Root.FS, l.Path)
}
