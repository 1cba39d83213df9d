// Package fs_path implements the distributed filesystem's immutable
// hierarchical path value (spec component A), grounded on
// original_source/.../common/Path.java with the compareTo and isSubpath bugs
// called out by the spec's redesign notes fixed.
package fs_path

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"

	"github.com/meridianfs/namefs/internal/fserrors"
)

func init() {
	gob.Register(Path{})
	// []Path crosses the wire in its own right as Registration.Register's
	// files argument and duplicates return value, not just as a field
	// inside a registered struct, so it needs its own registration.
	gob.Register([]Path(nil))
}

// Path is an immutable sequence of non-empty components. The root path is
// the empty sequence, whose canonical string is "/".
type Path struct {
	comps []string
}

// Root is the singleton root directory path.
var Root = Path{}

// New parses a path string. The string must begin with "/" and must not
// contain ":"; empty components (from repeated slashes or a trailing slash)
// are collapsed.
func New(s string) (Path, error) {
	if len(s) == 0 {
		return Path{}, fserrors.New(fserrors.InvalidPath, "empty path string")
	}
	if s[0] != '/' {
		return Path{}, fserrors.New(fserrors.InvalidPath, "path %q does not start with /", s)
	}
	if strings.Contains(s, ":") {
		return Path{}, fserrors.New(fserrors.InvalidPath, "path %q contains ':'", s)
	}

	var comps []string
	for _, c := range strings.Split(s, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return Path{comps: comps}, nil
}

// MustNew is New, panicking on error. Intended for literal paths in tests
// and wiring code, never for user- or wire-supplied strings.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Child returns a new path formed by appending component to p.
func Child(p Path, component string) (Path, error) {
	if component == "" || strings.Contains(component, "/") || strings.Contains(component, ":") {
		return Path{}, fserrors.New(fserrors.InvalidPath, "invalid path component %q", component)
	}
	next := make([]string, len(p.comps)+1)
	copy(next, p.comps)
	next[len(p.comps)] = component
	return Path{comps: next}, nil
}

func (p Path) IsRoot() bool { return len(p.comps) == 0 }

// Parent returns the path's parent, failing at the root.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, fserrors.New(fserrors.IllegalArg, "root has no parent")
	}
	return Path{comps: append([]string(nil), p.comps[:len(p.comps)-1]...)}, nil
}

// Last returns the path's final component, failing at the root.
func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", fserrors.New(fserrors.IllegalArg, "root has no last component")
	}
	return p.comps[len(p.comps)-1], nil
}

// Components returns a defensive copy of the component sequence.
func (p Path) Components() []string {
	return append([]string(nil), p.comps...)
}

// Iterator walks the path's components, single-pass and non-removable.
type Iterator struct {
	comps []string
	pos   int
}

func (p Path) Iterator() *Iterator {
	return &Iterator{comps: p.comps}
}

func (it *Iterator) HasNext() bool {
	return it.pos < len(it.comps)
}

func (it *Iterator) Next() (string, bool) {
	if !it.HasNext() {
		return "", false
	}
	c := it.comps[it.pos]
	it.pos++
	return c, true
}

// IsSubpath reports whether other's component sequence is a prefix of p's
// (including the equal case) — i.e. whether other is an ancestor of, or
// equal to, p.
func (p Path) IsSubpath(other Path) bool {
	if len(other.comps) > len(p.comps) {
		return false
	}
	for i, c := range other.comps {
		if p.comps[i] != c {
			return false
		}
	}
	return true
}

func (p Path) Equal(other Path) bool {
	return p.String() == other.String()
}

func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.comps, "/")
}

// CompareTo orders paths with a prefix-then-lexical total order: a path
// orders before any strict extension of itself, equal paths compare equal,
// and otherwise paths are ordered by their first differing component. This
// replaces the original source's compareTo, which returned -1 whenever one
// name merely began with the other as a string (so "/ab" and "/a/b" would
// miscompare).
func (p Path) CompareTo(o Path) int {
	n := len(p.comps)
	if len(o.comps) < n {
		n = len(o.comps)
	}
	for i := 0; i < n; i++ {
		if p.comps[i] != o.comps[i] {
			if p.comps[i] < o.comps[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p.comps) == len(o.comps):
		return 0
	case len(p.comps) < len(o.comps):
		return -1
	default:
		return 1
	}
}

// GobEncode/GobDecode round-trip a Path through its canonical string, so
// parse(toString(p)) == p holds for any value that crosses the RMI wire.
func (p Path) GobEncode() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Path) GobDecode(data []byte) error {
	parsed, err := New(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ListLocalDir walks a directory tree on local disk and returns the paths of
// every contained file, relative to root. Used by storage servers to build
// the file list they hand to Register; the naming server itself never
// touches local disk.
func ListLocalDir(root string) ([]Path, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, fserrors.New(fserrors.NotFound, "%s: not found", root)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fserrors.New(fserrors.NotADirectory, "%s: not a directory", root)
	}

	var out []Path
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		p, err := New("/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
