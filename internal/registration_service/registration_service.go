// Package registration_service implements the tree-merge half of storage
// server registration (spec component F): given the
// file list a newly-registering storage server reports, graft it onto the
// naming tree, creating whatever intermediate directories are missing.
// Grounded on create_tree in original_source/.../naming/NamingServer.java.
package registration_service

import (
	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/naming_tree"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

// Merge grafts files onto t, each file pointing at storage/command for its
// contents, creating any missing intermediate directories along the way.
// It returns the subset of files that could not be grafted because
// something already occupied their position in the tree: either the exact
// path already exists, or an intermediate component in the path is already
// a file rather than a directory. The caller (naming_service) reports
// these back to the registering storage server, which deletes its local
// copies rather than risk two servers claiming the same path.
//
// The file-as-intermediate case is not handled by the original, which
// would attempt to treat the existing Leaf as a Branch and panic; this
// implementation instead treats it as a duplicate and moves on to the next
// file.
func Merge(t *naming_tree.Tree, files []fs_path.Path, storage storage_iface.Storage, command storage_iface.Command) []fs_path.Path {
	var duplicates []fs_path.Path

nextFile:
	for _, f := range files {
		cur := t.Root
		it := f.Iterator()
		for it.HasNext() {
			name, _ := it.Next()
			if it.HasNext() {
				child := cur.Child(name)
				switch {
				case child == nil:
					child = naming_tree.NewDir(name)
					cur.Children = append(cur.Children, child)
				case child.Kind == naming_tree.File:
					duplicates = append(duplicates, f)
					continue nextFile
				}
				cur = child
				continue
			}

			if cur.Child(name) != nil {
				duplicates = append(duplicates, f)
			} else {
				cur.Children = append(cur.Children, naming_tree.NewFile(name, storage, command))
			}
		}
	}

	return duplicates
}
