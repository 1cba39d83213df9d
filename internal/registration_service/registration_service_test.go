package registration_service

import (
	"testing"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/naming_tree"
)

func TestMergeCreatesIntermediateDirectories(t *testing.T) {
	tree := naming_tree.New()
	files := []fs_path.Path{
		fs_path.MustNew("/a/b/c"),
		fs_path.MustNew("/a/d"),
	}

	dup := Merge(tree, files, nil, nil)
	if len(dup) != 0 {
		t.Fatalf("unexpected duplicates: %v", dup)
	}

	if !tree.Exists(fs_path.MustNew("/a/b/c")) {
		t.Fatal("/a/b/c should exist after merge")
	}
	if !tree.Exists(fs_path.MustNew("/a/d")) {
		t.Fatal("/a/d should exist after merge")
	}
	isDir, err := tree.IsDirectory(fs_path.MustNew("/a/b"))
	if err != nil || !isDir {
		t.Fatalf("/a/b should be a directory, got isDir=%v err=%v", isDir, err)
	}
}

func TestMergeReportsExactDuplicate(t *testing.T) {
	tree := naming_tree.New()
	first := []fs_path.Path{fs_path.MustNew("/a/b")}
	Merge(tree, first, nil, nil)

	dup := Merge(tree, first, nil, nil)
	if len(dup) != 1 || !dup[0].Equal(first[0]) {
		t.Fatalf("duplicates = %v, want [%s]", dup, first[0])
	}
}

func TestMergeReportsFileAsIntermediateConflict(t *testing.T) {
	tree := naming_tree.New()
	Merge(tree, []fs_path.Path{fs_path.MustNew("/a")}, nil, nil)

	dup := Merge(tree, []fs_path.Path{fs_path.MustNew("/a/b")}, nil, nil)
	if len(dup) != 1 {
		t.Fatalf("duplicates = %v, want one conflict entry", dup)
	}
}
