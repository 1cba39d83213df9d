package lock_manager

import (
	"sync"
	"testing"
	"time"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/naming_tree"
)

func newTestTree() *naming_tree.Tree {
	t := naming_tree.New()
	a := naming_tree.NewDir("a")
	t.Root.Children = append(t.Root.Children, a)
	f := naming_tree.NewFile("f", nil, nil)
	a.Children = append(a.Children, f)
	return t
}

func TestSharedLocksCoalesce(t *testing.T) {
	tree := newTestTree()
	m := New(nil)
	path := fs_path.MustNew("/a/f")

	var wg sync.WaitGroup
	const n = 20
	acquired := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Lock(tree, path, false); err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			acquired <- struct{}{}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent shared locks deadlocked")
	}
	if len(acquired) != n {
		t.Fatalf("got %d acquisitions, want %d", len(acquired), n)
	}

	for i := 0; i < n; i++ {
		if err := m.Unlock(tree, path, false); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	}
}

func TestWriterExcludesReaders(t *testing.T) {
	tree := newTestTree()
	m := New(nil)
	path := fs_path.MustNew("/a/f")

	if err := m.Lock(tree, path, true); err != nil {
		t.Fatalf("Lock exclusive: %v", err)
	}

	readerAcquired := make(chan struct{})
	go func() {
		if err := m.Lock(tree, path, false); err != nil {
			t.Errorf("reader Lock: %v", err)
		}
		close(readerAcquired)
	}()

	select {
	case <-readerAcquired:
		t.Fatal("reader acquired lock while writer held it")
	case <-time.After(100 * time.Millisecond):
	}

	if err := m.Unlock(tree, path, true); err != nil {
		t.Fatalf("Unlock exclusive: %v", err)
	}

	select {
	case <-readerAcquired:
	case <-time.After(2 * time.Second):
		t.Fatal("reader never acquired lock after writer released")
	}
	m.Unlock(tree, path, false)
}

func TestLockMissingPath(t *testing.T) {
	tree := newTestTree()
	m := New(nil)
	if err := m.Lock(tree, fs_path.MustNew("/nope"), false); err == nil {
		t.Fatal("Lock on missing path: want error")
	}
}

func TestLockRootDoesNotLockAncestors(t *testing.T) {
	tree := newTestTree()
	m := New(nil)
	if err := m.Lock(tree, fs_path.Root, true); err != nil {
		t.Fatalf("Lock root: %v", err)
	}
	if err := m.Unlock(tree, fs_path.Root, true); err != nil {
		t.Fatalf("Unlock root: %v", err)
	}
}
