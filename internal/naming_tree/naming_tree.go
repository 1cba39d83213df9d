// Package naming_tree implements the naming server's in-memory directory
// tree (spec component C): a single tagged Node type standing in for the
// original Branch/Leaf subclass pair, grounded on
// original_source/.../naming/{Node,Branch,Leaf,Lock}.java.
//
// Tree is a plain data structure; it performs no synchronization of its
// own. Callers mutate or traverse it only while holding the appropriate
// lock from lock_manager, exactly as the original NamingServer only ever
// touches its tree from within a block already holding the node's monitor.
package naming_tree

import (
	"golang.org/x/exp/slices"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/fserrors"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

type Kind int

const (
	Dir Kind = iota
	File
)

// LockRequest is one entry in a node's FIFO lock queue: either a writer
// (Exclusive true, Readers unused) or a reader group (Exclusive false,
// Readers counting how many callers have coalesced into it). ID is an
// opaque label used only for logging; queue-position checks compare
// pointer identity, never ID.
type LockRequest struct {
	ID        string
	Exclusive bool
	Readers   int
}

// Node is a directory or a file. Which fields are meaningful depends on
// Kind: Children is populated only for Dir, the Storage/Command/replica
// fields only for File. A single tagged struct replaces the original's
// Branch/Leaf subclasses so that tree code never needs a type assertion to
// tell directories and files apart.
type Node struct {
	Name string
	Kind Kind

	Children []*Node

	Storage        storage_iface.Storage
	Command        storage_iface.Command
	ReplicaStorage []storage_iface.Storage
	ReplicaCommand []storage_iface.Command
	NumReplicas    int
	NumRequests    int

	Requests []*LockRequest
}

func NewDir(name string) *Node {
	return &Node{Name: name, Kind: Dir}
}

func NewFile(name string, storage storage_iface.Storage, command storage_iface.Command) *Node {
	return &Node{Name: name, Kind: File, Storage: storage, Command: command}
}

func (n *Node) IsDir() bool { return n.Kind == Dir }

// Child returns the immediate child named name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Tree is the whole directory tree, rooted at Root.
type Tree struct {
	Root *Node
}

func New() *Tree {
	return &Tree{Root: NewDir("/")}
}

// Walk resolves p against the tree. For the root path it returns a nil
// ancestor slice and the root node. For any other path it returns the
// strict ancestor directories in root-first order (not including the
// target itself) and the resolved target node.
func (t *Tree) Walk(p fs_path.Path) (ancestors []*Node, target *Node, err error) {
	if p.IsRoot() {
		return nil, t.Root, nil
	}

	cur := t.Root
	ancestors = append(ancestors, cur)
	it := p.Iterator()
	for it.HasNext() {
		name, _ := it.Next()
		if cur.Kind != Dir {
			return nil, nil, fserrors.New(fserrors.NotFound, "%s: not found", p)
		}
		child := cur.Child(name)
		if child == nil {
			return nil, nil, fserrors.New(fserrors.NotFound, "%s: not found", p)
		}
		cur = child
		if it.HasNext() {
			ancestors = append(ancestors, cur)
		}
	}
	return ancestors, cur, nil
}

func (t *Tree) Exists(p fs_path.Path) bool {
	if p.IsRoot() {
		return true
	}
	_, _, err := t.Walk(p)
	return err == nil
}

func (t *Tree) IsDirectory(p fs_path.Path) (bool, error) {
	if p.IsRoot() {
		return true, nil
	}
	_, node, err := t.Walk(p)
	if err != nil {
		return false, err
	}
	return node.Kind == Dir, nil
}

// List returns the names of directory's immediate children.
func (t *Tree) List(directory fs_path.Path) ([]string, error) {
	isDir, err := t.IsDirectory(directory)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fserrors.New(fserrors.NotFound, "%s: not a directory", directory)
	}
	_, node, err := t.Walk(directory)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(node.Children))
	for i, c := range node.Children {
		names[i] = c.Name
	}
	slices.Sort(names)
	return names, nil
}

func (t *Tree) resolveParentDir(p fs_path.Path) (*Node, error) {
	parentPath, err := p.Parent()
	if err != nil {
		return nil, err
	}
	isDir, err := t.IsDirectory(parentPath)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fserrors.New(fserrors.NotFound, "%s: parent is not a directory", parentPath)
	}
	if parentPath.IsRoot() {
		return t.Root, nil
	}
	_, node, err := t.Walk(parentPath)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateFile adds an empty file node at file, whose storage contents live
// on storage/command. Returns false, not an error, if file already exists.
func (t *Tree) CreateFile(file fs_path.Path, storage storage_iface.Storage, command storage_iface.Command) (bool, error) {
	if file.IsRoot() {
		return false, nil
	}
	parent, err := t.resolveParentDir(file)
	if err != nil {
		return false, err
	}
	name, _ := file.Last()
	if parent.Child(name) != nil {
		return false, nil
	}
	parent.Children = append(parent.Children, NewFile(name, storage, command))
	return true, nil
}

// CreateDirectory adds an empty directory node at directory. Returns
// false, not an error, if directory already exists.
func (t *Tree) CreateDirectory(directory fs_path.Path) (bool, error) {
	if directory.IsRoot() {
		return false, nil
	}
	parent, err := t.resolveParentDir(directory)
	if err != nil {
		return false, err
	}
	name, _ := directory.Last()
	if parent.Child(name) != nil {
		return false, nil
	}
	parent.Children = append(parent.Children, NewDir(name))
	return true, nil
}

// Delete detaches path from its parent and returns the detached subtree
// root. The caller is responsible for telling every storage server that
// hosts a file under the detached subtree to delete its local copy.
func (t *Tree) Delete(path fs_path.Path) (*Node, error) {
	if path.IsRoot() {
		return nil, fserrors.New(fserrors.IllegalArg, "cannot delete root")
	}
	ancestors, target, err := t.Walk(path)
	if err != nil {
		return nil, err
	}
	parent := t.Root
	if len(ancestors) > 0 {
		parent = ancestors[len(ancestors)-1]
	}
	name, _ := path.Last()
	for i, c := range parent.Children {
		if c.Name == name {
			parent.Children = append(parent.Children[:i:i], parent.Children[i+1:]...)
			break
		}
	}
	return target, nil
}

func (t *Tree) GetStorage(file fs_path.Path) (storage_iface.Storage, error) {
	isDir, err := t.IsDirectory(file)
	if err != nil {
		return nil, err
	}
	if isDir {
		return nil, fserrors.New(fserrors.NotFound, "%s: is a directory", file)
	}
	_, node, err := t.Walk(file)
	if err != nil {
		return nil, err
	}
	return node.Storage, nil
}

// LeafRef pairs a file node with the absolute path it sits at, produced by
// Flatten when a whole subtree needs to be torn down.
type LeafRef struct {
	Path fs_path.Path
	Node *Node
}

// Flatten walks root (addressed by rootPath) and returns every descendant
// file, each paired with its own absolute path. It recurses through every
// level of nested directories, unlike the original delete logic it
// supersedes, which only inspected a deleted directory's immediate
// children and so left nested files undeleted on their storage servers.
func Flatten(root *Node, rootPath fs_path.Path) []LeafRef {
	if root.Kind == File {
		return []LeafRef{{Path: rootPath, Node: root}}
	}
	var out []LeafRef
	for _, c := range root.Children {
		childPath, _ := fs_path.Child(rootPath, c.Name)
		out = append(out, Flatten(c, childPath)...)
	}
	return out
}
