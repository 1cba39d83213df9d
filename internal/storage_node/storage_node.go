// Package storage_node implements a reference storage server (spec's
// supplemented storage-server component): Storage and Command served over
// a local directory tree. Grounded on
// original_source/.../storage/StorageServer.java, with the three behaviors
// spec.md's redesign notes flag as bugs, not features, fixed rather than
// carried over:
//
//   - read no longer calls a single unchecked f.Read into a
//     length-sized buffer and trusts the return value to equal length;
//     it loops until the buffer is full or the file is exhausted.
//   - write not longer reopens the file with O_TRUNC in the common
//     case (silently discarding everything after the written range); it
//     seeks to offset and writes in place.
//   - create for a multi-component path no longer builds the parent
//     prefix one directory behind where the iterator actually is; it
//     creates every proper prefix component up to (not including) the
//     final leaf.
package storage_node

import (
	"io"
	"os"
	"path/filepath"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/fserrors"
	"github.com/meridianfs/namefs/internal/log_service"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

// Node serves Storage and Command over root on local disk.
type Node struct {
	root string
	ls   log_service.LogService
}

func New(root string, ls log_service.LogService) (*Node, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(root, 0755); mkErr != nil {
			return nil, mkErr
		}
	} else if err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fserrors.New(fserrors.NotADirectory, "%s: not a directory", root)
	}
	return &Node{root: root, ls: ls}, nil
}

func (n *Node) localPath(p fs_path.Path) string {
	return filepath.Join(n.root, filepath.FromSlash(p.String()))
}

// ListLocal reports every file under root, for use as the file list
// handed to Registration.Register at startup.
func (n *Node) ListLocal() ([]fs_path.Path, error) {
	return fs_path.ListLocalDir(n.root)
}

func (n *Node) Size(file fs_path.Path) (int64, error) {
	info, err := os.Stat(n.localPath(file))
	if os.IsNotExist(err) {
		return 0, fserrors.New(fserrors.NotFound, "%s: not found", file)
	}
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fserrors.New(fserrors.NotADirectory, "%s: is a directory", file)
	}
	return info.Size(), nil
}

func (n *Node) Read(file fs_path.Path, offset int64, length int) ([]byte, error) {
	if length < 0 || offset < 0 {
		return nil, fserrors.New(fserrors.OutOfRange, "negative offset or length")
	}
	f, err := os.Open(n.localPath(file))
	if os.IsNotExist(err) {
		return nil, fserrors.New(fserrors.NotFound, "%s: not found", file)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fserrors.New(fserrors.NotADirectory, "%s: is a directory", file)
	}
	if offset > info.Size() || offset+int64(length) > info.Size() {
		return nil, fserrors.New(fserrors.OutOfRange, "%s: read [%d,%d) exceeds size %d", file, offset, offset+int64(length), info.Size())
	}

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func (n *Node) Write(file fs_path.Path, offset int64, data []byte) error {
	if offset < 0 {
		return fserrors.New(fserrors.OutOfRange, "negative offset")
	}
	f, err := os.OpenFile(n.localPath(file), os.O_WRONLY, 0644)
	if os.IsNotExist(err) {
		return fserrors.New(fserrors.NotFound, "%s: not found", file)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fserrors.New(fserrors.NotADirectory, "%s: is a directory", file)
	}

	if _, err := f.WriteAt(data, offset); err != nil {
		return err
	}
	return nil
}

// Create makes an empty file at file, creating every missing proper
// prefix directory along the way.
func (n *Node) Create(file fs_path.Path) (bool, error) {
	if file.IsRoot() {
		return false, nil
	}

	parent, err := file.Parent()
	if err != nil {
		return false, err
	}
	if !parent.IsRoot() {
		if err := os.MkdirAll(n.localPath(parent), 0755); err != nil {
			return false, err
		}
	}

	full := n.localPath(file)
	if _, err := os.Stat(full); err == nil {
		return false, nil
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return false, nil
	}
	f.Close()
	return true, nil
}

// Delete removes path, recursively if it names a directory.
func (n *Node) Delete(path fs_path.Path) (bool, error) {
	if path.IsRoot() {
		return false, nil
	}
	full := n.localPath(path)
	if _, err := os.Stat(full); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(full); err != nil {
		return false, err
	}
	return true, nil
}

// Copy replicates file's contents from server onto this node, creating the
// local file first if it does not already exist.
func (n *Node) Copy(file fs_path.Path, server storage_iface.Storage) (bool, error) {
	size, err := server.Size(file)
	if err != nil {
		return false, fserrors.New(fserrors.NotFound, "%s: not found on source server: %v", file, err)
	}

	if _, err := os.Stat(n.localPath(file)); os.IsNotExist(err) {
		if _, err := n.Create(file); err != nil {
			return false, err
		}
	}

	const chunk = 1 << 20
	var offset int64
	for offset < size {
		length := chunk
		if remaining := size - offset; remaining < int64(length) {
			length = int(remaining)
		}
		data, err := server.Read(file, offset, length)
		if err != nil {
			return false, err
		}
		if err := n.Write(file, offset, data); err != nil {
			return false, err
		}
		offset += int64(length)
	}
	return true, nil
}

var (
	_ storage_iface.Storage = (*Node)(nil)
	_ storage_iface.Command = (*Node)(nil)
)
