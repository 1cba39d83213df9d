// Package storage_iface declares the two remote interfaces a storage
// server exposes to clients and to the naming server: Storage, used by clients to read and
// write file contents, and Command, used by the naming server to create,
// delete, and replicate files. Grounded on
// original_source/.../storage/StorageServer.java, which implements both
// interfaces on a single type; this module splits the two concerns into
// independent stub types so either can be swapped or mocked on its own.
package storage_iface

import (
	"encoding/gob"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/rmi"
)

func init() {
	gob.Register(StorageStub{})
	gob.Register(CommandStub{})
}

// Storage is the client-facing remote interface for file content access.
type Storage interface {
	// Size returns the length in bytes of file. Fails with NotFound if file
	// does not exist; a directory path fails with NotADirectory.
	Size(file fs_path.Path) (int64, error)
	// Read returns length bytes of file starting at offset. Fails with
	// OutOfRange if the requested range exceeds the file's size.
	Read(file fs_path.Path, offset int64, length int) ([]byte, error)
	// Write overwrites length(data) bytes of file starting at offset,
	// extending the file and zero-padding any gap if offset is beyond the
	// current end.
	Write(file fs_path.Path, offset int64, data []byte) error
}

// Command is the naming-server-facing remote interface for file and
// directory lifecycle operations on a storage server's local tree.
type Command interface {
	// Create makes an empty file at file, creating any missing parent
	// directories along the way. Returns false (not an error) if file
	// already exists.
	Create(file fs_path.Path) (bool, error)
	// Delete removes path, recursively if it names a directory. Returns
	// false if path did not exist.
	Delete(path fs_path.Path) (bool, error)
	// Copy replicates file's contents from server onto this storage
	// server, creating the local file if necessary.
	Copy(file fs_path.Path, server Storage) (bool, error)
}

// StorageStub is a client-side proxy for a remote Storage implementation.
type StorageStub struct {
	Handle rmi.StubHandle
}

func NewStorageStub(h rmi.StubHandle) StorageStub { return StorageStub{Handle: h} }

func (s StorageStub) Size(file fs_path.Path) (int64, error) {
	return rmi.Call[int64](s.Handle, "Size", file)
}

func (s StorageStub) Read(file fs_path.Path, offset int64, length int) ([]byte, error) {
	return rmi.Call[[]byte](s.Handle, "Read", file, offset, length)
}

func (s StorageStub) Write(file fs_path.Path, offset int64, data []byte) error {
	_, err := rmi.Call[struct{}](s.Handle, "Write", file, offset, data)
	return err
}

// CommandStub is a client-side proxy for a remote Command implementation.
type CommandStub struct {
	Handle rmi.StubHandle
}

func NewCommandStub(h rmi.StubHandle) CommandStub { return CommandStub{Handle: h} }

func (c CommandStub) Create(file fs_path.Path) (bool, error) {
	return rmi.Call[bool](c.Handle, "Create", file)
}

func (c CommandStub) Delete(path fs_path.Path) (bool, error) {
	return rmi.Call[bool](c.Handle, "Delete", path)
}

func (c CommandStub) Copy(file fs_path.Path, server Storage) (bool, error) {
	return rmi.Call[bool](c.Handle, "Copy", file, server)
}

var (
	_ Storage = StorageStub{}
	_ Command = CommandStub{}
)
