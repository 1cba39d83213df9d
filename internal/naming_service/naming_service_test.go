package naming_service

import (
	"reflect"
	"testing"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/fserrors"
	"github.com/meridianfs/namefs/internal/rmi"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

type fakeStorage struct{}

func (fakeStorage) Size(fs_path.Path) (int64, error)              { return 0, nil }
func (fakeStorage) Read(fs_path.Path, int64, int) ([]byte, error) { return nil, nil }
func (fakeStorage) Write(fs_path.Path, int64, []byte) error       { return nil }

type fakeCommand struct {
	created []fs_path.Path
	deleted []fs_path.Path
}

func (f *fakeCommand) Create(p fs_path.Path) (bool, error) {
	f.created = append(f.created, p)
	return true, nil
}
func (f *fakeCommand) Delete(p fs_path.Path) (bool, error) {
	f.deleted = append(f.deleted, p)
	return true, nil
}
func (f *fakeCommand) Copy(fs_path.Path, storage_iface.Storage) (bool, error) { return true, nil }

// startFakeServer stands up a real Storage and Command skeleton backed by
// fakeStorage/fakeCommand and returns the stubs a naming server would see
// over Register, exercising the full RMI round trip.
func startFakeServer(t *testing.T) (storage_iface.StorageStub, storage_iface.CommandStub, *fakeCommand) {
	t.Helper()
	cmdImpl := &fakeCommand{}

	storageSk, err := rmi.NewSkeleton(reflect.TypeOf((*storage_iface.Storage)(nil)).Elem(), fakeStorage{}, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewSkeleton(Storage): %v", err)
	}
	if err := storageSk.Start(); err != nil {
		t.Fatalf("Start(Storage): %v", err)
	}
	t.Cleanup(func() { storageSk.Stop() })

	commandSk, err := rmi.NewSkeleton(reflect.TypeOf((*storage_iface.Command)(nil)).Elem(), cmdImpl, "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewSkeleton(Command): %v", err)
	}
	if err := commandSk.Start(); err != nil {
		t.Fatalf("Start(Command): %v", err)
	}
	t.Cleanup(func() { commandSk.Stop() })

	return storage_iface.NewStorageStub(rmi.StubFromAddress("Storage", storageSk.Address())),
		storage_iface.NewCommandStub(rmi.StubFromAddress("Command", commandSk.Address())),
		cmdImpl
}

func TestRegisterRejectsNonStubTypes(t *testing.T) {
	ns := New(0.3, nil)
	_, err := ns.Register(fakeStorage{}, &fakeCommand{}, nil)
	if !fserrors.Is(err, fserrors.IllegalArg) {
		t.Fatalf("Register error = %v, want IllegalArg", err)
	}
}

func TestRegisterRejectsRepeatRegistration(t *testing.T) {
	ns := New(0.3, nil)
	storageStub, commandStub, _ := startFakeServer(t)

	if _, err := ns.Register(storageStub, commandStub, nil); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := ns.Register(storageStub, commandStub, nil)
	if !fserrors.Is(err, fserrors.AlreadyRegistered) {
		t.Fatalf("second Register error = %v, want AlreadyRegistered", err)
	}
}

func TestCreateFileWithoutStorageServers(t *testing.T) {
	ns := New(0.3, nil)
	_, err := ns.CreateFile(fs_path.MustNew("/a"))
	if !fserrors.Is(err, fserrors.IllegalState) {
		t.Fatalf("CreateFile error = %v, want IllegalState", err)
	}
}

func TestIsDirectoryPropagatesNotFound(t *testing.T) {
	ns := New(0.3, nil)
	_, err := ns.IsDirectory(fs_path.MustNew("/nope"))
	if !fserrors.Is(err, fserrors.NotFound) {
		t.Fatalf("IsDirectory error = %v, want NotFound", err)
	}
}

func TestCreateFileRegistersOnStorageServer(t *testing.T) {
	ns := New(0.3, nil)
	storageStub, commandStub, cmdImpl := startFakeServer(t)
	if _, err := ns.Register(storageStub, commandStub, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	created, err := ns.CreateFile(fs_path.MustNew("/a"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if !created {
		t.Fatal("CreateFile returned false for a new file")
	}
	if len(cmdImpl.created) != 1 {
		t.Fatalf("home command server saw %d creates, want 1", len(cmdImpl.created))
	}

	isDir, err := ns.IsDirectory(fs_path.MustNew("/a"))
	if err != nil {
		t.Fatalf("IsDirectory: %v", err)
	}
	if isDir {
		t.Fatal("/a should be a file, not a directory")
	}
}

func TestDeleteCallsHomeServer(t *testing.T) {
	ns := New(0.3, nil)
	storageStub, commandStub, cmdImpl := startFakeServer(t)
	if _, err := ns.Register(storageStub, commandStub, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ns.CreateFile(fs_path.MustNew("/a")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	ok, err := ns.Delete(fs_path.MustNew("/a"))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Fatal("Delete returned false")
	}
	if len(cmdImpl.deleted) != 1 {
		t.Fatalf("home command server saw %d deletes, want 1", len(cmdImpl.deleted))
	}
	if ns.tree.Exists(fs_path.MustNew("/a")) {
		t.Fatal("/a should no longer exist in the tree")
	}
}

func TestLockUnlockRoot(t *testing.T) {
	ns := New(0.3, nil)
	if err := ns.Lock(fs_path.Root, true); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := ns.Unlock(fs_path.Root, true); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}
