package replication_controller

import (
	"testing"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/naming_tree"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

type fakeStorage struct{ id string }

func (f fakeStorage) Size(fs_path.Path) (int64, error)              { return 0, nil }
func (f fakeStorage) Read(fs_path.Path, int64, int) ([]byte, error) { return nil, nil }
func (f fakeStorage) Write(fs_path.Path, int64, []byte) error       { return nil }

type fakeCommand struct {
	id      string
	copyOK  bool
	deletes []fs_path.Path
}

func (f *fakeCommand) Create(fs_path.Path) (bool, error) { return true, nil }
func (f *fakeCommand) Delete(p fs_path.Path) (bool, error) {
	f.deletes = append(f.deletes, p)
	return true, nil
}
func (f *fakeCommand) Copy(fs_path.Path, storage_iface.Storage) (bool, error) { return f.copyOK, nil }

type fakeRegistry struct{ servers []Server }

func (r fakeRegistry) StorageServers() []Server { return r.servers }

func TestOnReadAcquireProvisionsOneReplica(t *testing.T) {
	home := fakeStorage{id: "home"}
	other := fakeStorage{id: "other"}
	otherCmd := &fakeCommand{id: "other", copyOK: true}

	reg := fakeRegistry{servers: []Server{
		{Storage: home, Command: &fakeCommand{id: "home"}},
		{Storage: other, Command: otherCmd},
	}}
	c := New(1.0, reg, nil)

	node := naming_tree.NewFile("f", home, &fakeCommand{id: "home"})
	file := fs_path.MustNew("/f")

	for i := 0; i < 20; i++ {
		c.OnReadAcquire(file, node)
	}

	if node.NumReplicas != 1 {
		t.Fatalf("NumReplicas = %d, want 1", node.NumReplicas)
	}
	if len(node.ReplicaCommand) != 1 {
		t.Fatalf("len(ReplicaCommand) = %d, want 1", len(node.ReplicaCommand))
	}
}

func TestOnReadAcquireSkipsHomeServer(t *testing.T) {
	home := storage_iface.StorageStub{}
	homeCmd := &fakeCommand{id: "home"}

	reg := fakeRegistry{servers: []Server{
		{Storage: home, Command: homeCmd},
	}}
	c := New(1.0, reg, nil)

	node := naming_tree.NewFile("f", home, homeCmd)
	file := fs_path.MustNew("/f")

	for i := 0; i < 40; i++ {
		c.OnReadAcquire(file, node)
	}

	if node.NumReplicas != 0 {
		t.Fatalf("NumReplicas = %d, want 0 (only registered server is the home server)", node.NumReplicas)
	}
}

func TestOnWriteAcquireInvalidatesReplicas(t *testing.T) {
	home := fakeStorage{id: "home"}
	replicaCmd := &fakeCommand{id: "replica"}

	node := naming_tree.NewFile("f", home, &fakeCommand{id: "home"})
	node.ReplicaCommand = []storage_iface.Command{replicaCmd}
	node.ReplicaStorage = []storage_iface.Storage{fakeStorage{id: "replica"}}
	node.NumReplicas = 1
	node.NumRequests = 20

	c := New(1.0, fakeRegistry{}, nil)
	file := fs_path.MustNew("/f")
	c.OnWriteAcquire(file, node)

	if node.NumReplicas != 0 || len(node.ReplicaCommand) != 0 {
		t.Fatalf("replica bookkeeping not cleared: %+v", node)
	}
	if node.NumRequests != 0 {
		t.Fatalf("NumRequests = %d, want 0", node.NumRequests)
	}
	if len(replicaCmd.deletes) != 1 || !replicaCmd.deletes[0].Equal(file) {
		t.Fatalf("replica was not told to delete %s: %+v", file, replicaCmd.deletes)
	}
}
