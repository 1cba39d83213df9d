// Package naming_service implements the naming server's two remote
// interfaces (spec component G): Service, used by clients for filesystem
// operations and locking, and Registration, used by storage servers to
// join the filesystem. It is the facade wiring naming_tree, lock_manager,
// replication_controller, and registration_service together, grounded on
// original_source/.../naming/NamingServer.java.
package naming_service

import (
	"sync"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/fserrors"
	"github.com/meridianfs/namefs/internal/lock_manager"
	"github.com/meridianfs/namefs/internal/log_service"
	"github.com/meridianfs/namefs/internal/naming_tree"
	"github.com/meridianfs/namefs/internal/registration_service"
	"github.com/meridianfs/namefs/internal/replication_controller"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

// Service is the client-facing remote interface.
type Service interface {
	IsDirectory(path fs_path.Path) (bool, error)
	List(directory fs_path.Path) ([]string, error)
	CreateFile(file fs_path.Path) (bool, error)
	CreateDirectory(directory fs_path.Path) (bool, error)
	Delete(path fs_path.Path) (bool, error)
	GetStorage(file fs_path.Path) (storage_iface.Storage, error)
	Lock(path fs_path.Path, exclusive bool) error
	Unlock(path fs_path.Path, exclusive bool) error
}

// Registration is the storage-server-facing remote interface.
type Registration interface {
	Register(client storage_iface.Storage, command storage_iface.Command, files []fs_path.Path) ([]fs_path.Path, error)
}

type registeredServer struct {
	storage storage_iface.StorageStub
	command storage_iface.CommandStub
}

// NamingServer implements both Service and Registration over a single
// shared naming_tree.Tree.
type NamingServer struct {
	ls log_service.LogService

	// tree is never read or mutated directly; every access goes through
	// locks.WithTreeLock, the tree's single monitor.
	tree  *naming_tree.Tree
	locks *lock_manager.Manager
	repl  *replication_controller.Controller

	mu      sync.Mutex // guards servers only
	servers []registeredServer
}

// New wires a NamingServer together: its tree, its replication controller
// (configured with alpha, consulting the server itself as the storage
// registry), and its lock manager (coupled to that same controller).
func New(alpha float64, ls log_service.LogService) *NamingServer {
	ns := &NamingServer{
		ls:   ls,
		tree: naming_tree.New(),
	}
	ns.repl = replication_controller.New(alpha, ns, ls)
	ns.locks = lock_manager.New(ns.repl)
	return ns
}

// StorageServers implements replication_controller.Registry.
func (ns *NamingServer) StorageServers() []replication_controller.Server {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]replication_controller.Server, len(ns.servers))
	for i, s := range ns.servers {
		out[i] = replication_controller.Server{Storage: s.storage, Command: s.command}
	}
	return out
}

func (ns *NamingServer) IsDirectory(path fs_path.Path) (bool, error) {
	var isDir bool
	var err error
	ns.locks.WithTreeLock(func() {
		isDir, err = ns.tree.IsDirectory(path)
	})
	return isDir, err
}

func (ns *NamingServer) List(directory fs_path.Path) ([]string, error) {
	var names []string
	var err error
	ns.locks.WithTreeLock(func() {
		names, err = ns.tree.List(directory)
	})
	return names, err
}

func (ns *NamingServer) GetStorage(file fs_path.Path) (storage_iface.Storage, error) {
	var storage storage_iface.Storage
	var err error
	ns.locks.WithTreeLock(func() {
		storage, err = ns.tree.GetStorage(file)
	})
	return storage, err
}

func (ns *NamingServer) CreateFile(file fs_path.Path) (bool, error) {
	if file.IsRoot() {
		return false, nil
	}
	parent, err := file.Parent()
	if err != nil {
		return false, err
	}

	var perr error
	ns.locks.WithTreeLock(func() {
		isDir, ierr := ns.tree.IsDirectory(parent)
		if ierr != nil {
			perr = ierr
			return
		}
		if !isDir {
			perr = fserrors.New(fserrors.NotFound, "%s: parent is not a directory", file)
		}
	})
	if perr != nil {
		return false, perr
	}

	home, err := ns.pickHome()
	if err != nil {
		return false, err
	}

	var created bool
	var cerr error
	ns.locks.WithTreeLock(func() {
		created, cerr = ns.tree.CreateFile(file, home.storage, home.command)
	})
	if cerr != nil || !created {
		return created, cerr
	}

	// The tree node is installed regardless of whether the home server's
	// own Create call succeeds; its return value is informational and a
	// failure here doesn't roll the node back.
	if _, err := home.command.Create(file); err != nil && ns.ls != nil {
		ns.ls.Warn(log_service.LogEvent{Message: "naming_service: create on home server failed", Metadata: map[string]any{"path": file.String(), "error": err.Error()}})
	}
	return true, nil
}

func (ns *NamingServer) CreateDirectory(directory fs_path.Path) (bool, error) {
	if directory.IsRoot() {
		return false, nil
	}
	parent, err := directory.Parent()
	if err != nil {
		return false, err
	}

	var created bool
	var cerr error
	ns.locks.WithTreeLock(func() {
		isDir, ierr := ns.tree.IsDirectory(parent)
		if ierr != nil {
			cerr = ierr
			return
		}
		if !isDir {
			cerr = fserrors.New(fserrors.NotFound, "%s: parent is not a directory", directory)
			return
		}
		created, cerr = ns.tree.CreateDirectory(directory)
	})
	return created, cerr
}

func (ns *NamingServer) Delete(path fs_path.Path) (bool, error) {
	if path.IsRoot() {
		return false, nil
	}

	var removed *naming_tree.Node
	var derr error
	ns.locks.WithTreeLock(func() {
		if !ns.tree.Exists(path) {
			derr = fserrors.New(fserrors.NotFound, "%s: not found", path)
			return
		}
		removed, derr = ns.tree.Delete(path)
	})
	if derr != nil {
		return false, derr
	}

	for _, lf := range naming_tree.Flatten(removed, path) {
		if _, err := lf.Node.Command.Delete(lf.Path); err != nil && ns.ls != nil {
			ns.ls.Warn(log_service.LogEvent{Message: "naming_service: delete on home server failed", Metadata: map[string]any{"path": lf.Path.String(), "error": err.Error()}})
		}
		for _, rc := range lf.Node.ReplicaCommand {
			if _, err := rc.Delete(lf.Path); err != nil && ns.ls != nil {
				ns.ls.Warn(log_service.LogEvent{Message: "naming_service: delete on replica failed", Metadata: map[string]any{"path": lf.Path.String(), "error": err.Error()}})
			}
		}
	}
	return true, nil
}

func (ns *NamingServer) Lock(path fs_path.Path, exclusive bool) error {
	return ns.locks.Lock(ns.tree, path, exclusive)
}

func (ns *NamingServer) Unlock(path fs_path.Path, exclusive bool) error {
	return ns.locks.Unlock(ns.tree, path, exclusive)
}

// Register implements Registration. client and command must be the stub
// types produced by storage_iface, since the naming server needs their
// address identity to detect repeat registration and to hand them out
// later as a file's home or replica server.
func (ns *NamingServer) Register(client storage_iface.Storage, command storage_iface.Command, files []fs_path.Path) ([]fs_path.Path, error) {
	clientStub, ok := client.(storage_iface.StorageStub)
	if !ok {
		return nil, fserrors.New(fserrors.IllegalArg, "client stub has unexpected type %T", client)
	}
	commandStub, ok := command.(storage_iface.CommandStub)
	if !ok {
		return nil, fserrors.New(fserrors.IllegalArg, "command stub has unexpected type %T", command)
	}

	ns.mu.Lock()
	for _, s := range ns.servers {
		if s.storage.Handle.Equal(clientStub.Handle) {
			ns.mu.Unlock()
			return nil, fserrors.New(fserrors.AlreadyRegistered, "storage server %s already registered", clientStub.Handle)
		}
	}
	ns.servers = append(ns.servers, registeredServer{storage: clientStub, command: commandStub})
	ns.mu.Unlock()

	var duplicates []fs_path.Path
	ns.locks.WithTreeLock(func() {
		duplicates = registration_service.Merge(ns.tree, files, clientStub, commandStub)
	})

	if ns.ls != nil {
		ns.ls.Info(log_service.LogEvent{
			Message:  "storage server registered",
			Metadata: map[string]any{"address": clientStub.Handle.Addr, "files": len(files), "duplicates": len(duplicates)},
		})
	}
	return duplicates, nil
}

func (ns *NamingServer) pickHome() (registeredServer, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if len(ns.servers) == 0 {
		return registeredServer{}, fserrors.New(fserrors.IllegalState, "no storage servers registered")
	}
	return ns.servers[0], nil
}

var (
	_ Service      = (*NamingServer)(nil)
	_ Registration = (*NamingServer)(nil)
)
