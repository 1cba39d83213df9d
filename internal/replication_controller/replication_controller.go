// Package replication_controller implements read-triggered replication
// with invalidate-on-write (spec component E), grounded on the replica
// bookkeeping inline in lock_node in
// original_source/.../naming/NamingServer.java. It is invoked by
// lock_manager at the two points replica state can change: before a writer
// lock is granted (invalidate every replica) and before a reader lock on the
// file is granted (provision at most one additional replica if the read
// count warrants it).
package replication_controller

import (
	"math"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/log_service"
	"github.com/meridianfs/namefs/internal/naming_tree"
	"github.com/meridianfs/namefs/internal/storage_iface"
)

// Server pairs a registered storage server's two stubs.
type Server struct {
	Storage storage_iface.Storage
	Command storage_iface.Command
}

// Registry supplies the currently registered storage servers. A Controller
// never mutates the registration list itself.
type Registry interface {
	StorageServers() []Server
}

// Controller tracks nothing of its own beyond the knobs it was configured
// with; all mutable replica state lives on the naming_tree.Node itself,
// guarded by mu.
type Controller struct {
	alpha    float64
	registry Registry
	ls       log_service.LogService

	mu sync.Mutex
}

func New(alpha float64, registry Registry, ls log_service.LogService) *Controller {
	return &Controller{alpha: alpha, registry: registry, ls: ls}
}

// OnWriteAcquire resets node's read count and tells every replica's
// storage server to delete its copy, synchronously, before the caller's
// writer lock is granted. Replica bookkeeping is cleared regardless of
// whether the remote delete succeeds; a replica command stub that fails to
// delete is assumed gone or unreachable either way.
func (c *Controller) OnWriteAcquire(file fs_path.Path, node *naming_tree.Node) {
	c.mu.Lock()
	node.NumRequests = 0
	replicas := append([]storage_iface.Command(nil), node.ReplicaCommand...)
	node.ReplicaCommand = nil
	node.ReplicaStorage = nil
	node.NumReplicas = 0
	c.mu.Unlock()

	for _, cmd := range replicas {
		if _, err := cmd.Delete(file); err != nil && c.ls != nil {
			c.ls.Warn(log_service.LogEvent{
				Message:  "replication: invalidate replica failed",
				Metadata: map[string]any{"file": file.String(), "error": err.Error()},
			})
		}
	}
}

// OnReadAcquire increments node's read count and, if the resulting desired
// replica count exceeds what's already provisioned, copies the file onto
// one additional storage server. desired rounds the read count to the
// nearest multiple of 20 (halves round up) before scaling by alpha, matching the original's
// coarse-grained replication trigger, and never exceeds the number of
// registered storage servers.
//
// Unlike the original, which records a replica in the node's replica list
// unconditionally after issuing the copy RPC, this only records success:
// a failed copy leaves the node's bookkeeping unchanged so a later read
// will retry provisioning rather than believe a replica exists that never
// did.
func (c *Controller) OnReadAcquire(file fs_path.Path, node *naming_tree.Node) {
	c.mu.Lock()
	node.NumRequests++
	coarse := math.Round(float64(node.NumRequests)/20) * 20
	servers := c.registry.StorageServers()
	desired := int(math.Min(c.alpha*coarse, float64(len(servers))))
	if node.NumReplicas >= desired {
		c.mu.Unlock()
		return
	}
	home := node.Storage
	held := append([]storage_iface.Storage{home}, node.ReplicaStorage...)
	c.mu.Unlock()

	for _, srv := range servers {
		if slices.ContainsFunc(held, func(h storage_iface.Storage) bool {
			hs, hok := h.(storage_iface.StorageStub)
			ss, sok := srv.Storage.(storage_iface.StorageStub)
			if hok && sok {
				return hs.Handle.Equal(ss.Handle)
			}
			return h == srv.Storage
		}) {
			continue
		}

		ok2, err := srv.Command.Copy(file, home)
		if err != nil || !ok2 {
			if err != nil && c.ls != nil {
				c.ls.Warn(log_service.LogEvent{
					Message:  "replication: copy failed",
					Metadata: map[string]any{"file": file.String(), "error": err.Error()},
				})
			}
			continue
		}

		c.mu.Lock()
		node.ReplicaStorage = append(node.ReplicaStorage, srv.Storage)
		node.ReplicaCommand = append(node.ReplicaCommand, srv.Command)
		node.NumReplicas++
		c.mu.Unlock()
		break
	}
}
