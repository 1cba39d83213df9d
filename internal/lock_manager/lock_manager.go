// Package lock_manager implements the naming server's hierarchical
// path-lock protocol (spec component D): FIFO per-node queues with reader
// coalescing, acquired ancestor-first and released in literal reverse
// order. Grounded on the lock_node/lock/unlock_node/unlock methods of
// original_source/.../naming/NamingServer.java, which run the same
// algorithm under a single synchronized monitor with wait()/notifyAll();
// here a sync.Cond shared by the whole Manager plays that role.
package lock_manager

import (
	"sync"

	"github.com/google/uuid"

	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/fserrors"
	"github.com/meridianfs/namefs/internal/naming_tree"
)

// ReplicationController is the seam lock_manager uses to couple replica
// lifecycle to lock acquisition, without owning the storage-server
// registry itself. Both hooks run outside the manager's monitor so that a
// blocking replication RPC never stalls unrelated lock traffic.
type ReplicationController interface {
	// OnWriteAcquire invalidates every replica of file before node's
	// writer lock is granted.
	OnWriteAcquire(file fs_path.Path, node *naming_tree.Node)
	// OnReadAcquire records a read and, if warranted, provisions at most
	// one new replica of file.
	OnReadAcquire(file fs_path.Path, node *naming_tree.Node)
}

// Manager serializes lock acquisition for an entire Tree under one
// mutex/condition-variable pair, matching the original's single
// synchronized-monitor design.
type Manager struct {
	mu   sync.Mutex
	cond *sync.Cond
	repl ReplicationController
}

func New(repl ReplicationController) *Manager {
	m := &Manager{repl: repl}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// WithTreeLock runs fn while holding the same mutex that guards every
// per-node lock queue. It is the tree's single monitor: naming_service
// routes every structural read and mutation of the tree through this method
// instead of a mutex of its own, so that pure queries, create/delete, and
// the explicit lock/unlock protocol below can never observe or produce a
// torn Children slice.
func (m *Manager) WithTreeLock(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Lock acquires path hierarchically: every strict ancestor directory with
// a shared (reader) lock, then the target itself with the requested
// exclusivity. This single traversal also covers the root path (no
// ancestors, target locked with the caller's requested exclusivity) and
// the parent-is-root path (one ancestor, the root) without the original's
// separate special-cased branches.
//
// tree.Exists/tree.Walk and every per-node queue mutation run under the
// manager's monitor; only the replication hook is called with the monitor
// released, so a blocking replication RPC never stalls unrelated lock
// traffic or tree access elsewhere. This leaves a narrow window between
// OnWriteAcquire's invalidation and the writer's own lockOneLocked call
// where a racing reader could re-provision a replica before the writer is
// actually granted; reaching it needs a read count that already warrants
// replication again immediately after a reset, so it's rare in practice,
// but the happens-before isn't airtight the way holding the monitor
// across the whole call would make it.
func (m *Manager) Lock(tree *naming_tree.Tree, path fs_path.Path, exclusive bool) error {
	m.mu.Lock()
	if !tree.Exists(path) {
		m.mu.Unlock()
		return fserrors.New(fserrors.NotFound, "%s: not found", path)
	}

	ancestors, target, err := tree.Walk(path)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, a := range ancestors {
		m.lockOneLocked(a, false)
	}
	m.mu.Unlock()

	if target.Kind == naming_tree.File && m.repl != nil {
		if exclusive {
			m.repl.OnWriteAcquire(path, target)
		} else {
			m.repl.OnReadAcquire(path, target)
		}
	}

	m.mu.Lock()
	m.lockOneLocked(target, exclusive)
	m.mu.Unlock()
	return nil
}

// Unlock releases path's locks in the literal reverse of the order Lock
// acquired them: the target first, then ancestors from nearest parent back
// to the root. The original releases root-first instead; spec.md's
// redesign notes call for the corrected, fully-reversed order here.
func (m *Manager) Unlock(tree *naming_tree.Tree, path fs_path.Path, exclusive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !tree.Exists(path) {
		return fserrors.New(fserrors.IllegalArg, "%s: not found", path)
	}

	ancestors, target, err := tree.Walk(path)
	if err != nil {
		return err
	}

	m.unlockOneLocked(target, exclusive)
	for i := len(ancestors) - 1; i >= 0; i-- {
		m.unlockOneLocked(ancestors[i], false)
	}
	return nil
}

// lockOneLocked runs the FIFO-coalescing algorithm for a single node. The
// caller must hold m.mu; cond.Wait releases it while parked and reacquires
// it before returning, so the caller holds it again when this returns. A writer request always enqueues and
// waits for its own turn at the head. A reader request joins an existing
// head reader group for free, coalesces into a not-yet-head tail reader
// group, or enqueues its own new reader group behind a writer.
func (m *Manager) lockOneLocked(node *naming_tree.Node, exclusive bool) {
	if exclusive {
		req := &naming_tree.LockRequest{ID: uuid.NewString(), Exclusive: true}
		node.Requests = append(node.Requests, req)
		for node.Requests[0] != req {
			m.cond.Wait()
		}
		return
	}

	switch {
	case len(node.Requests) == 0:
		node.Requests = append(node.Requests, &naming_tree.LockRequest{ID: uuid.NewString(), Readers: 1})

	case len(node.Requests) == 1 && !node.Requests[0].Exclusive:
		node.Requests[0].Readers++

	case !node.Requests[len(node.Requests)-1].Exclusive:
		tail := node.Requests[len(node.Requests)-1]
		tail.Readers++
		for node.Requests[0] != tail {
			m.cond.Wait()
		}

	default:
		req := &naming_tree.LockRequest{ID: uuid.NewString(), Readers: 1}
		node.Requests = append(node.Requests, req)
		for node.Requests[0] != req {
			m.cond.Wait()
		}
	}
}

// unlockOneLocked requires m.mu held by the caller, same as lockOneLocked.
func (m *Manager) unlockOneLocked(node *naming_tree.Node, exclusive bool) {
	if exclusive {
		node.Requests = node.Requests[1:]
		m.cond.Broadcast()
		return
	}

	node.Requests[0].Readers--
	if node.Requests[0].Readers == 0 {
		node.Requests = node.Requests[1:]
		m.cond.Broadcast()
	}
}
