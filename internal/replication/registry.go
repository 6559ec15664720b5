// Package replication implements the master-side replica registry and
// command propagation, and the replica-side handshake/apply client
// (spec.md §4.6).
package replication

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vivekkdagar/redix/internal/resp"
)

// replicaHandle is the master's bookkeeping for one attached replica
// connection: its outbox (shared with its Session) and the offset it has
// last acknowledged via REPLCONF ACK.
type replicaHandle struct {
	id            uint64
	outbox        chan<- resp.Value
	ackedOffset   int64
	listeningPort string
}

// Registry is the master-side replica set plus repl-offset accounting. It
// carries its own mutex and condition variable rather than sharing the
// keyspace's: WAIT is a suspension point independent of the keyspace lock
// (spec.md §5), so the WAIT handler calls Wait without holding the keyspace
// mutex, just as the keyspace's own BLPop/XReadBlock release ks.mu before
// parking.
type Registry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	replid   string
	offset   int64
	replicas map[uint64]*replicaHandle
	nextID   uint64
}

// NewRegistry builds an empty replica registry with a freshly generated
// 40-hex replication ID.
func NewRegistry() *Registry {
	r := &Registry{
		replid:   generateReplID(),
		replicas: make(map[uint64]*replicaHandle),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// generateReplID produces a 40-hex-character ID the way Redis's own
// run-id/replid is shaped: 20 random bytes. google/uuid's New returns 16
// random bytes per call, so two calls concatenated (and truncated to 20
// bytes) supply the remaining entropy without hand-rolling a random source.
func generateReplID() string {
	a := uuid.New()
	b := uuid.New()
	buf := make([]byte, 0, 20)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:4]...)
	return hex.EncodeToString(buf)
}

// ReplID returns the master's replication ID, reported by INFO replication.
func (r *Registry) ReplID() string { return r.replid }

// Offset returns the current repl-offset: the byte count of all propagated
// write-command frames, reported by INFO replication and used as WAIT's
// target.
func (r *Registry) Offset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}

// Count returns the number of currently attached replicas.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replicas)
}

// Register attaches a new replica connection's outbox, returning its
// assigned replica ID, used once a session completes the PSYNC handshake.
func (r *Registry) Register(outbox chan<- resp.Value, listeningPort string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.replicas[id] = &replicaHandle{id: id, outbox: outbox, ackedOffset: r.offset, listeningPort: listeningPort}
	r.cond.Broadcast()
	return id
}

// Unregister detaches a replica, e.g. on disconnect.
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.replicas, id)
	r.cond.Broadcast()
}

// Propagate serializes a write command and appends it to every attached
// replica's outbox, advancing the master offset by the frame's byte length
// (spec.md §4.6). Called by the dispatcher immediately after a write
// command succeeds, from within the same keyspace-locked handler — since
// the keyspace mutex already serializes one write at a time, Propagate
// calls land in the same order writes committed, without needing to share
// that mutex itself.
func (r *Registry) Propagate(args []string) {
	frame := resp.EncodeCommand(args)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset += int64(len(frame))
	vals := make([]resp.Value, len(args))
	for i, a := range args {
		vals[i] = resp.NewBulk(a)
	}
	cmd := resp.NewArray(vals)
	for _, rep := range r.replicas {
		rep.outbox <- cmd
	}
}

// Ack records a replica's REPLCONF ACK offset and wakes any WAIT callers
// blocked on it.
func (r *Registry) Ack(id uint64, offset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.replicas[id]; ok {
		rep.ackedOffset = offset
	}
	r.cond.Broadcast()
}

// getAckFrame is the fixed REPLCONF GETACK * command sent to every replica
// when WAIT needs a fresh acknowledgment.
var getAckFrame = resp.NewArray([]resp.Value{
	resp.NewBulk("REPLCONF"), resp.NewBulk("GETACK"), resp.NewBulk("*"),
})

// ImmediateAcked returns, without blocking or issuing GETACK, the number of
// replicas already acknowledging the current offset. Used when WAIT is
// queued inside a MULTI/EXEC transaction: like BLPOP and XREAD BLOCK queued
// there, it must never suspend (spec.md §9).
func (r *Registry) ImmediateAcked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countAcked(r.offset)
}

func (r *Registry) countAcked(target int64) int {
	n := 0
	for _, rep := range r.replicas {
		if rep.ackedOffset >= target {
			n++
		}
	}
	return n
}

// Wait implements WAIT numreplicas timeout-ms (spec.md §4.6): it records the
// current offset as target, issues GETACK to every replica, and blocks until
// either numReplicas replicas have acked at least target, or timeout
// elapses (0 meaning forever). If no writes have occurred since the
// registry was created, it returns the current replica count immediately
// without issuing GETACK, per spec. Must be called without the keyspace
// mutex held — like BLPop and XReadBlock, Wait manages its own suspension.
func (r *Registry) Wait(numReplicas int, timeout time.Duration) int {
	r.mu.Lock()
	target := r.offset
	if target == 0 {
		n := len(r.replicas)
		r.mu.Unlock()
		return n
	}
	for _, rep := range r.replicas {
		rep.outbox <- getAckFrame
	}

	timedOut := false
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			r.mu.Lock()
			timedOut = true
			r.cond.Broadcast()
			r.mu.Unlock()
		})
		defer timer.Stop()
	}

	for r.countAcked(target) < numReplicas && !timedOut {
		r.cond.Wait()
	}
	n := r.countAcked(target)
	r.mu.Unlock()
	return n
}
