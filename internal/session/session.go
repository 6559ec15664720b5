// Package session defines the per-connection state the dispatcher consults
// to route a command: the selected database, the MULTI/EXEC transaction
// queue, the pub/sub subscription set, and (once a connection completes
// PSYNC) the replica bookkeeping a master keeps on it (spec.md §3, §4.5).
package session

import (
	"sync/atomic"

	"github.com/vivekkdagar/redix/internal/resp"
)

// Mode is the per-connection state-machine position (spec.md §4.5).
type Mode int

const (
	// Normal executes commands synchronously, one reply per command.
	Normal Mode = iota
	// Queuing holds commands queued since MULTI, pending EXEC/DISCARD.
	Queuing
	// Subscribed restricts the session to SUBSCRIBE/UNSUBSCRIBE/PING/QUIT.
	Subscribed
)

var nextID uint64

// QueuedCommand is one command captured between MULTI and EXEC.
type QueuedCommand struct {
	Args []string
}

// ReplicaState is populated once a session completes the PSYNC handshake
// and becomes a replica connection on the master side (spec.md §4.6).
type ReplicaState struct {
	ReplicaID     uint64
	AckedOffset   int64
	ListeningPort string
}

// Session holds all per-connection state the dispatcher reads or mutates.
// It is only ever touched by the connection's own goroutine and by the
// dispatcher while the keyspace lock is held (e.g. PubSub delivery, replica
// ack bookkeeping) — never concurrently from two goroutines without that
// lock, matching the discipline pubsub.Hub and blocker.Table assume.
type Session struct {
	id uint64

	DBIndex int
	Mode    Mode

	// Queue and Errored implement the MULTI/EXEC transaction state
	// (spec.md §3, §4.5): Errored is set when a queueing-time arity or
	// unknown-command check fails, without appending that command, and
	// causes EXEC to abort with EXECABORT.
	Queue   []QueuedCommand
	Errored bool

	// Channels is the set of pub/sub channels this session currently
	// subscribes to, keyed by channel name for O(1) membership checks; the
	// dispatcher also needs the count to decide when Subscribed mode exits.
	Channels map[string]bool

	// Outbox carries frames this session must write to its socket: command
	// replies, pub/sub messages, and (for a replica connection) propagated
	// write commands. The transport's writer goroutine drains it; Deliver
	// and replication.Propagate enqueue to it under the keyspace lock
	// (spec.md §5 — "PubSub delivery enqueues to per-session outboxes under
	// the same lock; the actual socket write is outside the lock").
	Outbox chan resp.Value

	// Replica is non-nil once this session has issued PSYNC and become a
	// replica connection the master propagates writes to.
	Replica *ReplicaState

	// PendingListeningPort captures REPLCONF listening-port, sent during
	// the handshake before PSYNC promotes this session to a replica
	// connection and the port is recorded on Replica (spec.md §4.6).
	PendingListeningPort string

	// Done is closed exactly once, by the transport, when this
	// connection's socket goes away. BLPOP and XREAD BLOCK select on it as
	// their cancellation channel so a client disconnect while parked
	// removes the session from the blocker without delivering a wake
	// (spec.md §5).
	Done chan struct{}
}

// New allocates a Session with a process-unique ID and a buffered outbox,
// sized the way the teacher's Connection.SendQueue is — bounded so a slow
// reader cannot grow memory unboundedly, but roomy enough that ordinary
// command replies never block the dispatcher.
func New() *Session {
	return &Session{
		id:       atomic.AddUint64(&nextID, 1),
		DBIndex:  0,
		Mode:     Normal,
		Channels: make(map[string]bool),
		Outbox:   make(chan resp.Value, 256),
		Done:     make(chan struct{}),
	}
}

// ID implements pubsub.Subscriber.
func (s *Session) ID() uint64 { return s.id }

// Deliver implements pubsub.Subscriber: it enqueues a ["message", channel,
// payload] frame to the outbox. Called under the keyspace lock from
// pubsub.Hub.Publish. A full outbox means the connection's writer has
// stalled, and dropping would violate at-least-once delivery, so Deliver
// blocks the publisher until the writer makes room, exactly as the teacher's
// design note accepts for a synchronous single-mutex server.
func (s *Session) Deliver(channel, payload string) {
	s.Outbox <- resp.NewArray([]resp.Value{
		resp.NewBulk("message"),
		resp.NewBulk(channel),
		resp.NewBulk(payload),
	})
}

// EnterQueuing transitions Normal -> Queuing on MULTI.
func (s *Session) EnterQueuing() {
	s.Mode = Queuing
	s.Queue = nil
	s.Errored = false
}

// Enqueue appends a validated command to the transaction queue.
func (s *Session) Enqueue(args []string) {
	s.Queue = append(s.Queue, QueuedCommand{Args: args})
}

// ResetTransaction returns to Normal mode, dropping any queued commands —
// used by both EXEC and DISCARD once the queue has been consumed.
func (s *Session) ResetTransaction() {
	s.Mode = Normal
	s.Queue = nil
	s.Errored = false
}

// IsSubscribed reports whether the session currently has any channel
// subscriptions, the condition that keeps it in Subscribed mode.
func (s *Session) IsSubscribed() bool { return len(s.Channels) > 0 }
