package dispatcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
	"github.com/vivekkdagar/redix/internal/session"
)

// cmdSelect implements SELECT db, switching the session's logical database
// index (spec.md §3 per-session state).
func cmdSelect(c *cmdContext) resp.Value {
	idx, err := strconv.Atoi(c.args[1])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	if idx < 0 || idx >= c.d.KS.NumDBs() {
		return resp.NewError("ERR DB index is out of range")
	}
	c.sess.DBIndex = idx
	return resp.NewSimple("OK")
}

// cmdWait implements WAIT numreplicas timeout-ms (spec.md §4.6). Queued
// inside a transaction it never suspends, mirroring BLPOP/XREAD BLOCK
// (spec.md §9): it reports the currently-acknowledged count without
// issuing a fresh GETACK round or blocking the whole EXEC batch.
func cmdWait(c *cmdContext) resp.Value {
	numReplicas, err := strconv.Atoi(c.args[1])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	timeoutMs, err := strconv.ParseInt(c.args[2], 10, 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	if c.d.Replicas == nil {
		return resp.NewInt(0)
	}
	if c.inExec {
		return resp.NewInt(int64(c.d.Replicas.ImmediateAcked()))
	}
	n := c.d.Replicas.Wait(numReplicas, time.Duration(timeoutMs)*time.Millisecond)
	return resp.NewInt(int64(n))
}

// cmdReplConf implements REPLCONF's handshake sub-commands
// (listening-port, capa) plus, on the master side, the ACK a replica sends
// in response to GETACK (spec.md §4.6). ACK carries no reply: a replica
// does not expect one, matching real Redis.
func cmdReplConf(c *cmdContext) resp.Value {
	switch strings.ToUpper(c.args[1]) {
	case "LISTENING-PORT":
		if len(c.args) != 3 {
			return errSyntax()
		}
		c.sess.PendingListeningPort = c.args[2]
		return resp.NewSimple("OK")
	case "ACK":
		if len(c.args) != 3 {
			return errSyntax()
		}
		offset, err := strconv.ParseInt(c.args[2], 10, 64)
		if err != nil {
			return toErrorValue(keyspace.ErrNotInteger)
		}
		if c.sess.Replica != nil {
			c.d.Replicas.Ack(c.sess.Replica.ReplicaID, offset)
		}
		return noReply
	default:
		// CAPA and any other negotiation sub-command this server does not
		// distinguish are acknowledged unconditionally, the way real Redis
		// accepts capability flags it doesn't specifically act on.
		return resp.NewSimple("OK")
	}
}

// cmdPSync implements the master side of PSYNC ? -1 (spec.md §4.6): it
// registers the session as a replica, then pushes the FULLRESYNC line and
// the RDB preamble directly onto the session's outbox (bypassing the
// normal single-reply path, the same way SUBSCRIBE pushes its own frames)
// before the connection becomes a one-way propagation stream.
func cmdPSync(c *cmdContext) resp.Value {
	id := c.d.Replicas.Register(c.sess.Outbox, c.sess.PendingListeningPort)
	c.sess.Replica = &session.ReplicaState{
		ReplicaID:     id,
		ListeningPort: c.sess.PendingListeningPort,
	}
	if c.d.Metrics != nil {
		c.d.Metrics.ReplicaCount.Inc()
	}

	c.sess.Outbox <- resp.NewSimple(fmt.Sprintf("FULLRESYNC %s %d", c.d.Replicas.ReplID(), c.d.Replicas.Offset()))
	// An empty snapshot is acceptable for a fresh master (spec.md §4.6);
	// on-disk RDB decoding is an external collaborator this server never
	// implements, so a freshly-registered replica always starts from an
	// empty baseline and catches up purely through propagated writes.
	c.sess.Outbox <- resp.NewRawBulk(nil)
	return noReply
}
