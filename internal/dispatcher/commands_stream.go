package dispatcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
)

func cmdXAdd(c *cmdContext) resp.Value {
	fields := c.args[3:]
	if len(fields)%2 != 0 || len(fields) == 0 {
		return errSyntax()
	}
	id, err := c.d.KS.XAdd(c.sess.DBIndex, c.args[1], c.args[2], fields)
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewBulk(id.String())
}

func cmdXRange(c *cmdContext) resp.Value {
	entries, err := c.d.KS.XRange(c.sess.DBIndex, c.args[1], c.args[2], c.args[3])
	if err != nil {
		return toErrorValue(err)
	}
	return streamEntriesReply(entries)
}

func cmdXLen(c *cmdContext) resp.Value {
	n, err := c.d.KS.XLen(c.sess.DBIndex, c.args[1])
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

// cmdXRead implements XREAD [BLOCK ms] STREAMS key... id... (spec.md §4.2,
// §4.3). It manages the keyspace lock itself rather than relying on
// Dispatch's pre-lock, since the non-blocking path (XReadImmediate) and the
// blocking path (XReadBlock) have different locking needs.
func cmdXRead(c *cmdContext) resp.Value {
	args := c.args[1:]
	var blockMs int64 = -1
	i := 0
	for i < len(args) && !strings.EqualFold(args[i], "STREAMS") {
		if strings.EqualFold(args[i], "BLOCK") {
			if i+1 >= len(args) {
				return errSyntax()
			}
			ms, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return toErrorValue(keyspace.ErrNotInteger)
			}
			blockMs = ms
			i += 2
			continue
		}
		return errSyntax()
	}
	if i >= len(args) || !strings.EqualFold(args[i], "STREAMS") {
		return errSyntax()
	}
	rest := args[i+1:]
	if len(rest)%2 != 0 || len(rest) == 0 {
		return errSyntax()
	}
	n := len(rest) / 2
	keys := rest[:n]
	idSpecs := rest[n:]

	afterIDs := make([]keyspace.StreamID, n)
	dollar := make([]bool, n)
	for j, spec := range idSpecs {
		if spec == "$" {
			dollar[j] = true
			continue
		}
		id, err := keyspace.ParseStreamAfterID(spec)
		if err != nil {
			return toErrorValue(err)
		}
		afterIDs[j] = id
	}

	// Queued inside a transaction, XREAD never suspends: EXEC already holds
	// ks.mu across the whole batch (dispatcher.go's execTransaction), so the
	// immediate read runs lock-free here rather than re-locking a mutex the
	// caller already owns (spec.md §9, mirroring cmdBLPop/BLPopImmediate).
	if c.inExec {
		reads, err := c.d.KS.XReadImmediate(c.sess.DBIndex, keys, afterIDs)
		if err != nil {
			return toErrorValue(err)
		}
		return streamReadsReply(reads)
	}

	if blockMs < 0 {
		c.d.KS.Lock()
		reads, err := c.d.KS.XReadImmediate(c.sess.DBIndex, keys, afterIDs)
		c.d.KS.Unlock()
		if err != nil {
			return toErrorValue(err)
		}
		return streamReadsReply(reads)
	}

	if c.d.Metrics != nil {
		c.d.Metrics.BlockedClients.Inc()
		defer c.d.Metrics.BlockedClients.Dec()
	}
	timeout := time.Duration(blockMs) * time.Millisecond
	reads, err := c.d.KS.XReadBlock(c.sess.DBIndex, keys, afterIDs, dollar, timeout, c.sess.Done)
	if err != nil {
		return toErrorValue(err)
	}
	return streamReadsReply(reads)
}

func streamEntriesReply(entries []keyspace.StreamEntry) resp.Value {
	vals := make([]resp.Value, len(entries))
	for i, e := range entries {
		vals[i] = resp.NewArray([]resp.Value{
			resp.NewBulk(e.ID.String()),
			bulkArray(e.Fields),
		})
	}
	return resp.NewArray(vals)
}

func streamReadsReply(reads []keyspace.StreamRead) resp.Value {
	if len(reads) == 0 {
		return resp.NullArray()
	}
	vals := make([]resp.Value, len(reads))
	for i, r := range reads {
		vals[i] = resp.NewArray([]resp.Value{
			resp.NewBulk(r.Key),
			streamEntriesReply(r.Entries),
		})
	}
	return resp.NewArray(vals)
}
