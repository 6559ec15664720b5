package dispatcher

import (
	"strconv"
	"time"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
)

func cmdPush(left bool) handlerFunc {
	return func(c *cmdContext) resp.Value {
		n, err := c.d.KS.Push(c.sess.DBIndex, c.args[1], left, c.args[2:])
		if err != nil {
			return toErrorValue(err)
		}
		return resp.NewInt(n)
	}
}

func cmdPop(left bool) handlerFunc {
	return func(c *cmdContext) resp.Value {
		v, ok, err := c.d.KS.Pop(c.sess.DBIndex, c.args[1], left)
		if err != nil {
			return toErrorValue(err)
		}
		if !ok {
			return resp.NullBulk()
		}
		return resp.NewBulk(v)
	}
}

func cmdLRange(c *cmdContext) resp.Value {
	start, err := strconv.Atoi(c.args[2])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	stop, err := strconv.Atoi(c.args[3])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	items, err := c.d.KS.Range(c.sess.DBIndex, c.args[1], start, stop)
	if err != nil {
		return toErrorValue(err)
	}
	return bulkArray(items)
}

func cmdLLen(c *cmdContext) resp.Value {
	n, err := c.d.KS.Len(c.sess.DBIndex, c.args[1])
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

func cmdLIndex(c *cmdContext) resp.Value {
	idx, err := strconv.Atoi(c.args[2])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	v, ok, err := c.d.KS.Index(c.sess.DBIndex, c.args[1], idx)
	if err != nil {
		return toErrorValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.NewBulk(v)
}

func cmdLSet(c *cmdContext) resp.Value {
	idx, err := strconv.Atoi(c.args[2])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	if err := c.d.KS.SetIndex(c.sess.DBIndex, c.args[1], idx, c.args[3]); err != nil {
		return toErrorValue(err)
	}
	return resp.NewSimple("OK")
}

// cmdBLPop implements BLPOP key... timeout-seconds (spec.md §4.3). Queued
// inside a transaction it never suspends — EXEC threads inExec=true so it
// runs BLPopImmediate alone and reports a miss as a timeout would
// (spec.md §9).
func cmdBLPop(c *cmdContext) resp.Value {
	n := len(c.args)
	keys := c.args[1 : n-1]
	timeoutSecs, err := strconv.ParseFloat(c.args[n-1], 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotFloat)
	}

	var key, val string
	var ok bool
	if c.inExec {
		key, val, ok = c.d.KS.BLPopImmediate(c.sess.DBIndex, keys)
	} else {
		timeout := time.Duration(timeoutSecs * float64(time.Second))
		if c.d.Metrics != nil {
			c.d.Metrics.BlockedClients.Inc()
			defer c.d.Metrics.BlockedClients.Dec()
		}
		key, val, ok = c.d.KS.BLPop(keys, c.sess.DBIndex, timeout, c.sess.Done)
	}
	if !ok {
		return resp.NullArray()
	}
	c.d.replicate([]string{"LPOP", key})
	return resp.NewArray([]resp.Value{resp.NewBulk(key), resp.NewBulk(val)})
}

func bulkArray(items []string) resp.Value {
	vals := make([]resp.Value, len(items))
	for i, s := range items {
		vals[i] = resp.NewBulk(s)
	}
	return resp.NewArray(vals)
}
