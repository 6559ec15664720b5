package dispatcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
)

func cmdGet(c *cmdContext) resp.Value {
	val, ok, err := c.d.KS.Get(c.sess.DBIndex, c.args[1])
	if err != nil {
		return toErrorValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.NewBulk(val)
}

// cmdSet implements SET key value [EX seconds | PX milliseconds].
func cmdSet(c *cmdContext) resp.Value {
	args := c.args[3:]
	var opts keyspace.SetOptions
	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "EX":
			if i+1 >= len(args) {
				return errSyntax()
			}
			secs, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return toErrorValue(keyspace.ErrNotInteger)
			}
			opts.HasTTL = true
			opts.TTL = time.Duration(secs) * time.Second
			i++
		case "PX":
			if i+1 >= len(args) {
				return errSyntax()
			}
			ms, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return toErrorValue(keyspace.ErrNotInteger)
			}
			opts.HasTTL = true
			opts.TTL = time.Duration(ms) * time.Millisecond
			i++
		default:
			return errSyntax()
		}
	}
	c.d.KS.Set(c.sess.DBIndex, c.args[1], c.args[2], opts)
	return resp.NewSimple("OK")
}

func cmdIncr(c *cmdContext) resp.Value {
	n, err := c.d.KS.Incr(c.sess.DBIndex, c.args[1])
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

func cmdIncrBy(c *cmdContext) resp.Value {
	delta, err := strconv.ParseInt(c.args[2], 10, 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	n, err := c.d.KS.IncrBy(c.sess.DBIndex, c.args[1], delta)
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}
