package dispatcher

import (
	"strconv"
	"time"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
)

func cmdDel(c *cmdContext) resp.Value {
	n := c.d.KS.Del(c.sess.DBIndex, c.args[1:])
	return resp.NewInt(n)
}

func cmdExists(c *cmdContext) resp.Value {
	n := c.d.KS.Exists(c.sess.DBIndex, c.args[1:])
	return resp.NewInt(n)
}

func cmdType(c *cmdContext) resp.Value {
	return resp.NewSimple(c.d.KS.Type(c.sess.DBIndex, c.args[1]))
}

func cmdKeys(c *cmdContext) resp.Value {
	return bulkArray(c.d.KS.Keys(c.sess.DBIndex, c.args[1]))
}

// cmdExpire implements EXPIRE key seconds.
func cmdExpire(c *cmdContext) resp.Value {
	secs, err := strconv.ParseInt(c.args[2], 10, 64)
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	ok := c.d.KS.Expire(c.sess.DBIndex, c.args[1], time.Duration(secs)*time.Second)
	return resp.NewInt(boolToInt(ok))
}

func cmdPTTL(c *cmdContext) resp.Value {
	return resp.NewInt(c.d.KS.PTTL(c.sess.DBIndex, c.args[1]))
}

// cmdTTL returns the remaining TTL in whole seconds, rounded up, matching
// PTTL's -2/-1 sentinels.
func cmdTTL(c *cmdContext) resp.Value {
	ms := c.d.KS.PTTL(c.sess.DBIndex, c.args[1])
	if ms < 0 {
		return resp.NewInt(ms)
	}
	secs := (ms + 999) / 1000
	return resp.NewInt(secs)
}

func cmdPersist(c *cmdContext) resp.Value {
	ok := c.d.KS.Persist(c.sess.DBIndex, c.args[1])
	return resp.NewInt(boolToInt(ok))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
