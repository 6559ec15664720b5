package dispatcher

import (
	"strconv"

	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/resp"
)

func cmdZAdd(c *cmdContext) resp.Value {
	rest := c.args[2:]
	if len(rest)%2 != 0 || len(rest) == 0 {
		return errSyntax()
	}
	pairs := make([]keyspace.ZMember, len(rest)/2)
	for i := 0; i < len(pairs); i++ {
		score, err := keyspace.ParseScore(rest[2*i])
		if err != nil {
			return toErrorValue(err)
		}
		pairs[i] = keyspace.ZMember{Score: score, Member: rest[2*i+1]}
	}
	n, err := c.d.KS.ZAdd(c.sess.DBIndex, c.args[1], pairs)
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

func cmdZRem(c *cmdContext) resp.Value {
	n, err := c.d.KS.ZRem(c.sess.DBIndex, c.args[1], c.args[2:])
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

func cmdZRank(c *cmdContext) resp.Value {
	rank, ok, err := c.d.KS.ZRank(c.sess.DBIndex, c.args[1], c.args[2])
	if err != nil {
		return toErrorValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.NewInt(rank)
}

func cmdZScore(c *cmdContext) resp.Value {
	score, ok, err := c.d.KS.ZScore(c.sess.DBIndex, c.args[1], c.args[2])
	if err != nil {
		return toErrorValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.NewBulk(keyspace.FormatScore(score))
}

func cmdZIncrBy(c *cmdContext) resp.Value {
	delta, err := keyspace.ParseScore(c.args[2])
	if err != nil {
		return toErrorValue(err)
	}
	score, err := c.d.KS.ZIncrBy(c.sess.DBIndex, c.args[1], c.args[3], delta)
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewBulk(keyspace.FormatScore(score))
}

func cmdZCard(c *cmdContext) resp.Value {
	n, err := c.d.KS.ZCard(c.sess.DBIndex, c.args[1])
	if err != nil {
		return toErrorValue(err)
	}
	return resp.NewInt(n)
}

func cmdZRange(c *cmdContext) resp.Value {
	start, err := strconv.Atoi(c.args[2])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	stop, err := strconv.Atoi(c.args[3])
	if err != nil {
		return toErrorValue(keyspace.ErrNotInteger)
	}
	members, err := c.d.KS.ZRange(c.sess.DBIndex, c.args[1], start, stop)
	if err != nil {
		return toErrorValue(err)
	}
	vals := make([]resp.Value, len(members))
	for i, m := range members {
		vals[i] = resp.NewBulk(m.Member)
	}
	return resp.NewArray(vals)
}
