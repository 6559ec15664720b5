package dispatcher

import (
	"github.com/vivekkdagar/redix/internal/resp"
	"github.com/vivekkdagar/redix/internal/session"
)

// noReply is the sentinel the transport's write loop recognizes as "the
// handler already pushed its own frames to the session outbox" — needed for
// SUBSCRIBE/UNSUBSCRIBE, which reply once per named channel rather than
// once per command (spec.md §4.4).
var noReply = resp.Value{}

func cmdSubscribe(c *cmdContext) resp.Value {
	for _, ch := range c.args[1:] {
		c.sess.Channels[ch] = true
		c.d.PubSub.Subscribe(ch, c.sess)
		c.sess.Outbox <- resp.NewArray([]resp.Value{
			resp.NewBulk("subscribe"),
			resp.NewBulk(ch),
			resp.NewInt(int64(len(c.sess.Channels))),
		})
	}
	if c.sess.IsSubscribed() {
		c.sess.Mode = session.Subscribed
	}
	return noReply
}

func cmdUnsubscribe(c *cmdContext) resp.Value {
	channels := c.args[1:]
	if len(channels) == 0 {
		for ch := range c.sess.Channels {
			channels = append(channels, ch)
		}
	}
	for _, ch := range channels {
		c.d.PubSub.Unsubscribe(ch, c.sess)
		delete(c.sess.Channels, ch)
		c.sess.Outbox <- resp.NewArray([]resp.Value{
			resp.NewBulk("unsubscribe"),
			resp.NewBulk(ch),
			resp.NewInt(int64(len(c.sess.Channels))),
		})
	}
	if !c.sess.IsSubscribed() {
		c.sess.Mode = session.Normal
	}
	return noReply
}

func cmdPublish(c *cmdContext) resp.Value {
	n := c.d.PubSub.Publish(c.args[1], c.args[2])
	if c.d.Metrics != nil && n > 0 {
		c.d.Metrics.PubSubDelivered.Add(float64(n))
	}
	return resp.NewInt(int64(n))
}
