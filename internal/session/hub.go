package session

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vivekkdagar/redix/internal/metrics"
)

// Hub is the process-wide session registry: every connected client gets a
// Session on accept and is removed on disconnect. Adapted from the teacher's
// sharded-sync.Map connection hub (internal/session/hub.go in the teacher),
// dropping its broadcast-queue/worker-pool machinery — pub/sub fan-out here
// is channel-scoped (internal/pubsub.Hub), not a broadcast-to-everyone
// primitive, so Hub's only job is bookkeeping: registering sessions, keeping
// the connected-clients gauge current, and answering "how many clients are
// connected" (ClientCount).
type Hub struct {
	shards  []shard
	metrics *metrics.Registry
	conns   prometheus.Gauge
}

type shard struct {
	sessions sync.Map // map[uint64]*Session
	count    int32
}

const shardCount = 64

// NewHub builds an empty session registry.
func NewHub(metricsRegistry *metrics.Registry) *Hub {
	h := &Hub{
		shards:  make([]shard, shardCount),
		metrics: metricsRegistry,
	}
	if metricsRegistry != nil {
		h.conns = metricsRegistry.ConnectedClients
	}
	return h
}

// Register allocates a new Session and tracks it in the registry.
func (h *Hub) Register() *Session {
	sess := New()
	shard := h.pickShard(sess.ID())
	shard.sessions.Store(sess.ID(), sess)
	atomic.AddInt32(&shard.count, 1)
	if h.conns != nil {
		h.conns.Inc()
	}
	return sess
}

// Unregister removes sess from the registry. The connection's own
// goroutines exit via sess.Done, which the transport closes separately.
func (h *Hub) Unregister(sess *Session) {
	if sess == nil {
		return
	}
	shard := h.pickShard(sess.ID())
	if _, ok := shard.sessions.LoadAndDelete(sess.ID()); ok {
		atomic.AddInt32(&shard.count, -1)
		if h.conns != nil {
			h.conns.Dec()
		}
	}
}

// ClientCount returns the total number of tracked sessions.
func (h *Hub) ClientCount() int {
	var total int32
	for idx := range h.shards {
		total += atomic.LoadInt32(&h.shards[idx].count)
	}
	return int(total)
}

func (h *Hub) pickShard(id uint64) *shard {
	return &h.shards[int(id)%len(h.shards)]
}
