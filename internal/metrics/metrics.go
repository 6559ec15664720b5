// Package metrics wraps the Prometheus collectors the server exposes. The
// dispatcher, session hub, and transport update connected/blocked clients,
// commands processed, pub/sub deliveries, and replica count; KeyspaceSize,
// ExpiredKeys, and ReplicaLag are registered but nothing updates them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors this server exposes.
type Registry struct {
	ConnectedClients  prometheus.Gauge
	BlockedClients    prometheus.Gauge
	CommandsProcessed *prometheus.CounterVec
	KeyspaceSize      *prometheus.GaugeVec
	ExpiredKeys       prometheus.Counter
	PubSubDelivered   prometheus.Counter
	ReplicaCount      prometheus.Gauge
	ReplicaLag        *prometheus.GaugeVec
}

// NewRegistry creates the Prometheus collectors, registering them against
// the default registry via promauto the way the teacher's Registry does.
func NewRegistry() *Registry {
	return &Registry{
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "redix_connected_clients",
			Help: "Number of currently connected client sessions",
		}),
		BlockedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "redix_blocked_clients",
			Help: "Number of sessions currently parked on a blocking command",
		}),
		CommandsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "redix_commands_processed_total",
			Help: "Total number of commands processed, by verb",
		}, []string{"command"}),
		KeyspaceSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redix_keyspace_keys",
			Help: "Number of live keys, by logical database index",
		}, []string{"db"}),
		ExpiredKeys: promauto.NewCounter(prometheus.CounterOpts{
			Name: "redix_expired_keys_total",
			Help: "Total number of keys reclaimed by lazy TTL expiration",
		}),
		PubSubDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "redix_pubsub_messages_delivered_total",
			Help: "Total number of PUBLISH deliveries across all channels",
		}),
		ReplicaCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "redix_replicas_connected",
			Help: "Number of replicas currently attached to this master",
		}),
		ReplicaLag: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redix_replica_lag_bytes",
			Help: "Bytes by which each replica's acked offset trails the master offset",
		}, []string{"replica_id"}),
	}
}

// Handler returns an HTTP handler exposing the Prometheus metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
