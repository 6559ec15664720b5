// Package pubsub implements channel -> subscriber fan-out (spec.md §4.4).
// PUBLISH iterates a channel's subscribers in subscription order and
// enqueues a message frame on each subscriber's outbox; the outbox drain to
// the socket happens outside the lock, in the transport layer.
//
// Hub is not self-synchronizing: spec.md §5 requires "PubSub delivery
// enqueues to per-session outboxes under the same lock" as keyspace
// mutations, so every Hub method here assumes the caller already holds the
// dispatcher's single process-wide command lock — the same discipline
// internal/blocker.Table uses.
package pubsub

// Subscriber is anything that can receive a published message. Session
// implements this by wrapping its outbound frame channel.
type Subscriber interface {
	ID() uint64
	Deliver(channel string, payload string)
}

// Hub is the process-wide channel registry.
type Hub struct {
	channels map[string][]Subscriber
}

// NewHub builds an empty pub/sub hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string][]Subscriber)}
}

// Subscribe adds sub to channel's subscriber list if not already present,
// preserving subscription order, and returns the channel's new subscriber
// count.
func (h *Hub) Subscribe(channel string, sub Subscriber) int {
	for _, s := range h.channels[channel] {
		if s.ID() == sub.ID() {
			return len(h.channels[channel])
		}
	}
	h.channels[channel] = append(h.channels[channel], sub)
	return len(h.channels[channel])
}

// Unsubscribe removes sub from channel, returning the channel's remaining
// subscriber count.
func (h *Hub) Unsubscribe(channel string, sub Subscriber) int {
	lst := h.channels[channel]
	for i, s := range lst {
		if s.ID() == sub.ID() {
			h.channels[channel] = append(lst[:i], lst[i+1:]...)
			break
		}
	}
	remaining := len(h.channels[channel])
	if remaining == 0 {
		delete(h.channels, channel)
	}
	return remaining
}

// UnsubscribeAll removes sub from every channel it is subscribed to,
// returning the list of channels it was removed from — used when a
// connection drops while still subscribed.
func (h *Hub) UnsubscribeAll(sub Subscriber) []string {
	var left []string
	for ch, lst := range h.channels {
		for i, s := range lst {
			if s.ID() == sub.ID() {
				h.channels[ch] = append(lst[:i], lst[i+1:]...)
				left = append(left, ch)
				break
			}
		}
		if len(h.channels[ch]) == 0 {
			delete(h.channels, ch)
		}
	}
	return left
}

// Publish delivers payload to every subscriber of channel, in subscription
// order, and returns the subscriber count (spec.md §4.4). Called under the
// dispatcher's command lock, Publish is linearized against every keyspace
// write: a subscriber that subscribed before a PUBLISH commits is
// guaranteed to receive it.
func (h *Hub) Publish(channel, payload string) int {
	subs := h.channels[channel]
	for _, s := range subs {
		s.Deliver(channel, payload)
	}
	return len(subs)
}

// ChannelCount returns the number of channels with at least one subscriber,
// for metrics/INFO.
func (h *Hub) ChannelCount() int {
	return len(h.channels)
}
