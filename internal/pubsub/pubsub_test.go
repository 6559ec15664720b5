package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id       uint64
	received []string
}

func (f *fakeSub) ID() uint64 { return f.id }
func (f *fakeSub) Deliver(channel, payload string) {
	f.received = append(f.received, channel+":"+payload)
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	h := NewHub()
	a := &fakeSub{id: 1}
	b := &fakeSub{id: 2}

	require.Equal(t, 1, h.Subscribe("ch", a))
	require.Equal(t, 2, h.Subscribe("ch", b))

	n := h.Publish("ch", "hello")
	require.Equal(t, 2, n)
	require.Equal(t, []string{"ch:hello"}, a.received)
	require.Equal(t, []string{"ch:hello"}, b.received)
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	h := NewHub()
	a := &fakeSub{id: 1}
	h.Subscribe("ch", a)
	remaining := h.Unsubscribe("ch", a)
	require.Equal(t, 0, remaining)
	require.Equal(t, 0, h.Publish("ch", "x"))
}

func TestUnsubscribeAllAcrossChannels(t *testing.T) {
	h := NewHub()
	a := &fakeSub{id: 1}
	h.Subscribe("ch1", a)
	h.Subscribe("ch2", a)

	left := h.UnsubscribeAll(a)
	require.ElementsMatch(t, []string{"ch1", "ch2"}, left)
	require.Equal(t, 0, h.ChannelCount())
}

func TestSubscribeIdempotent(t *testing.T) {
	h := NewHub()
	a := &fakeSub{id: 1}
	require.Equal(t, 1, h.Subscribe("ch", a))
	require.Equal(t, 1, h.Subscribe("ch", a))
}
