package keyspace

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGetExpiry(t *testing.T) {
	clock := time.Unix(0, 0)
	ks := New(1)
	ks.Now = func() time.Time { return clock }

	ks.Set(0, "k", "v", SetOptions{HasTTL: true, TTL: 100 * time.Millisecond})

	v, ok, err := ks.Get(0, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	clock = clock.Add(200 * time.Millisecond)
	_, ok, err = ks.Get(0, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIncr(t *testing.T) {
	ks := New(1)
	n, err := ks.Incr(0, "c")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = ks.Incr(0, "c")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestIncrOnNonIntegerFails(t *testing.T) {
	ks := New(1)
	ks.Set(0, "s", "not-a-number", SetOptions{})
	_, err := ks.Incr(0, "s")
	require.ErrorIs(t, err, ErrNotInteger)
}

func TestIncrOnWrongTypeFails(t *testing.T) {
	ks := New(1)
	_, err := ks.Push(0, "L", true, []string{"a"})
	require.NoError(t, err)
	_, err = ks.Incr(0, "L")
	require.ErrorIs(t, err, ErrWrongType)
}

func TestIncrByOverflowFails(t *testing.T) {
	ks := New(1)
	ks.Set(0, "c", strconv.FormatInt(math.MaxInt64, 10), SetOptions{})
	_, err := ks.IncrBy(0, "c", 1)
	require.ErrorIs(t, err, ErrNotInteger)

	ks.Set(0, "d", strconv.FormatInt(math.MinInt64, 10), SetOptions{})
	_, err = ks.IncrBy(0, "d", -1)
	require.ErrorIs(t, err, ErrNotInteger)
}

func TestGetWrongType(t *testing.T) {
	ks := New(1)
	_, err := ks.Push(0, "L", true, []string{"a"})
	require.NoError(t, err)
	_, _, err = ks.Get(0, "L")
	require.ErrorIs(t, err, ErrWrongType)
}
