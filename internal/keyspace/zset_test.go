package keyspace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZAddRankTies(t *testing.T) {
	ks := New(1)
	n, err := ks.ZAdd(0, "Z", []ZMember{{Member: "b", Score: 1}, {Member: "a", Score: 1}, {Member: "c", Score: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	members, err := ks.ZRange(0, "Z", 0, -1)
	require.NoError(t, err)
	got := make([]string, len(members))
	for i, m := range members {
		got[i] = m.Member
	}
	require.Equal(t, []string{"a", "b", "c"}, got)

	rank, ok, err := ks.ZRank(0, "Z", "c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), rank)
}

func TestZAddScoreUpdateNotCounted(t *testing.T) {
	ks := New(1)
	n, _ := ks.ZAdd(0, "Z", []ZMember{{Member: "a", Score: 1}})
	require.Equal(t, int64(1), n)
	n, _ = ks.ZAdd(0, "Z", []ZMember{{Member: "a", Score: 5}})
	require.Equal(t, int64(0), n)

	score, ok, err := ks.ZScore(0, "Z", "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5.0, score)
}

func TestZRemEmptiesKey(t *testing.T) {
	ks := New(1)
	_, _ = ks.ZAdd(0, "Z", []ZMember{{Member: "a", Score: 1}})
	n, err := ks.ZRem(0, "Z", []string{"a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, "none", ks.Type(0, "Z"))
}

func TestFormatScore(t *testing.T) {
	require.Equal(t, "0", FormatScore(0))
	require.Equal(t, "inf", FormatScore(math.Inf(1)))
	require.Equal(t, "-inf", FormatScore(math.Inf(-1)))
	require.Equal(t, "1.5", FormatScore(1.5))
}

func TestZScoreAbsentMember(t *testing.T) {
	ks := New(1)
	_, ok, err := ks.ZScore(0, "Z", "nope")
	require.NoError(t, err)
	require.False(t, ok)
}
