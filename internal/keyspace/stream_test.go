package keyspace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestXAddAutoID(t *testing.T) {
	clock := time.UnixMilli(1000)
	ks := New(1)
	ks.Now = func() time.Time { return clock }

	id, err := ks.XAdd(0, "S", "*", []string{"f", "v"})
	require.NoError(t, err)
	require.Equal(t, "1000-0", id.String())

	id, err = ks.XAdd(0, "S", "*", []string{"f", "v"})
	require.NoError(t, err)
	require.Equal(t, "1000-1", id.String())

	_, err = ks.XAdd(0, "S", "500-0", []string{"f", "v"})
	require.ErrorIs(t, err, ErrStreamID)
}

func TestXAddRejectsZeroZero(t *testing.T) {
	ks := New(1)
	_, err := ks.XAdd(0, "S", "0-0", []string{"f", "v"})
	require.ErrorIs(t, err, ErrStreamIDZero)
}

func TestXAddMonotonicity(t *testing.T) {
	ks := New(1)
	var lastID StreamID
	for i := 0; i < 50; i++ {
		id, err := ks.XAdd(0, "S", "*", []string{"i", "v"})
		require.NoError(t, err)
		require.True(t, lastID.Less(id))
		lastID = id
	}
}

func TestXRangeBounds(t *testing.T) {
	ks := New(1)
	_, _ = ks.XAdd(0, "S", "1-1", []string{"a", "1"})
	_, _ = ks.XAdd(0, "S", "2-1", []string{"a", "2"})
	_, _ = ks.XAdd(0, "S", "3-1", []string{"a", "3"})

	entries, err := ks.XRange(0, "S", "-", "+")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	entries, err = ks.XRange(0, "S", "2", "2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2-1", entries[0].ID.String())
}

func TestXReadOmitsEmptyStreams(t *testing.T) {
	ks := New(1)
	_, _ = ks.XAdd(0, "S1", "1-1", []string{"a", "1"})

	reads, err := ks.XReadImmediate(0, []string{"S1", "S2"}, []StreamID{{0, 0}, {0, 0}})
	require.NoError(t, err)
	require.Len(t, reads, 1)
	require.Equal(t, "S1", reads[0].Key)
}

func TestXReadBlockWake(t *testing.T) {
	ks := New(1)

	var wg sync.WaitGroup
	var reads []StreamRead
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		reads, err = ks.XReadBlock(0, []string{"S"}, []StreamID{{}}, []bool{true}, 0, nil)
		require.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := ks.XAdd(0, "S", "*", []string{"f", "v"})
	require.NoError(t, err)

	wg.Wait()
	require.Len(t, reads, 1)
	require.Equal(t, "S", reads[0].Key)
	require.Len(t, reads[0].Entries, 1)
}

func TestXReadBlockTimeout(t *testing.T) {
	ks := New(1)
	reads, err := ks.XReadBlock(0, []string{"S"}, []StreamID{{0, 0}}, []bool{false}, 30*time.Millisecond, nil)
	require.NoError(t, err)
	require.Nil(t, reads)
}
