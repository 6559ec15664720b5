package keyspace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLPushOrdering(t *testing.T) {
	ks := New(1)
	n, err := ks.Push(0, "L", true, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	vals, err := ks.Range(0, "L", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, vals)
}

func TestRPushOrdering(t *testing.T) {
	ks := New(1)
	_, err := ks.Push(0, "L", false, []string{"a", "b", "c"})
	require.NoError(t, err)
	vals, err := ks.Range(0, "L", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, vals)
}

func TestLRangeNegativeIndices(t *testing.T) {
	ks := New(1)
	_, _ = ks.Push(0, "L", false, []string{"a", "b", "c", "d"})
	vals, err := ks.Range(0, "L", -2, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d"}, vals)
}

func TestLRangeEmptyOnAbsentKey(t *testing.T) {
	ks := New(1)
	vals, err := ks.Range(0, "nope", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{}, vals)
}

func TestListEmptiesToAbsentKey(t *testing.T) {
	ks := New(1)
	_, _ = ks.Push(0, "L", true, []string{"only"})
	_, ok, err := ks.Pop(0, "L", true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "none", ks.Type(0, "L"))
}

func TestBLPopImmediatePop(t *testing.T) {
	ks := New(1)
	_, _ = ks.Push(0, "L", false, []string{"x"})
	key, val, ok := ks.BLPop([]string{"L"}, 0, 0, nil)
	require.True(t, ok)
	require.Equal(t, "L", key)
	require.Equal(t, "x", val)
}

func TestBLPopWake(t *testing.T) {
	ks := New(1)
	var wg sync.WaitGroup
	var key, val string
	var ok bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		key, val, ok = ks.BLPop([]string{"L"}, 0, 0, nil)
	}()

	// Give the blocking goroutine time to park before pushing.
	time.Sleep(20 * time.Millisecond)
	n, err := ks.Push(0, "L", false, []string{"x"})
	require.NoError(t, err)
	require.Equal(t, int64(0), n) // element was handed directly to the waiter, never sat in the list

	wg.Wait()
	require.True(t, ok)
	require.Equal(t, "L", key)
	require.Equal(t, "x", val)
}

func TestBLPopTimeout(t *testing.T) {
	ks := New(1)
	_, _, ok := ks.BLPop([]string{"L"}, 0, 30*time.Millisecond, nil)
	require.False(t, ok)
}

func TestBLPopFIFOOrdering(t *testing.T) {
	ks := New(1)
	results := make(chan string, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, v, _ := ks.BLPop([]string{"L"}, 0, 0, nil)
		results <- "first:" + v
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		_, v, _ := ks.BLPop([]string{"L"}, 0, 0, nil)
		results <- "second:" + v
	}()
	time.Sleep(10 * time.Millisecond)

	_, _ = ks.Push(0, "L", false, []string{"one"})
	_, _ = ks.Push(0, "L", false, []string{"two"})
	wg.Wait()
	close(results)

	var got []string
	for r := range results {
		got = append(got, r)
	}
	require.ElementsMatch(t, []string{"first:one", "second:two"}, got)
}

func TestLIndexAndSet(t *testing.T) {
	ks := New(1)
	_, _ = ks.Push(0, "L", false, []string{"a", "b", "c"})
	v, ok, err := ks.Index(0, "L", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", v)

	require.NoError(t, ks.SetIndex(0, "L", 1, "B"))
	v, _, _ = ks.Index(0, "L", 1)
	require.Equal(t, "B", v)
}
