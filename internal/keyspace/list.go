package keyspace

import (
	"container/list"
	"time"

	"github.com/vivekkdagar/redix/internal/blocker"
)

// listValue is the List shape: an ordered sequence of byte strings with
// efficient push/pop at both ends (spec.md §3).
type listValue struct {
	l *list.List
}

func newListValue() *listValue { return &listValue{l: list.New()} }

func (lv *listValue) len() int { return lv.l.Len() }

// push pushes elements onto the front (left) or back (right) end, each in
// argument order. LPUSH pushes each element as the new head in turn, which
// observably reverses the argument order (spec.md §4.2).
func (lv *listValue) push(left bool, elems []string) {
	for _, e := range elems {
		if left {
			lv.l.PushFront(e)
		} else {
			lv.l.PushBack(e)
		}
	}
}

func (lv *listValue) pop(left bool) (string, bool) {
	var el *list.Element
	if left {
		el = lv.l.Front()
	} else {
		el = lv.l.Back()
	}
	if el == nil {
		return "", false
	}
	lv.l.Remove(el)
	return el.Value.(string), true
}

// slice materializes the list as a []string, only used by range/index ops
// which are not hot-path in this server's expected workloads.
func (lv *listValue) slice() []string {
	out := make([]string, 0, lv.l.Len())
	for el := lv.l.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}

// normalizeIndex applies the shared negative-index normalization rule used
// by LRANGE and ZRANGE (spec.md §4.2):
// i < 0 ? len+i : i, then clamp to [0, len-1].
func normalizeIndex(i, length int) int {
	if i < 0 {
		i = length + i
	}
	if i < 0 {
		i = 0
	}
	if i > length-1 {
		i = length - 1
	}
	return i
}

// Push appends elems to the head (left=true) or tail (left=false) of key's
// list, creating the list if absent, and wakes any BLPOP waiters parked on
// key (spec.md §4.3), handing them elements directly out of the list so the
// handoff is atomic with the push. Returns the resulting list length, or an
// error if key holds a non-list value.
func (ks *Keyspace) Push(dbIdx int, key string, left bool, elems []string) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if ok && r.shape != shapeList {
		return 0, ErrWrongType
	}
	if !ok {
		r = newListRow()
		ks.db(dbIdx).data[key] = r
	}
	r.list.push(left, elems)
	ks.drainListWaiters(dbIdx, key, r)
	return int64(r.list.len()), nil
}

// drainListWaiters hands list elements directly to FIFO-parked BLPOP
// waiters on key until either the list empties or no waiter remains.
// Called with ks.mu held, from Push.
func (ks *Keyspace) drainListWaiters(dbIdx int, key string, r *row) {
	for r.list.len() > 0 {
		ch, ok := ks.blocker.WakeFirst(dbIdx, key)
		if !ok {
			return
		}
		v, _ := r.list.pop(true)
		ch <- blocker.Wake{Key: key, Payload: v}
	}
	ks.deleteIfEmptyLocked(dbIdx, key, r)
}

// Pop removes and returns the head (left=true) or tail element of key's
// list. Returns ok=false if the key is absent or empty.
func (ks *Keyspace) Pop(dbIdx int, key string, left bool) (string, bool, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return "", false, nil
	}
	if r.shape != shapeList {
		return "", false, ErrWrongType
	}
	v, ok := r.list.pop(left)
	if !ok {
		return "", false, nil
	}
	ks.deleteIfEmptyLocked(dbIdx, key, r)
	return v, true, nil
}

// Range returns the inclusive [start,stop] slice of key's list with
// negative-index normalization (spec.md §4.2). Absent key yields an empty
// slice; low > high after clamping also yields an empty slice.
func (ks *Keyspace) Range(dbIdx int, key string, start, stop int) ([]string, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return []string{}, nil
	}
	if r.shape != shapeList {
		return nil, ErrWrongType
	}
	items := r.list.slice()
	n := len(items)
	if n == 0 {
		return []string{}, nil
	}
	lo := normalizeIndex(start, n)
	hi := normalizeIndex(stop, n)
	if lo > hi {
		return []string{}, nil
	}
	return append([]string(nil), items[lo:hi+1]...), nil
}

// Len returns the length of key's list, or 0 if absent.
func (ks *Keyspace) Len(dbIdx int, key string) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return 0, nil
	}
	if r.shape != shapeList {
		return 0, ErrWrongType
	}
	return int64(r.list.len()), nil
}

// Index returns the element at position idx (negative-normalized), or
// ok=false if out of range or the key is absent.
func (ks *Keyspace) Index(dbIdx int, key string, idx int) (string, bool, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return "", false, nil
	}
	if r.shape != shapeList {
		return "", false, ErrWrongType
	}
	items := r.list.slice()
	n := len(items)
	if n == 0 {
		return "", false, nil
	}
	norm := idx
	if norm < 0 {
		norm = n + norm
	}
	if norm < 0 || norm >= n {
		return "", false, nil
	}
	return items[norm], true, nil
}

// SetIndex overwrites the element at position idx (negative-normalized).
func (ks *Keyspace) SetIndex(dbIdx int, key string, idx int, val string) error {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return errNoSuchKey
	}
	if r.shape != shapeList {
		return ErrWrongType
	}
	n := r.list.len()
	norm := idx
	if norm < 0 {
		norm = n + norm
	}
	if norm < 0 || norm >= n {
		return errIndexOutOfRange
	}
	i := 0
	for el := r.list.l.Front(); el != nil; el = el.Next() {
		if i == norm {
			el.Value = val
			return nil
		}
		i++
	}
	return errIndexOutOfRange
}

// BLPop atomically pops from the first non-empty key in keys, or parks the
// calling session on all of them until timeout, as described in
// spec.md §4.3. A zero timeout means wait forever. Closing cancel (e.g. on
// client disconnect) removes the session from the park-set without
// delivering a result.
func (ks *Keyspace) BLPop(keys []string, dbIdx int, timeout time.Duration, cancel <-chan struct{}) (key, val string, ok bool) {
	ks.mu.Lock()
	if k, v, popped := ks.BLPopImmediate(dbIdx, keys); popped {
		ks.mu.Unlock()
		return k, v, true
	}
	id, ch := ks.blocker.Park(dbIdx, keys)
	ks.mu.Unlock()

	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case w := <-ch:
		return w.Key, w.Payload.(string), true
	case <-timerC:
		ks.mu.Lock()
		ks.blocker.Cancel(dbIdx, id, keys)
		ks.mu.Unlock()
		return "", "", false
	case <-cancel:
		ks.mu.Lock()
		ks.blocker.Cancel(dbIdx, id, keys)
		ks.mu.Unlock()
		return "", "", false
	}
}

// BLPopImmediate performs BLPOP's non-blocking fast path only: pop from the
// first listed key with a non-empty list, without parking. Used directly by
// BLPop's initial attempt, and by EXEC (spec.md §9): a blocking command
// queued in a transaction must never suspend, so it runs this check alone
// and reports no-match as a timeout would.
func (ks *Keyspace) BLPopImmediate(dbIdx int, keys []string) (key, val string, ok bool) {
	for _, k := range keys {
		r, present := ks.lookupLocked(dbIdx, k)
		if present && r.shape == shapeList {
			if v, popped := r.list.pop(true); popped {
				ks.deleteIfEmptyLocked(dbIdx, k, r)
				return k, v, true
			}
		}
	}
	return "", "", false
}
