// Package blocker implements the park-set that suspends sessions waiting on
// list/stream events (BLPOP, XREAD BLOCK) with optional deadlines
// (spec.md §4.3).
//
// Table is a plain data structure, not a concurrent one: every method
// assumes the caller already holds the keyspace's single process-wide
// mutex (spec.md §5 — "A single process-wide mutex serializes every
// keyspace and blocker mutation"). Parking, draining on a mutation, and
// cancellation on timeout/disconnect must each happen inside that lock; the
// only thing that happens outside the lock is the parked goroutine's
// select on the channel Park returns.
package blocker

// Wake is the message handed to a parked waiter: either a value delivered
// by a draining mutation, or a bare signal (Payload == nil) telling the
// waiter to re-check its own predicate (used for XREAD BLOCK, where many
// waiters may all be satisfied by the same new entries without any one of
// them "consuming" the wake).
type Wake struct {
	Key     string
	Payload any
}

type waiter struct {
	id   uint64
	keys []string
	ch   chan Wake
}

// Table holds, per logical database, the key -> FIFO-ordered waiter list.
type Table struct {
	nextID  uint64
	waiting map[int]map[string][]*waiter
}

// NewTable builds an empty park-set.
func NewTable() *Table {
	return &Table{waiting: make(map[int]map[string][]*waiter)}
}

// Park registers the calling session as waiting on all of keys in db dbIdx.
// It returns an id (for later Cancel) and a receive-only channel that
// receives exactly one Wake when satisfied — by a drain operation sending
// directly, or never, in which case the caller's own deadline/ctx governs
// timeout.
func (t *Table) Park(dbIdx int, keys []string) (id uint64, ch <-chan Wake) {
	t.nextID++
	w := &waiter{id: t.nextID, keys: append([]string(nil), keys...), ch: make(chan Wake, 1)}
	byKey := t.dbMap(dbIdx)
	for _, k := range keys {
		byKey[k] = append(byKey[k], w)
	}
	return w.id, w.ch
}

func (t *Table) dbMap(dbIdx int) map[string][]*waiter {
	m, ok := t.waiting[dbIdx]
	if !ok {
		m = make(map[string][]*waiter)
		t.waiting[dbIdx] = m
	}
	return m
}

// Cancel removes a parked waiter from every key it was registered under.
// Safe to call even if the waiter has already been drained (no-op then).
func (t *Table) Cancel(dbIdx int, id uint64, keys []string) {
	byKey, ok := t.waiting[dbIdx]
	if !ok {
		return
	}
	for _, k := range keys {
		lst := byKey[k]
		for i, w := range lst {
			if w.id == id {
				byKey[k] = append(lst[:i], lst[i+1:]...)
				break
			}
		}
		if len(byKey[k]) == 0 {
			delete(byKey, k)
		}
	}
}

// WakeFirst removes and returns the longest-waiting waiter parked on key in
// db dbIdx (FIFO, spec.md §4.3), along with its send channel, so the caller
// can hand it exactly one value — used when a mutation can satisfy at most
// one waiter per produced element (LPUSH/RPUSH).
func (t *Table) WakeFirst(dbIdx int, key string) (chan<- Wake, bool) {
	byKey, ok := t.waiting[dbIdx]
	if !ok {
		return nil, false
	}
	lst := byKey[key]
	if len(lst) == 0 {
		return nil, false
	}
	w := lst[0]
	byKey[key] = lst[1:]
	if len(byKey[key]) == 0 {
		delete(byKey, key)
	}
	t.removeFromOtherKeys(dbIdx, w, key)
	return w.ch, true
}

// WakeAll removes and returns the send channels of every waiter parked on
// key in db dbIdx — used when a mutation (XADD) can satisfy all waiters at
// once without consuming anything (XREAD BLOCK).
func (t *Table) WakeAll(dbIdx int, key string) []chan<- Wake {
	byKey, ok := t.waiting[dbIdx]
	if !ok {
		return nil
	}
	lst := byKey[key]
	if len(lst) == 0 {
		return nil
	}
	delete(byKey, key)
	chans := make([]chan<- Wake, len(lst))
	for i, w := range lst {
		chans[i] = w.ch
		t.removeFromOtherKeys(dbIdx, w, key)
	}
	return chans
}

// removeFromOtherKeys drops w from every key list besides excludeKey, since
// a waiter parked on multiple keys (BLPOP k1 k2) must be fully removed once
// woken from any one of them.
func (t *Table) removeFromOtherKeys(dbIdx int, w *waiter, excludeKey string) {
	byKey := t.waiting[dbIdx]
	for _, k := range w.keys {
		if k == excludeKey {
			continue
		}
		lst := byKey[k]
		for i, cand := range lst {
			if cand.id == w.id {
				byKey[k] = append(lst[:i], lst[i+1:]...)
				break
			}
		}
		if len(byKey[k]) == 0 {
			delete(byKey, k)
		}
	}
}

// Count returns the number of distinct waiters parked on key, for metrics.
func (t *Table) Count(dbIdx int, key string) int {
	byKey, ok := t.waiting[dbIdx]
	if !ok {
		return 0
	}
	return len(byKey[key])
}
