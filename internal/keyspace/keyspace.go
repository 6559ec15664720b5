// Package keyspace implements the multi-type, TTL-aware key/value store at
// the heart of the server: strings, lists, streams, and sorted sets, each
// reached through one atomic operation per command verb (spec.md §4.2).
package keyspace

import (
	"sync"
	"time"

	"github.com/vivekkdagar/redix/internal/blocker"
)

// database is one numbered keyspace (SELECT-able in real Redis; this server
// exposes db 0 by default through Session.DBIndex).
type database struct {
	data map[string]*row
}

func newDatabase() *database {
	return &database{data: make(map[string]*row)}
}

// Keyspace is the process-wide, mutex-guarded store. One instance is
// constructed at startup and threaded through the dispatcher as an explicit
// dependency (spec.md §9 design notes) rather than reached via a global.
type Keyspace struct {
	mu      sync.Mutex
	dbs     []*database
	blocker *blocker.Table

	// Now supplies the wall clock used for expiry and stream auto-IDs; it is
	// overridden in tests to exercise deterministic timing, the same way
	// miniredis's effectiveNow hook works.
	Now func() time.Time
}

// New builds a Keyspace with the given number of logical databases.
func New(numDBs int) *Keyspace {
	if numDBs <= 0 {
		numDBs = 16
	}
	dbs := make([]*database, numDBs)
	for i := range dbs {
		dbs[i] = newDatabase()
	}
	return &Keyspace{
		dbs:     dbs,
		blocker: blocker.NewTable(),
		Now:     time.Now,
	}
}

func (ks *Keyspace) nowMs() int64 { return ks.Now().UnixMilli() }

// db returns the database at idx, clamping defensively since Session
// validates db indices before they reach the keyspace.
func (ks *Keyspace) db(idx int) *database {
	if idx < 0 || idx >= len(ks.dbs) {
		idx = 0
	}
	return ks.dbs[idx]
}

// lookupLocked returns the row at key if present and not expired. An expired
// row is deleted in place (lazy expiration, spec.md §4.2). Caller must hold
// ks.mu.
func (ks *Keyspace) lookupLocked(dbIdx int, key string) (*row, bool) {
	d := ks.db(dbIdx)
	r, ok := d.data[key]
	if !ok {
		return nil, false
	}
	if r.expireAtMs > 0 && ks.nowMs() >= r.expireAtMs {
		delete(d.data, key)
		return nil, false
	}
	return r, true
}

// deleteIfEmptyLocked removes a row once its collection becomes empty: an
// invariant shared by lists, streams, and sorted sets (spec.md §3).
func (ks *Keyspace) deleteIfEmptyLocked(dbIdx int, key string, r *row) {
	empty := false
	switch r.shape {
	case shapeList:
		empty = r.list.len() == 0
	case shapeStream:
		empty = len(r.stream.entries) == 0
	case shapeSortedSet:
		empty = r.zset.len() == 0
	}
	if empty {
		delete(ks.db(dbIdx).data, key)
	}
}

// Del removes each listed key if present, returning the count removed.
// Assumes the caller holds ks.mu (the dispatcher locks once per command,
// spec.md §5) — as do all Keyspace methods below except BLPop, XReadBlock,
// DBSize, Lock, and Unlock, which manage the mutex themselves.
func (ks *Keyspace) Del(dbIdx int, keys []string) int64 {
	var n int64
	for _, k := range keys {
		if _, ok := ks.lookupLocked(dbIdx, k); ok {
			delete(ks.db(dbIdx).data, k)
			n++
		}
	}
	return n
}

// Exists counts how many of the listed keys are present (duplicates counted
// once per occurrence in the argument list, matching real Redis EXISTS).
func (ks *Keyspace) Exists(dbIdx int, keys []string) int64 {
	var n int64
	for _, k := range keys {
		if _, ok := ks.lookupLocked(dbIdx, k); ok {
			n++
		}
	}
	return n
}

// Type returns the shape name of key, or "none" if absent.
func (ks *Keyspace) Type(dbIdx int, key string) string {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return "none"
	}
	return r.shape.String()
}

// Expire sets key's expire-at to now+ttl. Returns false if key is absent.
func (ks *Keyspace) Expire(dbIdx int, key string, ttl time.Duration) bool {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return false
	}
	r.expireAtMs = ks.nowMs() + ttl.Milliseconds()
	return true
}

// ExpireAt sets key's expire-at to an absolute millisecond timestamp.
func (ks *Keyspace) ExpireAt(dbIdx int, key string, atMs int64) bool {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return false
	}
	r.expireAtMs = atMs
	return true
}

// PTTL returns the remaining TTL in milliseconds: -2 if absent, -1 if no
// expiry is set, else the remaining duration.
func (ks *Keyspace) PTTL(dbIdx int, key string) int64 {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return -2
	}
	if r.expireAtMs == 0 {
		return -1
	}
	remaining := r.expireAtMs - ks.nowMs()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Persist removes key's expiry, if any. Returns true if an expiry was
// cleared.
func (ks *Keyspace) Persist(dbIdx int, key string) bool {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok || r.expireAtMs == 0 {
		return false
	}
	r.expireAtMs = 0
	return true
}

// Keys returns all present (non-expired) keys matching the glob pattern
// (spec.md §4.2). Expired rows encountered during the scan are reclaimed.
func (ks *Keyspace) Keys(dbIdx int, pattern string) []string {
	d := ks.db(dbIdx)
	var out []string
	for k := range d.data {
		if _, ok := ks.lookupLocked(dbIdx, k); !ok {
			continue
		}
		if matchGlob(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// DBSize returns the number of live (non-expired) keys in dbIdx. No code in
// the server calls it; the metrics keyspace-size gauge is not fed from it.
func (ks *Keyspace) DBSize(dbIdx int) int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	d := ks.db(dbIdx)
	n := 0
	for k := range d.data {
		if _, ok := ks.lookupLocked(dbIdx, k); ok {
			n++
		}
	}
	return n
}

// NumDBs reports the configured logical database count.
func (ks *Keyspace) NumDBs() int { return len(ks.dbs) }

// Lock and Unlock expose the keyspace's single process-wide mutex. The
// dispatcher acquires it once per command (or once for an entire MULTI/EXEC
// batch) before calling into any Keyspace, Blocker, or PubSub method — all
// of which assume the lock is already held (spec.md §5). BLPop and
// XReadBlock are the two exceptions: as suspension points they manage
// ks.mu themselves, releasing it while parked.
func (ks *Keyspace) Lock()   { ks.mu.Lock() }
func (ks *Keyspace) Unlock() { ks.mu.Unlock() }
