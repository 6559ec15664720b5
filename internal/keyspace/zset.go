package keyspace

import (
	"math"
	"sort"
	"strconv"
)

// zsetValue is the SortedSet shape: an injective member->score mapping,
// ordered primarily by score ascending with ties broken by lexicographic
// member order (spec.md §3).
type zsetValue struct {
	scores  map[string]float64
	members []string // kept sorted by (score, member); rebuilt on mutation
}

func newZSetValue() *zsetValue {
	return &zsetValue{scores: make(map[string]float64)}
}

func (z *zsetValue) len() int { return len(z.scores) }

func (z *zsetValue) less(a, b string) bool {
	sa, sb := z.scores[a], z.scores[b]
	if sa != sb {
		return sa < sb
	}
	return a < b
}

// resort rebuilds the ordered member slice. Called after any score change;
// simple and correct, not asymptotically optimal — adequate at the scale
// this server targets (spec.md budget is correctness over a specialized
// skip-list).
func (z *zsetValue) resort() {
	z.members = z.members[:0]
	for m := range z.scores {
		z.members = append(z.members, m)
	}
	sort.Slice(z.members, func(i, j int) bool { return z.less(z.members[i], z.members[j]) })
}

// add sets member's score, returning true if member is newly added (score
// updates to existing members return false per ZADD semantics).
func (z *zsetValue) add(member string, score float64) bool {
	_, existed := z.scores[member]
	z.scores[member] = score
	z.resort()
	return !existed
}

func (z *zsetValue) remove(member string) bool {
	if _, ok := z.scores[member]; !ok {
		return false
	}
	delete(z.scores, member)
	z.resort()
	return true
}

func (z *zsetValue) rank(member string) (int, bool) {
	if _, ok := z.scores[member]; !ok {
		return 0, false
	}
	for i, m := range z.members {
		if m == member {
			return i, true
		}
	}
	return 0, false
}

// ParseScore parses a ZADD score: a finite float, or +/-inf.
func ParseScore(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, ErrNotFloat
	}
	return f, nil
}

// FormatScore renders a float the way ZSCORE/ZINCRBY reply: shortest
// round-trip decimal, with lowercase inf/-inf (spec.md §9).
func FormatScore(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// ZAdd applies score/member pairs to key's sorted set, creating it if
// absent. Returns the count of newly added members.
func (ks *Keyspace) ZAdd(dbIdx int, key string, pairs []ZMember) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if ok && r.shape != shapeSortedSet {
		return 0, ErrWrongType
	}
	if !ok {
		r = newSortedSetRow()
		ks.db(dbIdx).data[key] = r
	}

	var added int64
	for _, p := range pairs {
		if r.zset.add(p.Member, p.Score) {
			added++
		}
	}
	return added, nil
}

// ZMember is a (member, score) pair, the unit ZADD and ZINCRBY operate on.
type ZMember struct {
	Member string
	Score  float64
}

// ZRem removes each listed member if present, emptying key to absent once
// the last member is removed. Returns the removed count.
func (ks *Keyspace) ZRem(dbIdx int, key string, members []string) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return 0, nil
	}
	if r.shape != shapeSortedSet {
		return 0, ErrWrongType
	}
	var n int64
	for _, m := range members {
		if r.zset.remove(m) {
			n++
		}
	}
	ks.deleteIfEmptyLocked(dbIdx, key, r)
	return n, nil
}

// ZRank returns member's 0-based rank under (score asc, member asc), or
// ok=false if absent.
func (ks *Keyspace) ZRank(dbIdx int, key, member string) (int64, bool, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return 0, false, nil
	}
	if r.shape != shapeSortedSet {
		return 0, false, ErrWrongType
	}
	rank, found := r.zset.rank(member)
	if !found {
		return 0, false, nil
	}
	return int64(rank), true, nil
}

// ZScore returns member's raw score (callers render it with FormatScore), or
// ok=false if absent.
func (ks *Keyspace) ZScore(dbIdx int, key, member string) (float64, bool, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return 0, false, nil
	}
	if r.shape != shapeSortedSet {
		return 0, false, ErrWrongType
	}
	s, found := r.zset.scores[member]
	return s, found, nil
}

// ZIncrBy adds delta to member's score (creating member at delta if new)
// and returns the new score.
func (ks *Keyspace) ZIncrBy(dbIdx int, key, member string, delta float64) (float64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if ok && r.shape != shapeSortedSet {
		return 0, ErrWrongType
	}
	if !ok {
		r = newSortedSetRow()
		ks.db(dbIdx).data[key] = r
	}
	newScore := r.zset.scores[member] + delta
	r.zset.add(member, newScore)
	return newScore, nil
}

// ZCard returns the member count of key's sorted set, or 0 if absent.
func (ks *Keyspace) ZCard(dbIdx int, key string) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return 0, nil
	}
	if r.shape != shapeSortedSet {
		return 0, ErrWrongType
	}
	return int64(r.zset.len()), nil
}

// ZRange returns members in (score,member) order over the inclusive
// [start,stop] rank range, with negative-index normalization identical to
// LRANGE (spec.md §4.2).
func (ks *Keyspace) ZRange(dbIdx int, key string, start, stop int) ([]ZMember, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return []ZMember{}, nil
	}
	if r.shape != shapeSortedSet {
		return nil, ErrWrongType
	}
	n := len(r.zset.members)
	if n == 0 {
		return []ZMember{}, nil
	}
	lo := normalizeIndex(start, n)
	hi := normalizeIndex(stop, n)
	if lo > hi {
		return []ZMember{}, nil
	}
	out := make([]ZMember, 0, hi-lo+1)
	for _, m := range r.zset.members[lo : hi+1] {
		out = append(out, ZMember{Member: m, Score: r.zset.scores[m]})
	}
	return out, nil
}

// ZSetSnapshot returns a defensive copy of all (member, score) pairs in
// key's sorted set, ordered as stored — used by GEOSEARCH's full scan.
func (ks *Keyspace) ZSetSnapshot(dbIdx int, key string) ([]ZMember, error) {
	return ks.ZRange(dbIdx, key, 0, -1)
}
