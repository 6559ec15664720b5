package keyspace

import (
	"math"
	"strconv"
	"time"
)

// SetOptions carries SET's optional modifiers (spec.md §4.2).
type SetOptions struct {
	TTL    time.Duration // EX/PX delta from now; applied only when HasTTL is set
	HasTTL bool          // false: the stored key has no expiry, even if it had one before
}

// Set stores val at key, optionally recording an expire-at computed from
// now+opts.TTL.
func (ks *Keyspace) Set(dbIdx int, key, val string, opts SetOptions) {
	r := newStringRow(val)
	if opts.HasTTL {
		r.expireAtMs = ks.nowMs() + opts.TTL.Milliseconds()
	}
	ks.db(dbIdx).data[key] = r
}

// Get returns key's string value, or ok=false if absent or expired.
func (ks *Keyspace) Get(dbIdx int, key string) (string, bool, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return "", false, nil
	}
	if r.shape != shapeString {
		return "", false, ErrWrongType
	}
	return r.str, true, nil
}

// Incr parses key's current bytes as a signed 64-bit decimal integer,
// increments by one, and stores the result formatted without leading
// zeros, creating the key at "0" first if absent (spec.md §4.2).
func (ks *Keyspace) Incr(dbIdx int, key string) (int64, error) {
	return ks.IncrBy(dbIdx, key, 1)
}

// IncrBy increments key's integer value by delta.
func (ks *Keyspace) IncrBy(dbIdx int, key string, delta int64) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if ok && r.shape != shapeString {
		return 0, ErrWrongType
	}

	var cur int64
	if ok {
		n, err := strconv.ParseInt(r.str, 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		cur = n
	}

	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, ErrNotInteger
	}
	next := cur + delta
	if !ok {
		r = newStringRow("")
		ks.db(dbIdx).data[key] = r
	}
	r.str = strconv.FormatInt(next, 10)
	return next, nil
}
