package keyspace

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vivekkdagar/redix/internal/blocker"
)

// StreamID is a stream entry ID: a pair (ms, seq) ordered lexicographically
// on (ms, seq) (spec.md §3).
type StreamID struct {
	Ms, Seq uint64
}

func (id StreamID) String() string { return fmt.Sprintf("%d-%d", id.Ms, id.Seq) }

// Less reports whether id sorts strictly before other.
func (id StreamID) Less(other StreamID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

func (id StreamID) isZero() bool { return id.Ms == 0 && id.Seq == 0 }

const maxSeq = math.MaxUint64

// StreamEntry is one stream entry: an ID and an ordered sequence of
// field/value pairs, flattened as alternating strings.
type StreamEntry struct {
	ID     StreamID
	Fields []string
}

// streamValue is the Stream shape: an append-only, ID-ordered entry log
// (spec.md §3). IDs are strictly increasing, enforced at XADD time.
type streamValue struct {
	entries []StreamEntry
	lastID  StreamID
}

func newStreamValue() *streamValue { return &streamValue{} }

// resolveID computes the concrete ID for an XADD spec: "*" (fully auto),
// "ms-*" (auto-seq), or an explicit "ms-seq" (spec.md §4.2).
func (sv *streamValue) resolveID(spec string, nowMs int64) (StreamID, error) {
	if spec == "*" {
		ms := uint64(nowMs)
		if sv.lastID.Ms > ms {
			ms = sv.lastID.Ms
		}
		seq := uint64(0)
		if ms == sv.lastID.Ms {
			seq = sv.lastID.Seq + 1
		}
		return StreamID{Ms: ms, Seq: seq}, nil
	}

	if strings.HasSuffix(spec, "-*") {
		msPart := strings.TrimSuffix(spec, "-*")
		ms, err := strconv.ParseUint(msPart, 10, 64)
		if err != nil {
			return StreamID{}, ErrNotInteger
		}
		var seq uint64
		switch {
		case ms == sv.lastID.Ms:
			seq = sv.lastID.Seq + 1
		case ms == 0:
			seq = 1
		default:
			seq = 0
		}
		return StreamID{Ms: ms, Seq: seq}, nil
	}

	parts := strings.SplitN(spec, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, ErrNotInteger
	}
	seq := uint64(0)
	if len(parts) == 2 {
		seq, err = strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return StreamID{}, ErrNotInteger
		}
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

func (sv *streamValue) append(id StreamID, fields []string) {
	sv.entries = append(sv.entries, StreamEntry{ID: id, Fields: append([]string(nil), fields...)})
	sv.lastID = id
}

// rangeBetween returns entries with low <= id <= high, in ID order.
func (sv *streamValue) rangeBetween(low, high StreamID) []StreamEntry {
	start := sort.Search(len(sv.entries), func(i int) bool { return !sv.entries[i].ID.Less(low) })
	var out []StreamEntry
	for i := start; i < len(sv.entries); i++ {
		e := sv.entries[i]
		if high.Less(e.ID) {
			break
		}
		out = append(out, e)
	}
	if out == nil {
		out = []StreamEntry{}
	}
	return out
}

// after returns entries strictly greater than afterID, in ID order.
func (sv *streamValue) after(afterID StreamID) []StreamEntry {
	idx := sort.Search(len(sv.entries), func(i int) bool { return afterID.Less(sv.entries[i].ID) })
	var out []StreamEntry
	if idx < len(sv.entries) {
		out = append([]StreamEntry(nil), sv.entries[idx:]...)
	}
	return out
}

// ParseStreamBound parses an XRANGE bound: "-" (minimum), "+" (maximum), or
// an ID with a seq defaulting to 0 (low bound) or MAX (high bound) when
// omitted (spec.md §4.2).
func ParseStreamBound(spec string, isLow bool) (StreamID, error) {
	switch spec {
	case "-":
		return StreamID{0, 0}, nil
	case "+":
		return StreamID{math.MaxUint64, math.MaxUint64}, nil
	}
	parts := strings.SplitN(spec, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, ErrNotInteger
	}
	if len(parts) == 2 {
		seq, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return StreamID{}, ErrNotInteger
		}
		return StreamID{Ms: ms, Seq: seq}, nil
	}
	if isLow {
		return StreamID{Ms: ms, Seq: 0}, nil
	}
	return StreamID{Ms: ms, Seq: maxSeq}, nil
}

// ParseStreamAfterID parses an XREAD from-id: a plain "ms-seq" ID (seq
// defaults to 0 if omitted), used as the strict lower exclusive bound.
func ParseStreamAfterID(spec string) (StreamID, error) {
	parts := strings.SplitN(spec, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, ErrNotInteger
	}
	seq := uint64(0)
	if len(parts) == 2 {
		seq, err = strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return StreamID{}, ErrNotInteger
		}
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// XAdd resolves idSpec against key's stream (creating it if absent) and
// appends an entry with fields, wakes any XREAD BLOCK waiters parked on
// key, and returns the resolved ID.
func (ks *Keyspace) XAdd(dbIdx int, key, idSpec string, fields []string) (StreamID, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if ok && r.shape != shapeStream {
		return StreamID{}, ErrWrongType
	}
	if !ok {
		r = newStreamRow()
	}

	id, err := r.stream.resolveID(idSpec, ks.nowMs())
	if err != nil {
		return StreamID{}, err
	}
	if id.isZero() {
		return StreamID{}, ErrStreamIDZero
	}
	if !r.stream.lastID.Less(id) {
		return StreamID{}, ErrStreamID
	}

	r.stream.append(id, fields)
	if !ok {
		ks.db(dbIdx).data[key] = r
	}

	for _, ch := range ks.blocker.WakeAll(dbIdx, key) {
		ch <- blocker.Wake{Key: key, Payload: nil}
	}
	return id, nil
}

// XRange returns entries with lowSpec <= id <= highSpec, in ID order.
func (ks *Keyspace) XRange(dbIdx int, key, lowSpec, highSpec string) ([]StreamEntry, error) {
	low, err := ParseStreamBound(lowSpec, true)
	if err != nil {
		return nil, err
	}
	high, err := ParseStreamBound(highSpec, false)
	if err != nil {
		return nil, err
	}

	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return []StreamEntry{}, nil
	}
	if r.shape != shapeStream {
		return nil, ErrWrongType
	}
	return r.stream.rangeBetween(low, high), nil
}

// XLen returns the number of entries in key's stream, or 0 if absent.
func (ks *Keyspace) XLen(dbIdx int, key string) (int64, error) {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok {
		return 0, nil
	}
	if r.shape != shapeStream {
		return 0, ErrWrongType
	}
	return int64(len(r.stream.entries)), nil
}

// StreamRead is one (key, entries) result of XREAD.
type StreamRead struct {
	Key     string
	Entries []StreamEntry
}

// XReadImmediate returns, for each (key, afterID) pair in order, the
// entries strictly greater than afterID; streams with zero matching
// entries are omitted from the result (spec.md §4.2).
func (ks *Keyspace) XReadImmediate(dbIdx int, keys []string, afterIDs []StreamID) ([]StreamRead, error) {
	return ks.xReadImmediateLocked(dbIdx, keys, afterIDs)
}

func (ks *Keyspace) xReadImmediateLocked(dbIdx int, keys []string, afterIDs []StreamID) ([]StreamRead, error) {
	var out []StreamRead
	for i, key := range keys {
		r, ok := ks.lookupLocked(dbIdx, key)
		if !ok {
			continue
		}
		if r.shape != shapeStream {
			return nil, ErrWrongType
		}
		entries := r.stream.after(afterIDs[i])
		if len(entries) == 0 {
			continue
		}
		out = append(out, StreamRead{Key: key, Entries: entries})
	}
	return out, nil
}

// lastIDLocked resolves the "$" XREAD sentinel to key's current last ID.
// Caller must hold ks.mu.
func (ks *Keyspace) lastIDLocked(dbIdx int, key string) StreamID {
	r, ok := ks.lookupLocked(dbIdx, key)
	if !ok || r.shape != shapeStream {
		return StreamID{}
	}
	return r.stream.lastID
}

// XReadBlock performs an immediate read; if it yields nothing, it parks the
// session on all keys until an XADD to any of them wakes it or timeout
// elapses (0 = forever). cancel supports client-disconnect cancellation.
// dollar marks, per key, whether its id-spec was the "$" sentinel: resolving
// it to the stream's current last ID must happen inside the same critical
// section as the immediate read and the park, or a concurrent XADD between
// resolution and parking would be missed (spec.md §9).
func (ks *Keyspace) XReadBlock(dbIdx int, keys []string, afterIDs []StreamID, dollar []bool, timeout time.Duration, cancel <-chan struct{}) ([]StreamRead, error) {
	ks.mu.Lock()
	resolved := make([]StreamID, len(keys))
	for i, key := range keys {
		if dollar[i] {
			resolved[i] = ks.lastIDLocked(dbIdx, key)
		} else {
			resolved[i] = afterIDs[i]
		}
	}
	afterIDs = resolved

	reads, err := ks.xReadImmediateLocked(dbIdx, keys, afterIDs)
	if err != nil {
		ks.mu.Unlock()
		return nil, err
	}
	if len(reads) > 0 {
		ks.mu.Unlock()
		return reads, nil
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

	for {
		select {
		case <-ch:
			// Re-check and, if still empty, repark under one continuous
			// critical section: releasing the lock between the re-read and
			// the repark would leave a window where a concurrent XADD finds
			// no parked waiter to wake, stranding this reader until its
			// deadline (spec.md §4.3 ordering).
			ks.mu.Lock()
			reads, err := ks.xReadImmediateLocked(dbIdx, keys, afterIDs)
			if err != nil {
				ks.mu.Unlock()
				return nil, err
			}
			if len(reads) > 0 {
				ks.mu.Unlock()
				return reads, nil
			}
			// spurious wake (another stream in the set changed type, or a
			// race with a concurrent Cancel); keep waiting for our deadline.
			id, ch = ks.blocker.Park(dbIdx, keys)
			ks.mu.Unlock()
		case <-timerC:
			ks.mu.Lock()
			ks.blocker.Cancel(dbIdx, id, keys)
			ks.mu.Unlock()
			return nil, nil
		case <-cancel:
			ks.mu.Lock()
			ks.blocker.Cancel(dbIdx, id, keys)
			ks.mu.Unlock()
			return nil, nil
		}
	}
}
