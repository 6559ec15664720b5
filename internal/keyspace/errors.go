package keyspace

import "errors"

// ErrWrongType is returned when a command expects a different value shape
// than the one stored at the key (spec.md §3 invariants, §7 error taxonomy).
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ErrNotInteger signals a string value or argument that failed to parse as
// a signed 64-bit decimal integer.
var ErrNotInteger = errors.New("ERR value is not an integer or out of range")

// ErrNotFloat signals a score/coordinate argument that failed to parse as a
// finite (or infinite, where permitted) 64-bit float.
var ErrNotFloat = errors.New("ERR value is not a valid float")

// ErrStreamID signals an XADD whose resolved entry ID is not strictly
// greater than the stream's last ID, or equal to 0-0.
var ErrStreamID = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")

// ErrStreamIDZero signals an explicit 0-0 XADD ID, which is always rejected.
var ErrStreamIDZero = errors.New("ERR The ID specified in XADD must be greater than 0-0")

// ErrInvalidGeo signals a GEOADD coordinate outside the valid longitude or
// latitude range.
var ErrInvalidGeo = errors.New("ERR invalid longitude,latitude pair")

// errNoSuchKey and errIndexOutOfRange back LSET's two failure modes; they
// are not part of the exported error taxonomy because LSET's reply text
// matches real Redis exactly rather than the generic categories above.
var (
	errNoSuchKey       = errors.New("ERR no such key")
	errIndexOutOfRange = errors.New("ERR index out of range")
)
