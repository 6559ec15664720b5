package keyspace

// shape tags the variant a Value currently holds. A key has exactly one
// shape at a time (spec.md §3 invariants); there is no inheritance between
// shapes, only a switch on shape in every handler.
type shape int

const (
	shapeString shape = iota + 1
	shapeList
	shapeStream
	shapeSortedSet
)

func (s shape) String() string {
	switch s {
	case shapeString:
		return "string"
	case shapeList:
		return "list"
	case shapeStream:
		return "stream"
	case shapeSortedSet:
		return "zset"
	default:
		return "none"
	}
}

// row is one keyspace entry: a tagged value plus an optional absolute
// expire-at timestamp in milliseconds (0 = no expiry).
type row struct {
	shape     shape
	str       string
	list      *listValue
	stream    *streamValue
	zset      *zsetValue
	expireAtMs int64
}

func newStringRow(s string) *row  { return &row{shape: shapeString, str: s} }
func newListRow() *row            { return &row{shape: shapeList, list: newListValue()} }
func newStreamRow() *row          { return &row{shape: shapeStream, stream: newStreamValue()} }
func newSortedSetRow() *row       { return &row{shape: shapeSortedSet, zset: newZSetValue()} }
