package keyspace

import (
	"github.com/vivekkdagar/redix/internal/keyspace/geo"
)

// GeoMember is one GEOADD argument triple.
type GeoMember struct {
	Lon, Lat float64
	Member   string
}

// GeoAdd encodes each member's coordinates as a Morton-interleave score and
// ZADDs it into key's underlying sorted set (spec.md §4.2).
func (ks *Keyspace) GeoAdd(dbIdx int, key string, members []GeoMember) (int64, error) {
	pairs := make([]ZMember, 0, len(members))
	for _, m := range members {
		score, err := geo.EncodeScore(m.Lon, m.Lat)
		if err != nil {
			return 0, ErrInvalidGeo
		}
		pairs = append(pairs, ZMember{Member: m.Member, Score: score})
	}
	return ks.ZAdd(dbIdx, key, pairs)
}

// GeoPos decodes member's score back to (lon, lat); ok=false if member is
// absent from key's sorted set.
func (ks *Keyspace) GeoPos(dbIdx int, key, member string) (lon, lat float64, ok bool, err error) {
	score, found, err := ks.ZScore(dbIdx, key, member)
	if err != nil || !found {
		return 0, 0, false, err
	}
	lon, lat = geo.DecodeScore(score)
	return lon, lat, true, nil
}

// GeoDist returns the distance between member1 and member2 in unit;
// ok=false if either member is absent.
func (ks *Keyspace) GeoDist(dbIdx int, key, member1, member2, unit string) (float64, bool, error) {
	lon1, lat1, ok1, err := ks.GeoPos(dbIdx, key, member1)
	if err != nil || !ok1 {
		return 0, false, err
	}
	lon2, lat2, ok2, err := ks.GeoPos(dbIdx, key, member2)
	if err != nil || !ok2 {
		return 0, false, err
	}
	meters := geo.Haversine(lon1, lat1, lon2, lat2)
	d, err := geo.ConvertMeters(meters, unit)
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}

// GeoSearchResult is one member within a GEOSEARCH radius.
type GeoSearchResult struct {
	Member       string
	DistanceUnit float64
}

// GeoSearch performs a full scan over key's sorted set (no spatial index
// required for correctness, spec.md §4.2), returning members within radius
// of (lon, lat) in unit.
func (ks *Keyspace) GeoSearch(dbIdx int, key string, lon, lat, radius float64, unit string) ([]GeoSearchResult, error) {
	all, err := ks.ZSetSnapshot(dbIdx, key)
	if err != nil {
		return nil, err
	}
	radiusMeters, err := geo.ToMeters(radius, unit)
	if err != nil {
		return nil, err
	}
	var out []GeoSearchResult
	for _, m := range all {
		mLon, mLat := geo.DecodeScore(m.Score)
		meters := geo.Haversine(lon, lat, mLon, mLat)
		if meters > radiusMeters {
			continue
		}
		d, err := geo.ConvertMeters(meters, unit)
		if err != nil {
			return nil, err
		}
		out = append(out, GeoSearchResult{Member: m.Member, DistanceUnit: d})
	}
	return out, nil
}
