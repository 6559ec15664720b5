package keyspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeoAddAndDist(t *testing.T) {
	ks := New(1)
	n, err := ks.GeoAdd(0, "G", []GeoMember{{Lon: 13.361389, Lat: 38.115556, Member: "Palermo"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	d, ok, err := ks.GeoDist(0, "G", "Palermo", "Palermo", "km")
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 0, d, 1e-6)
}

func TestGeoPosMissingMember(t *testing.T) {
	ks := New(1)
	_, err := ks.GeoAdd(0, "G", []GeoMember{{Lon: 13, Lat: 38, Member: "Palermo"}})
	require.NoError(t, err)
	_, _, ok, err := ks.GeoPos(0, "G", "Missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGeoAddRejectsOutOfRange(t *testing.T) {
	ks := New(1)
	_, err := ks.GeoAdd(0, "G", []GeoMember{{Lon: 200, Lat: 38, Member: "bad"}})
	require.ErrorIs(t, err, ErrInvalidGeo)
}

func TestGeoSearchByRadius(t *testing.T) {
	ks := New(1)
	_, err := ks.GeoAdd(0, "G", []GeoMember{
		{Lon: 13.361389, Lat: 38.115556, Member: "Palermo"},
		{Lon: 15.087269, Lat: 37.502669, Member: "Catania"},
	})
	require.NoError(t, err)

	// Catania lies ~56 km from (15, 37) and Palermo ~190 km, so a 100 km
	// radius holds only Catania.
	results, err := ks.GeoSearch(0, "G", 15, 37, 100, "km")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Catania", results[0].Member)
}
