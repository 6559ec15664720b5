package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	score, err := EncodeScore(13.361389, 38.115556)
	require.NoError(t, err)

	lon, lat := DecodeScore(score)
	require.InDelta(t, 13.361389, lon, 1e-5)
	require.InDelta(t, 38.115556, lat, 1e-5)
}

func TestEncodeOutOfRange(t *testing.T) {
	_, err := EncodeScore(200, 38)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = EncodeScore(13, 90)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestHaversineZeroForSamePoint(t *testing.T) {
	d := Haversine(13.361389, 38.115556, 13.361389, 38.115556)
	require.InDelta(t, 0, d, 1e-6)
}

func TestHaversineKnownDistance(t *testing.T) {
	// Palermo to Catania, real Redis's own GEODIST example (~166.27 km).
	d := Haversine(13.361389, 38.115556, 15.087269, 37.502669)
	km, err := ConvertMeters(d, "km")
	require.NoError(t, err)
	require.InDelta(t, 166.27, km, 1)
}

func TestConvertMetersUnits(t *testing.T) {
	km, err := ConvertMeters(1000, "km")
	require.NoError(t, err)
	require.Equal(t, 1.0, km)

	_, err = ConvertMeters(1000, "parsec")
	require.Error(t, err)
}

func TestToMetersInversesConvertMeters(t *testing.T) {
	v, err := ToMeters(1, "km")
	require.NoError(t, err)
	require.Equal(t, 1000.0, v)
}

func TestDecodeScoreBoundary(t *testing.T) {
	score, err := EncodeScore(LonMin, LatMin)
	require.NoError(t, err)
	lon, lat := DecodeScore(score)
	require.True(t, math.Abs(lon-LonMin) < 0.01)
	require.True(t, math.Abs(lat-LatMin) < 0.01)
}
