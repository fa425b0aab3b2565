package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoPointValidate(t *testing.T) {
	assert.NoError(t, GeoPoint{Lat: 28.61, Lng: 77.21}.Validate())
	assert.NoError(t, GeoPoint{Lat: -90, Lng: 180}.Validate())
	assert.Error(t, GeoPoint{Lat: 90.1, Lng: 0}.Validate())
	assert.Error(t, GeoPoint{Lat: 0, Lng: -180.1}.Validate())
}

func TestGeoPointScanWKT(t *testing.T) {
	var p GeoPoint
	require.NoError(t, p.Scan("SRID=4326;POINT(77.21 28.61)"))
	assert.InDelta(t, 28.61, p.Lat, 1e-9)
	assert.InDelta(t, 77.21, p.Lng, 1e-9)

	var q GeoPoint
	require.NoError(t, q.Scan("POINT(77.21 28.61)"))
	assert.InDelta(t, 28.61, q.Lat, 1e-9)
}

func TestGeoPointValueRoundTrip(t *testing.T) {
	p := GeoPoint{Lat: 28.61, Lng: 77.21}
	value, err := p.Value()
	require.NoError(t, err)

	var scanned GeoPoint
	require.NoError(t, scanned.Scan(value))
	assert.InDelta(t, p.Lat, scanned.Lat, 1e-9)
	assert.InDelta(t, p.Lng, scanned.Lng, 1e-9)
}
