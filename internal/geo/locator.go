package geo

import (
	"math"

	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// Mean Earth radius in meters (IUGG).
const earthRadiusMeters = 6371008.8

// Distance returns the great-circle (haversine) distance between two points
// in meters. Symmetric, zero for identical points, deterministic.
func Distance(a, b types.GeoPoint) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinates")
	}
	if err := b.Validate(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinates")
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h)), nil
}

// WithinServiceArea reports whether the order location falls inside the
// partner's service radius, measured from the partner's current location.
func WithinServiceArea(orderLocation types.GeoPoint, partner models.Partner) (bool, error) {
	distance, err := Distance(orderLocation, partner.Location)
	if err != nil {
		return false, err
	}
	return distance <= partner.ServiceRadiusMeters, nil
}
