package types

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrCoordinateOutOfRange = errors.New("geo: coordinate out of range")

// GeoPoint is a WGS84 latitude/longitude pair, persisted as a PostGIS
// geography point.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the WGS84 domain.
func (g GeoPoint) Validate() error {
	if math.IsNaN(g.Lat) || math.IsNaN(g.Lng) {
		return ErrCoordinateOutOfRange
	}
	if g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("%w: latitude %f", ErrCoordinateOutOfRange, g.Lat)
	}
	if g.Lng < -180 || g.Lng > 180 {
		return fmt.Errorf("%w: longitude %f", ErrCoordinateOutOfRange, g.Lng)
	}
	return nil
}

// Value produces an EWKT literal so Postgres can cast the geography.
func (g GeoPoint) Value() (driver.Value, error) {
	return fmt.Sprintf("SRID=4326;POINT(%f %f)", g.Lng, g.Lat), nil
}

// Scan accepts WKT/EWKT or WKB bytes returned by Postgres.
func (g *GeoPoint) Scan(value interface{}) error {
	if value == nil {
		*g = GeoPoint{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return g.fromText(v)
	case []byte:
		text := strings.TrimSpace(string(v))
		upper := strings.ToUpper(text)
		if strings.HasPrefix(upper, "SRID=") || strings.HasPrefix(upper, "POINT(") {
			return g.fromText(text)
		}
		return g.fromWKB(v)
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return g.fromText(stringer.String())
		}
		return fmt.Errorf("geo: unsupported scan type %T", value)
	}
}

func (g *GeoPoint) fromText(raw string) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		if idx := strings.Index(raw, ";"); idx != -1 {
			raw = raw[idx+1:]
		}
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToUpper(raw), "POINT(") || !strings.HasSuffix(raw, ")") {
		return fmt.Errorf("geo: unsupported text %q", raw)
	}

	content := strings.TrimSpace(raw[len("POINT(") : len(raw)-1])
	segments := strings.Fields(content)
	if len(segments) != 2 {
		return fmt.Errorf("geo: unexpected POINT content %q", content)
	}

	lng, err := parseCoordinate(segments[0])
	if err != nil {
		return err
	}
	lat, err := parseCoordinate(segments[1])
	if err != nil {
		return err
	}

	g.Lng = lng
	g.Lat = lat
	return nil
}

func (g *GeoPoint) fromWKB(raw []byte) error {
	if len(raw) < 21 {
		return fmt.Errorf("geo: wkb too short")
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return fmt.Errorf("geo: invalid byte order %d", raw[0])
	}

	geomType := order.Uint32(raw[1:5])
	if geomType != 1 {
		return fmt.Errorf("geo: unexpected geometry type %d", geomType)
	}

	g.Lng = math.Float64frombits(order.Uint64(raw[5:13]))
	g.Lat = math.Float64frombits(order.Uint64(raw[13:21]))
	return nil
}

func parseCoordinate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("geo: empty coordinate")
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("geo: parse coordinate %w", err)
	}
	return f, nil
}
