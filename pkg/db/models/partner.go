package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// Partner is a reseller that claims and fulfills trade-in orders inside its
// service radius.
type Partner struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string         `gorm:"column:name;not null"`
	Location            types.GeoPoint `gorm:"column:location;type:geography(Point,4326);not null"`
	ServiceRadiusMeters float64        `gorm:"column:service_radius_meters;not null"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
