package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a fulfillment agent employed by a single partner.
type Agent struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID   uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index:ix_agents_partner_id"`
	DisplayName string    `gorm:"column:display_name;not null"`
	Phone       string    `gorm:"column:phone"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
