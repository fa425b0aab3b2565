package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
)

// OrderClaim is one entry in a sell order's append-only reassignment history.
// Rows are never updated after the outcome is finalized and never deleted.
type OrderClaim struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index:ix_order_claims_order_id"`
	PartnerID   uuid.UUID          `gorm:"column:partner_id;type:uuid;not null"`
	AssignedAt  time.Time          `gorm:"column:assigned_at;autoCreateTime"`
	RespondedAt *time.Time         `gorm:"column:responded_at"`
	Outcome     enums.ClaimOutcome `gorm:"column:outcome;type:claim_outcome_enum;not null;default:'pending'"`
}
