package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// SellOrder is a customer trade-in order moving through the matching and
// fulfillment lifecycle. The lock_version column guards every claim-path
// mutation; a stale read can never be the basis of a write.
type SellOrder struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string                `gorm:"column:order_number;not null;uniqueIndex:ux_sell_orders_order_number"`
	Status      enums.SellOrderStatus `gorm:"column:status;type:sell_order_status_enum;not null;default:'draft'"`

	QuoteAmount  decimal.Decimal  `gorm:"column:quote_amount;type:numeric(12,2);not null"`
	ActualAmount *decimal.Decimal `gorm:"column:actual_amount;type:numeric(12,2)"`

	// AssessmentRef points at the external assessment/session record that
	// produced the quote. Opaque to this service, never joined.
	AssessmentRef string `gorm:"column:assessment_ref;not null"`

	PickupAddress     string         `gorm:"column:pickup_address;not null"`
	PickupLocation    types.GeoPoint `gorm:"column:pickup_location;type:geography(Point,4326);not null"`
	PickupWindowStart time.Time      `gorm:"column:pickup_window_start;not null"`
	PickupWindowEnd   time.Time      `gorm:"column:pickup_window_end;not null"`

	AssignedPartnerID *uuid.UUID `gorm:"column:assigned_partner_id;type:uuid"`
	AssignedAgentID   *uuid.UUID `gorm:"column:assigned_agent_id;type:uuid"`

	LockVersion int64 `gorm:"column:lock_version;not null;default:0"`

	Claims []OrderClaim `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
