package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// StatusAwaitingRematch is the display-only status shown for an order that
// returned to the pool after at least one rejected claim. It never appears
// in storage; the persisted status stays "open".
const StatusAwaitingRematch = "awaiting_rematch"

// ClaimHistoryEntry is one row of the order's append-only assignment history.
type ClaimHistoryEntry struct {
	PartnerID   uuid.UUID          `json:"partnerId"`
	AssignedAt  time.Time          `json:"assignedAt"`
	RespondedAt *time.Time         `json:"respondedAt,omitempty"`
	Outcome     enums.ClaimOutcome `json:"outcome"`
}

// OrderView is the canonical API shape of a sell order. Every endpoint that
// returns an order goes through MapOrder so display rules live in one place.
type OrderView struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"orderNumber"`
	Status            string              `json:"status"`
	StoredStatus      string              `json:"storedStatus"`
	QuoteAmount       decimal.Decimal     `json:"quoteAmount"`
	ActualAmount      *decimal.Decimal    `json:"actualAmount,omitempty"`
	AssessmentRef     string              `json:"assessmentRef"`
	PickupAddress     string              `json:"pickupAddress"`
	PickupLocation    types.GeoPoint      `json:"pickupLocation"`
	PickupWindowStart time.Time           `json:"pickupWindowStart"`
	PickupWindowEnd   time.Time           `json:"pickupWindowEnd"`
	AssignedPartnerID *uuid.UUID          `json:"assignedPartnerId,omitempty"`
	AssignedAgentID   *uuid.UUID          `json:"assignedAgentId,omitempty"`
	ClaimHistory      []ClaimHistoryEntry `json:"claimHistory"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// DisplayStatus derives the user-facing status from the stored one. Open
// orders with prior claims read as awaiting_rematch.
func DisplayStatus(order models.SellOrder) string {
	if order.Status == enums.SellOrderStatusOpen && len(order.Claims) > 0 {
		return StatusAwaitingRematch
	}
	return order.Status.String()
}

// MapOrder converts a stored order (with preloaded claims) into its API view.
func MapOrder(order models.SellOrder) OrderView {
	history := make([]ClaimHistoryEntry, 0, len(order.Claims))
	for _, claim := range order.Claims {
		history = append(history, ClaimHistoryEntry{
			PartnerID:   claim.PartnerID,
			AssignedAt:  claim.AssignedAt,
			RespondedAt: claim.RespondedAt,
			Outcome:     claim.Outcome,
		})
	}

	return OrderView{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            DisplayStatus(order),
		StoredStatus:      order.Status.String(),
		QuoteAmount:       order.QuoteAmount,
		ActualAmount:      order.ActualAmount,
		AssessmentRef:     order.AssessmentRef,
		PickupAddress:     order.PickupAddress,
		PickupLocation:    order.PickupLocation,
		PickupWindowStart: order.PickupWindowStart,
		PickupWindowEnd:   order.PickupWindowEnd,
		AssignedPartnerID: order.AssignedPartnerID,
		AssignedAgentID:   order.AssignedAgentID,
		ClaimHistory:      history,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}
