package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
)

// OrderClaimedEvent is emitted when a partner wins the claim race on an order.
type OrderClaimedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PartnerID   uuid.UUID `json:"partner_id"`
}

// ClaimResolvedEvent is emitted when a pending claim is accepted or rejected.
type ClaimResolvedEvent struct {
	OrderID     uuid.UUID             `json:"order_id"`
	OrderNumber string                `json:"order_number"`
	PartnerID   uuid.UUID             `json:"partner_id"`
	Outcome     enums.ClaimOutcome    `json:"outcome"`
	Status      enums.SellOrderStatus `json:"status"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition outside the
// claim/response path.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID             `json:"order_id"`
	OrderNumber string                `json:"order_number"`
	FromStatus  enums.SellOrderStatus `json:"from_status"`
	ToStatus    enums.SellOrderStatus `json:"to_status"`
	PartnerID   *uuid.UUID            `json:"partner_id,omitempty"`
}

// AgentAssignedEvent is emitted when a fulfillment agent is attached.
type AgentAssignedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PartnerID   uuid.UUID `json:"partner_id"`
	AgentID     uuid.UUID `json:"agent_id"`
}
