package enums

// OutboxEventType names the domain events queued for the notification service.
type OutboxEventType string

const (
	EventOrderOpened        OutboxEventType = "order.opened"
	EventOrderClaimed       OutboxEventType = "order.claimed"
	EventOrderClaimAccepted OutboxEventType = "order.claim_accepted"
	EventOrderClaimRejected OutboxEventType = "order.claim_rejected"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderAgentAssigned OutboxEventType = "order.agent_assigned"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateSellOrder OutboxAggregateType = "sell_order"
)
