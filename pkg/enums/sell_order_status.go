package enums

import "fmt"

// SellOrderStatus tracks the lifecycle of a trade-in sell order.
type SellOrderStatus string

const (
	SellOrderStatusDraft             SellOrderStatus = "draft"
	SellOrderStatusOpen              SellOrderStatus = "open"
	SellOrderStatusPendingAcceptance SellOrderStatus = "pending_acceptance"
	SellOrderStatusConfirmed         SellOrderStatus = "confirmed"
	SellOrderStatusPicked            SellOrderStatus = "picked"
	SellOrderStatusPaid              SellOrderStatus = "paid"
	SellOrderStatusCancelled         SellOrderStatus = "cancelled"
)

var validSellOrderStatuses = []SellOrderStatus{
	SellOrderStatusDraft,
	SellOrderStatusOpen,
	SellOrderStatusPendingAcceptance,
	SellOrderStatusConfirmed,
	SellOrderStatusPicked,
	SellOrderStatusPaid,
	SellOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s SellOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellOrderStatus.
func (s SellOrderStatus) IsValid() bool {
	for _, candidate := range validSellOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave the status.
func (s SellOrderStatus) IsTerminal() bool {
	return s == SellOrderStatusPaid || s == SellOrderStatusCancelled
}

// RequiresPartner reports whether the status implies an assigned partner.
func (s SellOrderStatus) RequiresPartner() bool {
	switch s {
	case SellOrderStatusPendingAcceptance, SellOrderStatusConfirmed, SellOrderStatusPicked, SellOrderStatusPaid:
		return true
	default:
		return false
	}
}

// ParseSellOrderStatus converts raw input into a SellOrderStatus.
func ParseSellOrderStatus(value string) (SellOrderStatus, error) {
	for _, candidate := range validSellOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sell order status %q", value)
}
