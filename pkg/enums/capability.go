package enums

// Capability enumerates the operations the API authorizes, checked against the
// actor role instead of route-path strings.
type Capability string

const (
	CapabilityViewFeed          Capability = "view_feed"
	CapabilityClaimOrder        Capability = "claim_order"
	CapabilityRespondToClaim    Capability = "respond_to_claim"
	CapabilityUpdateOrderStatus Capability = "update_order_status"
	CapabilityAssignAgent       Capability = "assign_agent"
	CapabilityViewOrder         Capability = "view_order"
	CapabilityIntakeOrder       Capability = "intake_order"
)

var roleCapabilities = map[MemberRole][]Capability{
	MemberRolePartner: {
		CapabilityViewFeed,
		CapabilityClaimOrder,
		CapabilityRespondToClaim,
		CapabilityUpdateOrderStatus,
		CapabilityAssignAgent,
		CapabilityViewOrder,
	},
	MemberRoleAgent: {
		CapabilityUpdateOrderStatus,
		CapabilityViewOrder,
	},
	MemberRoleAdmin: {
		CapabilityUpdateOrderStatus,
		CapabilityViewOrder,
		CapabilityIntakeOrder,
	},
	MemberRoleSystem: {
		CapabilityIntakeOrder,
	},
}

// HasCapability reports whether the role is granted the capability.
func (r MemberRole) HasCapability(capability Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == capability {
			return true
		}
	}
	return false
}
