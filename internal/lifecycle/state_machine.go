package lifecycle

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
)

// Actor identifies who is requesting a transition. PartnerID is nil for
// admin and system actors.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.MemberRole
	PartnerID *uuid.UUID
}

// transitions is the single source of truth for the sell-order state
// machine: every allowed (from, to) pair and the roles permitted to
// trigger it. Anything absent here is invalid.
var transitions = map[enums.SellOrderStatus]map[enums.SellOrderStatus][]enums.MemberRole{
	enums.SellOrderStatusDraft: {
		enums.SellOrderStatusOpen:      {enums.MemberRolePartner, enums.MemberRoleAdmin, enums.MemberRoleSystem},
		enums.SellOrderStatusCancelled: {enums.MemberRolePartner, enums.MemberRoleAdmin},
	},
	enums.SellOrderStatusOpen: {
		enums.SellOrderStatusPendingAcceptance: {enums.MemberRolePartner, enums.MemberRoleSystem},
		enums.SellOrderStatusCancelled:         {enums.MemberRolePartner, enums.MemberRoleAdmin},
	},
	enums.SellOrderStatusPendingAcceptance: {
		enums.SellOrderStatusConfirmed: {enums.MemberRolePartner},
		enums.SellOrderStatusOpen:      {enums.MemberRolePartner},
		enums.SellOrderStatusCancelled: {enums.MemberRolePartner, enums.MemberRoleAdmin},
	},
	enums.SellOrderStatusConfirmed: {
		enums.SellOrderStatusPicked:    {enums.MemberRolePartner, enums.MemberRoleAgent},
		enums.SellOrderStatusCancelled: {enums.MemberRolePartner, enums.MemberRoleAdmin},
	},
	enums.SellOrderStatusPicked: {
		enums.SellOrderStatusPaid: {enums.MemberRolePartner},
	},
}

// claimFlowOnly marks transitions that belong to the claim/response
// coordinator and must not be requested through the generic status update.
var claimFlowOnly = map[enums.SellOrderStatus]map[enums.SellOrderStatus]bool{
	enums.SellOrderStatusOpen: {
		enums.SellOrderStatusPendingAcceptance: true,
	},
	enums.SellOrderStatusPendingAcceptance: {
		enums.SellOrderStatusConfirmed: true,
		enums.SellOrderStatusOpen:      true,
	},
}

// ValidateTransition checks that the requested transition exists in the
// state machine and that the actor's role may trigger it.
func ValidateTransition(from, to enums.SellOrderStatus, actor Actor) error {
	if !from.IsValid() || !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"from": from, "to": to})
	}

	roles, ok := transitions[from][to]
	if !ok {
		return invalidTransition(from, to)
	}

	for _, role := range roles {
		if role == actor.Role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not perform this transition").
		WithDetails(map[string]any{"from": from, "to": to, "role": actor.Role})
}

// IsClaimFlowTransition reports whether the transition is reserved for the
// claim and claim-response operations.
func IsClaimFlowTransition(from, to enums.SellOrderStatus) bool {
	return claimFlowOnly[from][to]
}

// AllowedTargets returns the statuses reachable from the given status,
// regardless of role. Useful for error details and diagnostics.
func AllowedTargets(from enums.SellOrderStatus) []enums.SellOrderStatus {
	targets := make([]enums.SellOrderStatus, 0, len(transitions[from]))
	for to := range transitions[from] {
		targets = append(targets, to)
	}
	return targets
}

func invalidTransition(from, to enums.SellOrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
