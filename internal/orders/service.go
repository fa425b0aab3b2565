package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeinz-backend/internal/geo"
	"github.com/angelmondragon/tradeinz-backend/internal/lifecycle"
	"github.com/angelmondragon/tradeinz-backend/internal/partners"
	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/metrics"
	"github.com/angelmondragon/tradeinz-backend/pkg/outbox"
	"github.com/angelmondragon/tradeinz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// IntakeInput creates a sell order from a completed device assessment.
type IntakeInput struct {
	AssessmentRef     string
	QuoteAmount       decimal.Decimal
	PickupAddress     string
	PickupLocation    types.GeoPoint
	PickupWindowStart time.Time
	PickupWindowEnd   time.Time

	// OpenImmediately publishes the order to the partner pool on creation
	// instead of leaving it in draft.
	OpenImmediately bool
}

// UpdateStatusInput is a generic lifecycle transition request.
type UpdateStatusInput struct {
	Target enums.SellOrderStatus

	// ActualAmount is the settled payout, accepted only on the transition
	// into paid.
	ActualAmount *decimal.Decimal
}

// Service coordinates the sell-order lifecycle: intake, the claim race,
// claim responses, status transitions, and agent assignment.
type Service interface {
	Intake(ctx context.Context, actor lifecycle.Actor, input IntakeInput) (*OrderView, error)
	GetOrder(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*OrderView, error)
	Claim(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*OrderView, error)
	Respond(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, outcome enums.ClaimOutcome) (*OrderView, error)
	UpdateStatus(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderView, error)
	AssignAgent(ctx context.Context, actor lifecycle.Actor, orderID, agentID uuid.UUID) (*OrderView, error)
}

type service struct {
	repo     Repository
	partners partners.Repository
	tx       TxRunner
	events   EventEmitter
	metrics  *metrics.MatchingMetrics
	logg     *logger.Logger

	now         func() time.Time
	orderNumber func() string
}

// NewService wires the order coordinator. All dependencies are required
// except metrics, which degrades to no-ops.
func NewService(
	repo Repository,
	partnerRepo partners.Repository,
	tx TxRunner,
	events EventEmitter,
	matchingMetrics *metrics.MatchingMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if partnerRepo == nil {
		return nil, fmt.Errorf("partner repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:        repo,
		partners:    partnerRepo,
		tx:          tx,
		events:      events,
		metrics:     matchingMetrics,
		logg:        logg,
		now:         time.Now,
		orderNumber: newOrderNumber,
	}, nil
}

func newOrderNumber() string {
	return "SO-" + ulid.Make().String()
}

func (s *service) Intake(ctx context.Context, actor lifecycle.Actor, input IntakeInput) (*OrderView, error) {
	if input.AssessmentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assessment reference is required")
	}
	if input.QuoteAmount.IsNegative() || input.QuoteAmount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote amount must be positive")
	}
	if input.PickupAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup address is required")
	}
	if err := input.PickupLocation.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pickup location")
	}
	if !input.PickupWindowEnd.After(input.PickupWindowStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup window end must be after start")
	}

	status := enums.SellOrderStatusDraft
	if input.OpenImmediately {
		if err := lifecycle.ValidateTransition(enums.SellOrderStatusDraft, enums.SellOrderStatusOpen, actor); err != nil {
			return nil, err
		}
		status = enums.SellOrderStatusOpen
	}

	order := &models.SellOrder{
		OrderNumber:       s.orderNumber(),
		Status:            status,
		QuoteAmount:       input.QuoteAmount,
		AssessmentRef:     input.AssessmentRef,
		PickupAddress:     input.PickupAddress,
		PickupLocation:    input.PickupLocation,
		PickupWindowStart: input.PickupWindowStart,
		PickupWindowEnd:   input.PickupWindowEnd,
	}

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateSellOrder(ctx, order); err != nil {
			return err
		}
		if status == enums.SellOrderStatusOpen {
			if err := s.emitStatusChange(ctx, tx, order, enums.SellOrderStatusDraft, actor); err != nil {
				return err
			}
		}
		mapped := MapOrder(*order)
		view = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "sell order created")
	return view, nil
}

func (s *service) GetOrder(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindSellOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(actor, order); err != nil {
		return nil, err
	}
	view := MapOrder(*order)
	return &view, nil
}

// Claim is the matching hot path. A single conditional update decides the
// race; there is exactly one winner and losers get ALREADY_CLAIMED with no
// internal retry.
func (s *service) Claim(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*OrderView, error) {
	if actor.Role != enums.MemberRolePartner || actor.PartnerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only partners claim orders")
	}
	partnerID := *actor.PartnerID

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				s.metrics.IncClaim(metrics.ClaimResultNotFound)
			}
			return err
		}

		if order.Status != enums.SellOrderStatusOpen || order.AssignedPartnerID != nil {
			if order.Status.RequiresPartner() {
				s.metrics.IncClaim(metrics.ClaimResultLost)
				return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "order already claimed").
					WithDetails(map[string]any{"status": order.Status})
			}
			s.metrics.IncClaim(metrics.ClaimResultInvalidState)
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not open for claims").
				WithDetails(map[string]any{"status": order.Status})
		}

		partner, err := s.partners.WithTx(tx).FindPartner(ctx, partnerID)
		if err != nil {
			return err
		}

		within, err := geo.WithinServiceArea(order.PickupLocation, *partner)
		if err != nil {
			return err
		}
		if !within {
			s.metrics.IncClaim(metrics.ClaimResultOutOfArea)
			return pkgerrors.New(pkgerrors.CodeOutOfServiceArea, "order is outside your service area")
		}

		if err := lifecycle.ValidateTransition(order.Status, enums.SellOrderStatusPendingAcceptance, actor); err != nil {
			return err
		}

		won, err := repo.ClaimSellOrder(ctx, orderID, partnerID, order.LockVersion)
		if err != nil {
			return err
		}
		if !won {
			s.metrics.IncClaim(metrics.ClaimResultLost)
			return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "order already claimed")
		}

		claim := &models.OrderClaim{
			OrderID:   orderID,
			PartnerID: partnerID,
			Outcome:   enums.ClaimOutcomePending,
		}
		if err := repo.InsertClaim(ctx, claim); err != nil {
			return err
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderClaimed,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   orderID,
			Actor:         actorRef(actor),
			Data: payloads.OrderClaimedEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				PartnerID:   partnerID,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		s.metrics.IncClaim(metrics.ClaimResultWon)

		fresh, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		mapped := MapOrder(*fresh)
		view = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   orderID.String(),
		"partner_id": partnerID.String(),
	})
	s.logg.Info(logCtx, "claim won")
	return view, nil
}

// Respond resolves the partner's pending claim: accept confirms the order,
// reject returns it to the pool with the claim preserved in history.
func (s *service) Respond(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, outcome enums.ClaimOutcome) (*OrderView, error) {
	if actor.Role != enums.MemberRolePartner || actor.PartnerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only partners respond to claims")
	}
	if outcome != enums.ClaimOutcomeAccepted && outcome != enums.ClaimOutcomeRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "response must be accepted or rejected")
	}
	partnerID := *actor.PartnerID

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.SellOrderStatusPendingAcceptance {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has no pending claim").
				WithDetails(map[string]any{"status": order.Status})
		}
		if order.AssignedPartnerID == nil || *order.AssignedPartnerID != partnerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "claim belongs to another partner")
		}

		target := enums.SellOrderStatusConfirmed
		updates := map[string]any{"status": target}
		if outcome == enums.ClaimOutcomeRejected {
			target = enums.SellOrderStatusOpen
			updates = map[string]any{
				"status":              target,
				"assigned_partner_id": nil,
				"assigned_agent_id":   nil,
			}
		}

		if err := lifecycle.ValidateTransition(order.Status, target, actor); err != nil {
			return err
		}

		applied, err := repo.UpdateSellOrderGuarded(ctx, orderID, order.LockVersion, updates)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order changed concurrently, reload and retry")
		}

		if err := repo.FinalizeClaim(ctx, orderID, partnerID, outcome, s.now()); err != nil {
			return err
		}

		eventType := enums.EventOrderClaimAccepted
		if outcome == enums.ClaimOutcomeRejected {
			eventType = enums.EventOrderClaimRejected
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   orderID,
			Actor:         actorRef(actor),
			Data: payloads.ClaimResolvedEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				PartnerID:   partnerID,
				Outcome:     outcome,
				Status:      target,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		fresh, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		mapped := MapOrder(*fresh)
		view = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   orderID.String(),
		"partner_id": partnerID.String(),
		"outcome":    outcome,
	})
	s.logg.Info(logCtx, "claim resolved")
	return view, nil
}

// UpdateStatus applies a generic lifecycle transition. Claim-flow
// transitions are refused here; they only happen through Claim and Respond.
func (s *service) UpdateStatus(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderView, error) {
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if input.ActualAmount != nil && input.Target != enums.SellOrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actual amount is only accepted when settling payment")
	}

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if lifecycle.IsClaimFlowTransition(order.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transition reserved for claim flow").
				WithDetails(map[string]any{"from": order.Status, "to": input.Target})
		}
		if err := s.authorizeWrite(actor, order, input.Target); err != nil {
			return err
		}
		if err := lifecycle.ValidateTransition(order.Status, input.Target, actor); err != nil {
			return err
		}

		updates := map[string]any{"status": input.Target}
		if input.Target == enums.SellOrderStatusCancelled {
			updates["assigned_partner_id"] = nil
			updates["assigned_agent_id"] = nil
		}
		if input.ActualAmount != nil {
			updates["actual_amount"] = *input.ActualAmount
		}

		applied, err := repo.UpdateSellOrderGuarded(ctx, orderID, order.LockVersion, updates)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order changed concurrently, reload and retry")
		}

		// Cancelling an order with a live claim closes that claim out.
		if input.Target == enums.SellOrderStatusCancelled &&
			order.Status == enums.SellOrderStatusPendingAcceptance &&
			order.AssignedPartnerID != nil {
			if err := repo.FinalizeClaim(ctx, orderID, *order.AssignedPartnerID, enums.ClaimOutcomeRejected, s.now()); err != nil {
				return err
			}
		}

		eventType := enums.EventOrderStatusChanged
		if order.Status == enums.SellOrderStatusDraft && input.Target == enums.SellOrderStatusOpen {
			eventType = enums.EventOrderOpened
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   orderID,
			Actor:         actorRef(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				FromStatus:  order.Status,
				ToStatus:    input.Target,
				PartnerID:   order.AssignedPartnerID,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		fresh, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		mapped := MapOrder(*fresh)
		view = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"status":   input.Target,
	})
	s.logg.Info(logCtx, "order status updated")
	return view, nil
}

// AssignAgent attaches a fulfillment agent owned by the assigned partner.
func (s *service) AssignAgent(ctx context.Context, actor lifecycle.Actor, orderID, agentID uuid.UUID) (*OrderView, error) {
	if actor.Role != enums.MemberRolePartner || actor.PartnerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only partners assign agents")
	}
	partnerID := *actor.PartnerID

	var view *OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.AssignedPartnerID == nil || *order.AssignedPartnerID != partnerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another partner")
		}
		if order.Status != enums.SellOrderStatusConfirmed && order.Status != enums.SellOrderStatusPicked {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "agent can only be assigned to a confirmed order").
				WithDetails(map[string]any{"status": order.Status})
		}

		agent, err := s.partners.WithTx(tx).FindAgent(ctx, agentID)
		if err != nil {
			return err
		}
		if agent.PartnerID != partnerID {
			return pkgerrors.New(pkgerrors.CodeAgentNotOwned, "agent belongs to another partner")
		}

		applied, err := repo.UpdateSellOrderGuarded(ctx, orderID, order.LockVersion, map[string]any{
			"assigned_agent_id": agentID,
		})
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order changed concurrently, reload and retry")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAgentAssigned,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   orderID,
			Actor:         actorRef(actor),
			Data: payloads.AgentAssignedEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				PartnerID:   partnerID,
				AgentID:     agentID,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		fresh, err := repo.FindSellOrder(ctx, orderID)
		if err != nil {
			return err
		}
		mapped := MapOrder(*fresh)
		view = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"agent_id": agentID.String(),
	})
	s.logg.Info(logCtx, "agent assigned")
	return view, nil
}

func (s *service) emitStatusChange(ctx context.Context, tx *gorm.DB, order *models.SellOrder, from enums.SellOrderStatus, actor lifecycle.Actor) error {
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderOpened,
		AggregateType: enums.AggregateSellOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			FromStatus:  from,
			ToStatus:    order.Status,
		},
		Version: 1,
	})
}

// authorizeRead lets admins and system see everything; partners and agents
// see open-pool orders and orders assigned to their partner.
func (s *service) authorizeRead(actor lifecycle.Actor, order *models.SellOrder) error {
	switch actor.Role {
	case enums.MemberRoleAdmin, enums.MemberRoleSystem:
		return nil
	case enums.MemberRolePartner, enums.MemberRoleAgent:
		if order.AssignedPartnerID == nil {
			return nil
		}
		if actor.PartnerID != nil && *actor.PartnerID == *order.AssignedPartnerID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another partner")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
}

// authorizeWrite scopes partner and agent mutations to their own orders.
// The only partner write on an unassigned order is publishing it; cancelling
// or otherwise mutating pool orders is admin work.
func (s *service) authorizeWrite(actor lifecycle.Actor, order *models.SellOrder, target enums.SellOrderStatus) error {
	switch actor.Role {
	case enums.MemberRoleAdmin, enums.MemberRoleSystem:
		return nil
	case enums.MemberRolePartner, enums.MemberRoleAgent:
		if order.AssignedPartnerID == nil {
			if actor.Role == enums.MemberRolePartner && target == enums.SellOrderStatusOpen {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeForbidden, "order has no assigned partner")
		}
		if actor.PartnerID != nil && *actor.PartnerID == *order.AssignedPartnerID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another partner")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
}

func actorRef(actor lifecycle.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    actor.UserID,
		PartnerID: actor.PartnerID,
		Role:      actor.Role,
	}
}
