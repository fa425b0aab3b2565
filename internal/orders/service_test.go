package orders

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeinz-backend/internal/lifecycle"
	"github.com/angelmondragon/tradeinz-backend/internal/partners"
	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/metrics"
	"github.com/angelmondragon/tradeinz-backend/pkg/outbox"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// ---- in-memory repository ----

type stubRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.SellOrder
	claims map[uuid.UUID][]models.OrderClaim
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders: make(map[uuid.UUID]*models.SellOrder),
		claims: make(map[uuid.UUID][]models.OrderClaim),
	}
}

func (r *stubRepo) WithTx(_ *gorm.DB) Repository { return r }

func (r *stubRepo) FindSellOrder(_ context.Context, id uuid.UUID) (*models.SellOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *order
	copied.Claims = append([]models.OrderClaim(nil), r.claims[id]...)
	sort.SliceStable(copied.Claims, func(i, j int) bool {
		return copied.Claims[i].AssignedAt.Before(copied.Claims[j].AssignedAt)
	})
	return &copied, nil
}

func (r *stubRepo) CreateSellOrder(_ context.Context, order *models.SellOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *stubRepo) ClaimSellOrder(_ context.Context, orderID, partnerID uuid.UUID, lockVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != enums.SellOrderStatusOpen || order.AssignedPartnerID != nil || order.LockVersion != lockVersion {
		return false, nil
	}
	order.Status = enums.SellOrderStatusPendingAcceptance
	order.AssignedPartnerID = &partnerID
	order.LockVersion++
	order.UpdatedAt = time.Now()
	return true, nil
}

func (r *stubRepo) UpdateSellOrderGuarded(_ context.Context, orderID uuid.UUID, lockVersion int64, updates map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.LockVersion != lockVersion {
		return false, nil
	}
	for column, value := range updates {
		switch column {
		case "status":
			order.Status = value.(enums.SellOrderStatus)
		case "assigned_partner_id":
			order.AssignedPartnerID = toUUIDPtr(value)
		case "assigned_agent_id":
			order.AssignedAgentID = toUUIDPtr(value)
		case "actual_amount":
			amount := value.(decimal.Decimal)
			order.ActualAmount = &amount
		}
	}
	order.LockVersion++
	order.UpdatedAt = time.Now()
	return true, nil
}

func toUUIDPtr(value any) *uuid.UUID {
	if value == nil {
		return nil
	}
	id := value.(uuid.UUID)
	return &id
}

func (r *stubRepo) InsertClaim(_ context.Context, claim *models.OrderClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim.ID = uuid.New()
	claim.AssignedAt = time.Now()
	r.claims[claim.OrderID] = append(r.claims[claim.OrderID], *claim)
	return nil
}

func (r *stubRepo) FinalizeClaim(_ context.Context, orderID, partnerID uuid.UUID, outcome enums.ClaimOutcome, respondedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claims := r.claims[orderID]
	for i := range claims {
		if claims[i].PartnerID == partnerID && claims[i].Outcome == enums.ClaimOutcomePending {
			claims[i].Outcome = outcome
			claims[i].RespondedAt = &respondedAt
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "no pending claim to finalize")
}

func (r *stubRepo) ListOpenOrders(_ context.Context) ([]models.SellOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []models.SellOrder
	for _, order := range r.orders {
		if order.Status == enums.SellOrderStatusOpen {
			rows = append(rows, *order)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, nil
}

func (r *stubRepo) CountStalePending(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, order := range r.orders {
		if order.Status == enums.SellOrderStatusPendingAcceptance && order.UpdatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

// ---- partner stub ----

type stubPartnerRepo struct {
	partners map[uuid.UUID]models.Partner
	agents   map[uuid.UUID]models.Agent
}

func (r *stubPartnerRepo) WithTx(_ *gorm.DB) partners.Repository { return r }

func (r *stubPartnerRepo) FindPartner(_ context.Context, id uuid.UUID) (*models.Partner, error) {
	partner, ok := r.partners[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}
	return &partner, nil
}

func (r *stubPartnerRepo) FindAgent(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	agent, ok := r.agents[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
	}
	return &agent, nil
}

func (r *stubPartnerRepo) ListAgents(_ context.Context, partnerID uuid.UUID) ([]models.Agent, error) {
	var agents []models.Agent
	for _, agent := range r.agents {
		if agent.PartnerID == partnerID {
			agents = append(agents, agent)
		}
	}
	return agents, nil
}

// ---- emitter and tx stubs ----

type stubEmitter struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (e *stubEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *stubEmitter) eventTypes() []enums.OutboxEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	eventTypes := make([]enums.OutboxEventType, 0, len(e.events))
	for _, event := range e.events {
		eventTypes = append(eventTypes, event.EventType)
	}
	return eventTypes
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

// ---- fixtures ----

type fixture struct {
	service  Service
	repo     *stubRepo
	partners *stubPartnerRepo
	emitter  *stubEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubRepo()
	partnerRepo := &stubPartnerRepo{
		partners: make(map[uuid.UUID]models.Partner),
		agents:   make(map[uuid.UUID]models.Agent),
	}
	emitter := &stubEmitter{}
	logg := logger.New(logger.Options{ServiceName: "orders-test"})

	svc, err := NewService(repo, partnerRepo, stubTx{}, emitter, metrics.NewMatchingMetrics(nil), logg)
	require.NoError(t, err)

	return &fixture{service: svc, repo: repo, partners: partnerRepo, emitter: emitter}
}

func (f *fixture) addPartner(lat, lng, radius float64) (uuid.UUID, lifecycle.Actor) {
	id := uuid.New()
	f.partners.partners[id] = models.Partner{
		ID:                  id,
		Name:                "partner " + id.String()[:8],
		Location:            types.GeoPoint{Lat: lat, Lng: lng},
		ServiceRadiusMeters: radius,
	}
	return id, lifecycle.Actor{UserID: uuid.New(), Role: enums.MemberRolePartner, PartnerID: &id}
}

func (f *fixture) addAgent(partnerID uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.agents()[id] = models.Agent{ID: id, PartnerID: partnerID, DisplayName: "agent"}
	return id
}

func (f *fixture) agents() map[uuid.UUID]models.Agent { return f.partners.agents }

func (f *fixture) addOpenOrder(t *testing.T, lat, lng float64) uuid.UUID {
	t.Helper()
	order := &models.SellOrder{
		OrderNumber:       newOrderNumber(),
		Status:            enums.SellOrderStatusOpen,
		QuoteAmount:       decimal.NewFromInt(4200),
		AssessmentRef:     "assessment-1",
		PickupAddress:     "14 Ring Road",
		PickupLocation:    types.GeoPoint{Lat: lat, Lng: lng},
		PickupWindowStart: time.Now().Add(time.Hour),
		PickupWindowEnd:   time.Now().Add(3 * time.Hour),
	}
	require.NoError(t, f.repo.CreateSellOrder(context.Background(), order))
	return order.ID
}

var adminActor = lifecycle.Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}

// ---- tests ----

func TestClaimWinsAndMovesToPending(t *testing.T) {
	f := newFixture(t)
	partnerID, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	view, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)

	assert.Equal(t, enums.SellOrderStatusPendingAcceptance.String(), view.Status)
	require.NotNil(t, view.AssignedPartnerID)
	assert.Equal(t, partnerID, *view.AssignedPartnerID)
	require.Len(t, view.ClaimHistory, 1)
	assert.Equal(t, enums.ClaimOutcomePending, view.ClaimHistory[0].Outcome)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderClaimed}, f.emitter.eventTypes())
}

func TestClaimExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	const contenders = 16
	actors := make([]lifecycle.Actor, contenders)
	for i := range actors {
		_, actors[i] = f.addPartner(28.60, 77.20, 5000)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	start := make(chan struct{})
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.service.Claim(context.Background(), actors[i], orderID)
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case pkgerrors.HasCode(err, pkgerrors.CodeAlreadyClaimed):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, conflicts)

	order, err := f.repo.FindSellOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.SellOrderStatusPendingAcceptance, order.Status)
	assert.Len(t, order.Claims, 1)
}

func TestClaimOutOfServiceArea(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 1000) // 1 km radius, order ~1.5 km away
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOutOfServiceArea))

	order, findErr := f.repo.FindSellOrder(context.Background(), orderID)
	require.NoError(t, findErr)
	assert.Equal(t, enums.SellOrderStatusOpen, order.Status)
	assert.Empty(t, order.Claims)
}

func TestClaimUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)

	_, err := f.service.Claim(context.Background(), actor, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestClaimCancelledOrder(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.UpdateStatus(context.Background(), adminActor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusCancelled,
	})
	require.NoError(t, err)

	_, err = f.service.Claim(context.Background(), actor, orderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestClaimRequiresPartnerRole(t *testing.T) {
	f := newFixture(t)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), adminActor, orderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestRespondAcceptConfirmsOrder(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)

	view, err := f.service.Respond(context.Background(), actor, orderID, enums.ClaimOutcomeAccepted)
	require.NoError(t, err)

	assert.Equal(t, enums.SellOrderStatusConfirmed.String(), view.Status)
	require.Len(t, view.ClaimHistory, 1)
	assert.Equal(t, enums.ClaimOutcomeAccepted, view.ClaimHistory[0].Outcome)
	assert.NotNil(t, view.ClaimHistory[0].RespondedAt)
	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderClaimed,
		enums.EventOrderClaimAccepted,
	}, f.emitter.eventTypes())
}

func TestRespondRejectReturnsOrderToPool(t *testing.T) {
	f := newFixture(t)
	firstPartner, firstActor := f.addPartner(28.60, 77.20, 5000)
	secondPartner, secondActor := f.addPartner(28.62, 77.22, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), firstActor, orderID)
	require.NoError(t, err)

	view, err := f.service.Respond(context.Background(), firstActor, orderID, enums.ClaimOutcomeRejected)
	require.NoError(t, err)

	// back in the pool, shown as awaiting a rematch
	assert.Equal(t, StatusAwaitingRematch, view.Status)
	assert.Equal(t, enums.SellOrderStatusOpen.String(), view.StoredStatus)
	assert.Nil(t, view.AssignedPartnerID)
	require.Len(t, view.ClaimHistory, 1)
	assert.Equal(t, firstPartner, view.ClaimHistory[0].PartnerID)
	assert.Equal(t, enums.ClaimOutcomeRejected, view.ClaimHistory[0].Outcome)

	// a second partner can claim it again
	view, err = f.service.Claim(context.Background(), secondActor, orderID)
	require.NoError(t, err)
	require.NotNil(t, view.AssignedPartnerID)
	assert.Equal(t, secondPartner, *view.AssignedPartnerID)
	require.Len(t, view.ClaimHistory, 2)
	assert.Equal(t, enums.ClaimOutcomeRejected, view.ClaimHistory[0].Outcome)
	assert.Equal(t, enums.ClaimOutcomePending, view.ClaimHistory[1].Outcome)
}

func TestRespondByWrongPartner(t *testing.T) {
	f := newFixture(t)
	_, winner := f.addPartner(28.60, 77.20, 5000)
	_, intruder := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), winner, orderID)
	require.NoError(t, err)

	_, err = f.service.Respond(context.Background(), intruder, orderID, enums.ClaimOutcomeAccepted)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestRespondWithoutPendingClaim(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Respond(context.Background(), actor, orderID, enums.ClaimOutcomeAccepted)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestUpdateStatusHappyPath(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)
	_, err = f.service.Respond(context.Background(), actor, orderID, enums.ClaimOutcomeAccepted)
	require.NoError(t, err)

	view, err := f.service.UpdateStatus(context.Background(), actor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusPicked,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SellOrderStatusPicked.String(), view.Status)

	settled := decimal.NewFromInt(3990)
	view, err = f.service.UpdateStatus(context.Background(), actor, orderID, UpdateStatusInput{
		Target:       enums.SellOrderStatusPaid,
		ActualAmount: &settled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SellOrderStatusPaid.String(), view.Status)
	require.NotNil(t, view.ActualAmount)
	assert.True(t, settled.Equal(*view.ActualAmount))
}

func TestUpdateStatusRejectsConfirmedToOpen(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)
	_, err = f.service.Respond(context.Background(), actor, orderID, enums.ClaimOutcomeAccepted)
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), actor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusOpen,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestUpdateStatusRejectsClaimFlowTransitions(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.UpdateStatus(context.Background(), actor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusPendingAcceptance,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestUpdateStatusCancelPendingClearsAssignment(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)

	view, err := f.service.UpdateStatus(context.Background(), adminActor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusCancelled,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.SellOrderStatusCancelled.String(), view.Status)
	assert.Nil(t, view.AssignedPartnerID)
	require.Len(t, view.ClaimHistory, 1)
	assert.Equal(t, enums.ClaimOutcomeRejected, view.ClaimHistory[0].Outcome)
}

func TestUpdateStatusCancelUnassignedOrderIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.UpdateStatus(context.Background(), actor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusCancelled,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	view, err := f.service.UpdateStatus(context.Background(), adminActor, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SellOrderStatusCancelled.String(), view.Status)
}

func TestUpdateStatusScopedToOwningPartner(t *testing.T) {
	f := newFixture(t)
	_, owner := f.addPartner(28.60, 77.20, 5000)
	_, other := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), owner, orderID)
	require.NoError(t, err)
	_, err = f.service.Respond(context.Background(), owner, orderID, enums.ClaimOutcomeAccepted)
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), other, orderID, UpdateStatusInput{
		Target: enums.SellOrderStatusPicked,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestAssignAgent(t *testing.T) {
	f := newFixture(t)
	partnerID, actor := f.addPartner(28.60, 77.20, 5000)
	agentID := f.addAgent(partnerID)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)
	_, err = f.service.Respond(context.Background(), actor, orderID, enums.ClaimOutcomeAccepted)
	require.NoError(t, err)

	view, err := f.service.AssignAgent(context.Background(), actor, orderID, agentID)
	require.NoError(t, err)
	require.NotNil(t, view.AssignedAgentID)
	assert.Equal(t, agentID, *view.AssignedAgentID)
}

func TestAssignAgentNotOwned(t *testing.T) {
	f := newFixture(t)
	_, actor := f.addPartner(28.60, 77.20, 5000)
	otherPartner, _ := f.addPartner(28.60, 77.20, 5000)
	foreignAgent := f.addAgent(otherPartner)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)
	_, err = f.service.Respond(context.Background(), actor, orderID, enums.ClaimOutcomeAccepted)
	require.NoError(t, err)

	_, err = f.service.AssignAgent(context.Background(), actor, orderID, foreignAgent)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAgentNotOwned))
}

func TestAssignAgentBeforeConfirmation(t *testing.T) {
	f := newFixture(t)
	partnerID, actor := f.addPartner(28.60, 77.20, 5000)
	agentID := f.addAgent(partnerID)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	_, err := f.service.Claim(context.Background(), actor, orderID)
	require.NoError(t, err)

	_, err = f.service.AssignAgent(context.Background(), actor, orderID, agentID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestIntakeCreatesDraft(t *testing.T) {
	f := newFixture(t)
	systemActor := lifecycle.Actor{UserID: uuid.New(), Role: enums.MemberRoleSystem}

	view, err := f.service.Intake(context.Background(), systemActor, IntakeInput{
		AssessmentRef:     "assessment-77",
		QuoteAmount:       decimal.NewFromInt(5100),
		PickupAddress:     "2 Lake View",
		PickupLocation:    types.GeoPoint{Lat: 28.61, Lng: 77.21},
		PickupWindowStart: time.Now().Add(time.Hour),
		PickupWindowEnd:   time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.SellOrderStatusDraft.String(), view.Status)
	assert.Contains(t, view.OrderNumber, "SO-")
	assert.Empty(t, f.emitter.eventTypes())
}

func TestIntakeOpenImmediatelyEmitsEvent(t *testing.T) {
	f := newFixture(t)
	systemActor := lifecycle.Actor{UserID: uuid.New(), Role: enums.MemberRoleSystem}

	view, err := f.service.Intake(context.Background(), systemActor, IntakeInput{
		AssessmentRef:     "assessment-78",
		QuoteAmount:       decimal.NewFromInt(5100),
		PickupAddress:     "2 Lake View",
		PickupLocation:    types.GeoPoint{Lat: 28.61, Lng: 77.21},
		PickupWindowStart: time.Now().Add(time.Hour),
		PickupWindowEnd:   time.Now().Add(2 * time.Hour),
		OpenImmediately:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.SellOrderStatusOpen.String(), view.Status)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderOpened}, f.emitter.eventTypes())
}

func TestIntakeValidation(t *testing.T) {
	f := newFixture(t)
	systemActor := lifecycle.Actor{UserID: uuid.New(), Role: enums.MemberRoleSystem}
	base := IntakeInput{
		AssessmentRef:     "assessment-79",
		QuoteAmount:       decimal.NewFromInt(5100),
		PickupAddress:     "2 Lake View",
		PickupLocation:    types.GeoPoint{Lat: 28.61, Lng: 77.21},
		PickupWindowStart: time.Now().Add(time.Hour),
		PickupWindowEnd:   time.Now().Add(2 * time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(*IntakeInput)
	}{
		{name: "missing assessment ref", mutate: func(in *IntakeInput) { in.AssessmentRef = "" }},
		{name: "zero quote", mutate: func(in *IntakeInput) { in.QuoteAmount = decimal.Zero }},
		{name: "missing address", mutate: func(in *IntakeInput) { in.PickupAddress = "" }},
		{name: "bad coordinates", mutate: func(in *IntakeInput) { in.PickupLocation.Lat = 95 }},
		{name: "inverted window", mutate: func(in *IntakeInput) {
			in.PickupWindowEnd = in.PickupWindowStart.Add(-time.Minute)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			_, err := f.service.Intake(context.Background(), systemActor, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestGetOrderScopedForPartners(t *testing.T) {
	f := newFixture(t)
	_, owner := f.addPartner(28.60, 77.20, 5000)
	_, other := f.addPartner(28.60, 77.20, 5000)
	orderID := f.addOpenOrder(t, 28.61, 77.21)

	// anyone can read an unassigned pool order
	_, err := f.service.GetOrder(context.Background(), other, orderID)
	require.NoError(t, err)

	_, err = f.service.Claim(context.Background(), owner, orderID)
	require.NoError(t, err)

	_, err = f.service.GetOrder(context.Background(), owner, orderID)
	require.NoError(t, err)

	_, err = f.service.GetOrder(context.Background(), other, orderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.service.GetOrder(context.Background(), adminActor, orderID)
	require.NoError(t, err)
}
