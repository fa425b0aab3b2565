//go:build db
// +build db

package orders

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TRADEINZ_DB_DSN")
	if dsn == "" {
		t.Skip("TRADEINZ_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func seedOpenOrder(t *testing.T, tx *gorm.DB) *models.SellOrder {
	t.Helper()

	order := &models.SellOrder{
		ID:                uuid.New(),
		OrderNumber:       fmt.Sprintf("SO-TEST-%s", uuid.NewString()),
		Status:            enums.SellOrderStatusOpen,
		QuoteAmount:       decimal.RequireFromString("5200.00"),
		AssessmentRef:     "ASM-REPO-TEST",
		PickupAddress:     "14 MG Road, Bengaluru",
		PickupLocation:    types.GeoPoint{Lat: 12.9716, Lng: 77.5946},
		PickupWindowStart: time.Now().Add(24 * time.Hour),
		PickupWindowEnd:   time.Now().Add(28 * time.Hour),
	}
	if err := tx.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func seedPartner(t *testing.T, tx *gorm.DB) *models.Partner {
	t.Helper()

	partner := &models.Partner{
		ID:                  uuid.New(),
		Name:                fmt.Sprintf("tz_test_partner_%s", uuid.NewString()),
		Location:            types.GeoPoint{Lat: 12.9352, Lng: 77.6245},
		ServiceRadiusMeters: 15000,
	}
	if err := tx.Create(partner).Error; err != nil {
		t.Fatalf("create partner: %v", err)
	}
	return partner
}

func TestRepositoryClaimFlow(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	order := seedOpenOrder(t, tx)
	partner := seedPartner(t, tx)

	claimed, err := repo.ClaimSellOrder(ctx, order.ID, partner.ID, order.LockVersion)
	if err != nil {
		t.Fatalf("claim order: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim to win")
	}

	// the stale lock version must lose, the row already moved on
	again, err := repo.ClaimSellOrder(ctx, order.ID, partner.ID, order.LockVersion)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again {
		t.Fatal("expected stale claim to miss")
	}

	if err := repo.InsertClaim(ctx, &models.OrderClaim{
		OrderID:   order.ID,
		PartnerID: partner.ID,
		Outcome:   enums.ClaimOutcomePending,
	}); err != nil {
		t.Fatalf("insert claim: %v", err)
	}

	rival := seedPartner(t, tx)
	dup := repo.InsertClaim(ctx, &models.OrderClaim{
		OrderID:   order.ID,
		PartnerID: rival.ID,
		Outcome:   enums.ClaimOutcomePending,
	})
	if !pkgerrors.HasCode(dup, pkgerrors.CodeAlreadyClaimed) {
		t.Fatalf("expected ALREADY_CLAIMED for second live claim, got %v", dup)
	}

	fetched, err := repo.FindSellOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if fetched.Status != enums.SellOrderStatusPendingAcceptance {
		t.Fatalf("unexpected status %s", fetched.Status)
	}
	if fetched.AssignedPartnerID == nil || *fetched.AssignedPartnerID != partner.ID {
		t.Fatal("partner not assigned")
	}
	if fetched.LockVersion != order.LockVersion+1 {
		t.Fatalf("lock version not bumped, got %d", fetched.LockVersion)
	}
	if len(fetched.Claims) != 1 {
		t.Fatalf("expected 1 claim row, got %d", len(fetched.Claims))
	}

	if err := repo.FinalizeClaim(ctx, order.ID, partner.ID, enums.ClaimOutcomeAccepted, time.Now()); err != nil {
		t.Fatalf("finalize claim: %v", err)
	}

	repeat := repo.FinalizeClaim(ctx, order.ID, partner.ID, enums.ClaimOutcomeAccepted, time.Now())
	if !pkgerrors.HasCode(repeat, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION for double finalize, got %v", repeat)
	}
}

func TestRepositoryGuardedUpdate(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	order := seedOpenOrder(t, tx)

	updated, err := repo.UpdateSellOrderGuarded(ctx, order.ID, order.LockVersion, map[string]any{
		"status": enums.SellOrderStatusCancelled,
	})
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if !updated {
		t.Fatal("expected guarded update to apply")
	}

	stale, err := repo.UpdateSellOrderGuarded(ctx, order.ID, order.LockVersion, map[string]any{
		"status": enums.SellOrderStatusOpen,
	})
	if err != nil {
		t.Fatalf("stale guarded update: %v", err)
	}
	if stale {
		t.Fatal("expected stale guarded update to miss")
	}
}
