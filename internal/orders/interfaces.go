package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	"github.com/angelmondragon/tradeinz-backend/pkg/outbox"
)

// Repository is the persistence surface for sell orders and their claim
// history. Claim-path writes are conditional updates guarded by the order's
// lock_version; a zero row count means the caller lost the race.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindSellOrder(ctx context.Context, id uuid.UUID) (*models.SellOrder, error)
	CreateSellOrder(ctx context.Context, order *models.SellOrder) error

	// ClaimSellOrder atomically moves an open, unassigned order to
	// pending_acceptance for the partner. Returns false when the guard
	// did not match, meaning another partner got there first.
	ClaimSellOrder(ctx context.Context, orderID, partnerID uuid.UUID, lockVersion int64) (bool, error)

	// UpdateSellOrderGuarded applies updates only while the lock_version
	// still matches, bumping it in the same statement.
	UpdateSellOrderGuarded(ctx context.Context, orderID uuid.UUID, lockVersion int64, updates map[string]any) (bool, error)

	InsertClaim(ctx context.Context, claim *models.OrderClaim) error
	FinalizeClaim(ctx context.Context, orderID, partnerID uuid.UUID, outcome enums.ClaimOutcome, respondedAt time.Time) error

	ListOpenOrders(ctx context.Context) ([]models.SellOrder, error)
	CountStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxRunner runs a function inside a database transaction. *db.Client
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter queues a domain event in the caller's transaction.
// *outbox.Service satisfies it.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
