package orders

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeinz-backend/pkg/db"
	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindSellOrder(ctx context.Context, id uuid.UUID) (*models.SellOrder, error) {
	var order models.SellOrder
	err := r.db.WithContext(ctx).
		Preload("Claims", func(q *gorm.DB) *gorm.DB {
			return q.Order("assigned_at asc")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

func (r *repository) CreateSellOrder(ctx context.Context, order *models.SellOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order number already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}
	return nil
}

func (r *repository) ClaimSellOrder(ctx context.Context, orderID, partnerID uuid.UUID, lockVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SellOrder{}).
		Where(
			"id = ? AND status = ? AND assigned_partner_id IS NULL AND lock_version = ?",
			orderID, enums.SellOrderStatusOpen, lockVersion,
		).
		Updates(map[string]any{
			"status":              enums.SellOrderStatusPendingAcceptance,
			"assigned_partner_id": partnerID,
			"lock_version":        gorm.Expr("lock_version + 1"),
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "claiming order")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateSellOrderGuarded(ctx context.Context, orderID uuid.UUID, lockVersion int64, updates map[string]any) (bool, error) {
	merged := map[string]any{
		"lock_version": gorm.Expr("lock_version + 1"),
		"updated_at":   time.Now(),
	}
	for column, value := range updates {
		merged[column] = value
	}

	res := r.db.WithContext(ctx).
		Model(&models.SellOrder{}).
		Where("id = ? AND lock_version = ?", orderID, lockVersion).
		Updates(merged)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "updating order")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertClaim(ctx context.Context, claim *models.OrderClaim) error {
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeAlreadyClaimed, err, "order already has a live claim")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording claim")
	}
	return nil
}

func (r *repository) FinalizeClaim(ctx context.Context, orderID, partnerID uuid.UUID, outcome enums.ClaimOutcome, respondedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.OrderClaim{}).
		Where(
			"order_id = ? AND partner_id = ? AND outcome = ?",
			orderID, partnerID, enums.ClaimOutcomePending,
		).
		Updates(map[string]any{
			"outcome":      outcome,
			"responded_at": respondedAt,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "finalizing claim")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "no pending claim to finalize")
	}
	return nil
}

func (r *repository) ListOpenOrders(ctx context.Context) ([]models.SellOrder, error) {
	var rows []models.SellOrder
	err := r.db.WithContext(ctx).
		Preload("Claims", func(q *gorm.DB) *gorm.DB {
			return q.Order("assigned_at asc")
		}).
		Where("status = ?", enums.SellOrderStatusOpen).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing open orders")
	}
	return rows, nil
}

func (r *repository) CountStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SellOrder{}).
		Where("status = ? AND updated_at < ?", enums.SellOrderStatusPendingAcceptance, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting stale pending orders")
	}
	return count, nil
}
