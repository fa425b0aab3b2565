package partners

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeinz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
)

// Repository reads partner and agent records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListAgents(ctx context.Context, partnerID uuid.UUID) ([]models.Agent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading partner")
	}
	return &partner, nil
}

func (r *repository) FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading agent")
	}
	return &agent, nil
}

func (r *repository) ListAgents(ctx context.Context, partnerID uuid.UUID) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("display_name asc").
		Find(&agents).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing agents")
	}
	return agents, nil
}
