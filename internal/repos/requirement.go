package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

type RequirementRepo interface {
	// Upsert inserts the requirement or, when require_id already exists,
	// overwrites all non-key columns.
	Upsert(ctx context.Context, tx *gorm.DB, req *types.Requirement) error
	GetByID(ctx context.Context, tx *gorm.DB, requireID string) (*types.Requirement, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Requirement, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, requireID string, updates map[string]interface{}) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, requireID string) (int64, error)
}

type requirementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequirementRepo(db *gorm.DB, baseLog *logger.Logger) RequirementRepo {
	return &requirementRepo{db: db, log: baseLog.With("repo", "RequirementRepo")}
}

func (r *requirementRepo) Upsert(ctx context.Context, tx *gorm.DB, req *types.Requirement) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if req == nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "require_id"}},
			UpdateAll: true,
		}).
		Create(req).Error
}

func (r *requirementRepo) GetByID(ctx context.Context, tx *gorm.DB, requireID string) (*types.Requirement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if requireID == "" {
		return nil, nil
	}
	var req types.Requirement
	err := transaction.WithContext(ctx).
		Where("require_id = ?", requireID).
		Limit(1).
		Find(&req).Error
	if err != nil {
		return nil, err
	}
	if req.RequireID == "" {
		return nil, nil
	}
	return &req, nil
}

func (r *requirementRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Requirement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var reqs []*types.Requirement
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requirementRepo) UpdateFields(ctx context.Context, tx *gorm.DB, requireID string, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if requireID == "" || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.Requirement{}).
		Where("require_id = ?", requireID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *requirementRepo) Delete(ctx context.Context, tx *gorm.DB, requireID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if requireID == "" {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("require_id = ?", requireID).
		Delete(&types.Requirement{})
	return res.RowsAffected, res.Error
}
