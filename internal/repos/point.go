package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

type PointRepo interface {
	// Upsert inserts the rows, overwriting all non-key columns for any
	// point_id that already exists (idempotent re-materialization).
	Upsert(ctx context.Context, tx *gorm.DB, points []*types.FunctionalPoint) error

	// GetByIDs returns points in the order the ids were given; ids with no
	// matching row are skipped.
	GetByIDs(ctx context.Context, tx *gorm.DB, pointIDs []string) ([]*types.FunctionalPoint, error)
	GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.FunctionalPoint, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, pointID string, updates map[string]interface{}) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, pointID string) (int64, error)
}

type pointRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPointRepo(db *gorm.DB, baseLog *logger.Logger) PointRepo {
	return &pointRepo{db: db, log: baseLog.With("repo", "PointRepo")}
}

func (r *pointRepo) Upsert(ctx context.Context, tx *gorm.DB, points []*types.FunctionalPoint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(points) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "point_id"}},
			UpdateAll: true,
		}).
		Create(&points).Error
}

func (r *pointRepo) GetByIDs(ctx context.Context, tx *gorm.DB, pointIDs []string) ([]*types.FunctionalPoint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(pointIDs) == 0 {
		return []*types.FunctionalPoint{}, nil
	}
	var rows []*types.FunctionalPoint
	if err := transaction.WithContext(ctx).
		Where("point_id IN ?", pointIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*types.FunctionalPoint, len(rows))
	for _, p := range rows {
		byID[p.PointID] = p
	}
	ordered := make([]*types.FunctionalPoint, 0, len(pointIDs))
	for _, id := range pointIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *pointRepo) GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.FunctionalPoint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == "" {
		return []*types.FunctionalPoint{}, nil
	}
	var rows []*types.FunctionalPoint
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *pointRepo) UpdateFields(ctx context.Context, tx *gorm.DB, pointID string, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pointID == "" || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.FunctionalPoint{}).
		Where("point_id = ?", pointID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *pointRepo) Delete(ctx context.Context, tx *gorm.DB, pointID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pointID == "" {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("point_id = ?", pointID).
		Delete(&types.FunctionalPoint{})
	return res.RowsAffected, res.Error
}
