package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

type TestcaseRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, cases []*types.TestCase) error
	GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.TestCase, error)
	GetByRequireID(ctx context.Context, tx *gorm.DB, requireID string) ([]*types.TestCase, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, caseID string, updates map[string]interface{}) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, caseID string) (int64, error)
}

type testcaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestcaseRepo(db *gorm.DB, baseLog *logger.Logger) TestcaseRepo {
	return &testcaseRepo{db: db, log: baseLog.With("repo", "TestcaseRepo")}
}

func (r *testcaseRepo) Upsert(ctx context.Context, tx *gorm.DB, cases []*types.TestCase) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(cases) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "case_id"}},
			UpdateAll: true,
		}).
		Create(&cases).Error
}

func (r *testcaseRepo) GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.TestCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == "" {
		return []*types.TestCase{}, nil
	}
	var rows []*types.TestCase
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *testcaseRepo) GetByRequireID(ctx context.Context, tx *gorm.DB, requireID string) ([]*types.TestCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if requireID == "" {
		return []*types.TestCase{}, nil
	}
	var rows []*types.TestCase
	err := transaction.WithContext(ctx).
		Where("require_id = ?", requireID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *testcaseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, caseID string, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if caseID == "" || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.TestCase{}).
		Where("case_id = ?", caseID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *testcaseRepo) Delete(ctx context.Context, tx *gorm.DB, caseID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if caseID == "" {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Delete(&types.TestCase{})
	return res.RowsAffected, res.Error
}
