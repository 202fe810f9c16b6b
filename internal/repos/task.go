package repos

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

var taskSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"start_time": true,
	"end_time":   true,
	"progress":   true,
	"status":     true,
	"task_type":  true,
}

type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *types.Task) error
	GetByID(ctx context.Context, tx *gorm.DB, taskID string) (*types.Task, error)

	// UpdateFields merges the given fields and stamps updated_at; a status
	// transition to a terminal state also stamps end_time. Returns the
	// number of affected rows.
	UpdateFields(ctx context.Context, tx *gorm.DB, taskID string, updates map[string]interface{}) (int64, error)

	List(ctx context.Context, tx *gorm.DB, page, size int, sort, order string) ([]*types.Task, int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.Task) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if task == nil {
		return fmt.Errorf("task required")
	}
	return transaction.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, taskID string) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == "" {
		return nil, nil
	}
	var task types.Task
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.TaskID == "" {
		return nil, nil
	}
	return &task, nil
}

func (r *taskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, taskID string, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == "" {
		return 0, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	now := time.Now()
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = now
	}
	if status, ok := updates["status"]; ok {
		if s, _ := status.(string); s == types.TaskStatusCompleted || s == types.TaskStatusFailed {
			if _, ok := updates["end_time"]; !ok {
				updates["end_time"] = now
			}
		}
	}
	res := transaction.WithContext(ctx).
		Model(&types.Task{}).
		Where("task_id = ?", taskID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *taskRepo) List(ctx context.Context, tx *gorm.DB, page, size int, sort, order string) ([]*types.Task, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if !taskSortColumns[sort] {
		sort = "created_at"
	}
	if order != "asc" {
		order = "desc"
	}

	var total int64
	if err := transaction.WithContext(ctx).Model(&types.Task{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []*types.Task
	err := transaction.WithContext(ctx).
		Order(fmt.Sprintf("%s %s", sort, order)).
		Limit(size).
		Offset((page - 1) * size).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}
