package repos

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// one shared in-memory db per test, alive as long as its pool is open
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.QueryEscape(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.Requirement{},
		&types.Task{},
		&types.FunctionalPoint{},
		&types.TestCase{},
		&types.DocumentChunk{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedTask(t *testing.T, repo TaskRepo, taskID, status string) *types.Task {
	t.Helper()
	now := time.Now()
	task := &types.Task{
		TaskID:    taskID,
		RequireID: "REQ-20250101120000-123",
		TaskType:  types.TaskTypePointAnalysis,
		Status:    status,
		Message:   "waiting to start",
		StartTime: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), nil, task))
	return task
}

func TestTaskRepoGetByIDMissingReturnsNil(t *testing.T) {
	repo := NewTaskRepo(newTestDB(t), logger.NewNop())

	task, err := repo.GetByID(context.Background(), nil, "TASK-DEADBEEF-12345")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestTaskRepoUpdateFieldsStampsEndTimeOnTerminalStatus(t *testing.T) {
	repo := NewTaskRepo(newTestDB(t), logger.NewNop())
	seedTask(t, repo, "TASK-AAAA1111-10001", types.TaskStatusProcessing)

	rows, err := repo.UpdateFields(context.Background(), nil, "TASK-AAAA1111-10001", map[string]interface{}{
		"status":   types.TaskStatusCompleted,
		"progress": 100,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	task, err := repo.GetByID(context.Background(), nil, "TASK-AAAA1111-10001")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, types.TaskStatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.NotNil(t, task.EndTime)
	assert.True(t, task.Terminal())
}

func TestTaskRepoUpdateFieldsLeavesEndTimeForNonTerminalStatus(t *testing.T) {
	repo := NewTaskRepo(newTestDB(t), logger.NewNop())
	seedTask(t, repo, "TASK-BBBB2222-10002", types.TaskStatusPending)

	_, err := repo.UpdateFields(context.Background(), nil, "TASK-BBBB2222-10002", map[string]interface{}{
		"status":   types.TaskStatusProcessing,
		"progress": 10,
	})
	require.NoError(t, err)

	task, err := repo.GetByID(context.Background(), nil, "TASK-BBBB2222-10002")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Nil(t, task.EndTime)
	assert.False(t, task.Terminal())
}

func TestTaskRepoUpdateFieldsMissingTaskAffectsZeroRows(t *testing.T) {
	repo := NewTaskRepo(newTestDB(t), logger.NewNop())

	rows, err := repo.UpdateFields(context.Background(), nil, "TASK-CCCC3333-10003", map[string]interface{}{
		"status": types.TaskStatusFailed,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}

func TestTaskRepoListPaginatesAndSorts(t *testing.T) {
	repo := NewTaskRepo(newTestDB(t), logger.NewNop())
	for i, id := range []string{"TASK-00000001-10001", "TASK-00000002-10002", "TASK-00000003-10003"} {
		task := seedTask(t, repo, id, types.TaskStatusPending)
		_, err := repo.UpdateFields(context.Background(), nil, task.TaskID, map[string]interface{}{
			"progress": i * 10,
		})
		require.NoError(t, err)
	}

	tasks, total, err := repo.List(context.Background(), nil, 1, 2, "progress", "asc")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, tasks, 2)
	assert.Equal(t, "TASK-00000001-10001", tasks[0].TaskID)

	// unknown sort column falls back to created_at
	tasks, _, err = repo.List(context.Background(), nil, 1, 10, "; drop table tasks", "desc")
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}
