package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TaskTypePointAnalysis    = "point_analysis"
	TaskTypeTestcaseAnalysis = "testcase_analysis"

	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task tracks one pipeline run. Status moves pending -> processing ->
// completed|failed; completed and failed are terminal (cancellation forces
// failed). Progress is monotonically non-decreasing within one run.
type Task struct {
	TaskID    string         `gorm:"column:task_id;primaryKey" json:"task_id"`
	RequireID string         `gorm:"column:require_id;index" json:"require_id"`
	TaskType  string         `gorm:"column:task_type;not null;index" json:"task_type"`
	Status    string         `gorm:"column:status;not null;index" json:"status"`
	Progress  int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Message   string         `gorm:"column:message" json:"message"`
	Result    datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	StartTime *time.Time     `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime   *time.Time     `gorm:"column:end_time" json:"end_time,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

// Terminal reports whether the status admits no further transition.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
