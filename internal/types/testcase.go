package types

import (
	"time"

	"gorm.io/datatypes"
)

// TestCase is a structured manual test scenario generated for one
// functional point. List-valued fields are stored as JSON text columns.
// The workflow flags default false and are flipped by review endpoints.
type TestCase struct {
	CaseID         string         `gorm:"column:case_id;primaryKey" json:"case_id"`
	TaskID         string         `gorm:"column:task_id;not null;index" json:"task_id"`
	RequireID      string         `gorm:"column:require_id;not null;index" json:"require_id"`
	CaseName       string         `gorm:"column:case_name;not null" json:"case_name"`
	Preconditions  datatypes.JSON `gorm:"column:preconditions" json:"preconditions"`
	TestSteps      datatypes.JSON `gorm:"column:test_steps" json:"test_steps"`
	ExpectedResult datatypes.JSON `gorm:"column:expected_result" json:"expected_result"`
	Priority       string         `gorm:"column:priority" json:"priority"` // P0-P3
	TestType       datatypes.JSON `gorm:"column:test_type" json:"test_type"`
	IsCreated      bool           `gorm:"column:is_created;not null;default:false" json:"is_created"`
	IsModified     bool           `gorm:"column:is_modified;not null;default:false" json:"is_modified"`
	IsAccepted     bool           `gorm:"column:is_accepted;not null;default:false" json:"is_accepted"`
	IsReviewed     bool           `gorm:"column:is_reviewed;not null;default:false" json:"is_reviewed"`
	IsVerified     bool           `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (TestCase) TableName() string { return "testcases" }
