package types

import (
	"time"

	"gorm.io/datatypes"
)

// FunctionalPoint is an atomic testable behavior extracted from one
// requirement chunk by the point-analysis pipeline. Chunks carries the
// verbatim requirement excerpt the point was extracted from.
type FunctionalPoint struct {
	PointID        string         `gorm:"column:point_id;primaryKey" json:"point_id"`
	TaskID         string         `gorm:"column:task_id;not null;index" json:"task_id"`
	RequireID      string         `gorm:"column:require_id;not null;index" json:"require_id"`
	Module         string         `gorm:"column:module" json:"module"`
	BusinessDomain string         `gorm:"column:business_domain" json:"business_domain"`
	FunctionName   string         `gorm:"column:function_name;not null" json:"function_name"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	TestType       string         `gorm:"column:test_type" json:"test_type"`
	Chunks         string         `gorm:"column:chunks;type:text" json:"chunks"`
	Preconditions  datatypes.JSON `gorm:"column:preconditions" json:"preconditions"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (FunctionalPoint) TableName() string { return "points" }
