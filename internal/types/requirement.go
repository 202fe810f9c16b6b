package types

import (
	"time"

	"gorm.io/datatypes"
)

// Requirement is one ingested requirement document. External id format:
// REQ-YYYYMMDDHHMMSS-NNN.
type Requirement struct {
	RequireID      string         `gorm:"column:require_id;primaryKey" json:"require_id"`
	RequireName    string         `gorm:"column:require_name;not null" json:"require_name"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	OriginalText   string         `gorm:"column:original_text;type:text" json:"original_text"`
	BusinessDomain string         `gorm:"column:business_domain" json:"business_domain"`
	Module         string         `gorm:"column:module" json:"module"`
	QualityScore   datatypes.JSON `gorm:"column:quality_score" json:"quality_score"` // {completeness,testability,clarity,consistency}, each 0-5
	TotalScore     float64        `gorm:"column:total_score;not null;default:0" json:"total_score"`
	Tags           datatypes.JSON `gorm:"column:tags" json:"tags"`
	Source         string         `gorm:"column:source" json:"source"`
	IsDeleted      bool           `gorm:"column:is_deleted;not null;default:false" json:"is_deleted"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (Requirement) TableName() string { return "requirements" }

// QualityScore holds the four component scores, each on a 0-5 scale.
type QualityScore struct {
	Completeness int `json:"completeness"`
	Testability  int `json:"testability"`
	Clarity      int `json:"clarity"`
	Consistency  int `json:"consistency"`
}

// Mean is the arithmetic mean of the four component scores.
func (q QualityScore) Mean() float64 {
	return float64(q.Completeness+q.Testability+q.Clarity+q.Consistency) / 4.0
}
