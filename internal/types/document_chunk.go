package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentChunk is one slice of an uploaded document, embedded for the
// semantic-search index. Embedding is a JSON-encoded float vector.
type DocumentChunk struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequireID string         `gorm:"column:require_id;not null;index" json:"require_id"`
	Index     int            `gorm:"column:chunk_index;not null" json:"index"`
	Text      string         `gorm:"column:text;type:text;not null" json:"text"`
	Embedding datatypes.JSON `gorm:"column:embedding" json:"embedding"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (DocumentChunk) TableName() string { return "document_chunks" }
