package repos

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

type DocumentChunkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chunks []*types.DocumentChunk) error
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.DocumentChunk, error)
	GetByRequireID(ctx context.Context, tx *gorm.DB, requireID string) ([]*types.DocumentChunk, error)
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, id string, embedding datatypes.JSON) error
	DeleteByRequireID(ctx context.Context, tx *gorm.DB, requireID string) (int64, error)
}

type documentChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentChunkRepo(db *gorm.DB, baseLog *logger.Logger) DocumentChunkRepo {
	return &documentChunkRepo{db: db, log: baseLog.With("repo", "DocumentChunkRepo")}
}

func (r *documentChunkRepo) Create(ctx context.Context, tx *gorm.DB, chunks []*types.DocumentChunk) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&chunks).Error
}

func (r *documentChunkRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.DocumentChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.DocumentChunk
	if err := transaction.WithContext(ctx).Order("require_id, chunk_index ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *documentChunkRepo) GetByRequireID(ctx context.Context, tx *gorm.DB, requireID string) ([]*types.DocumentChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if requireID == "" {
		return []*types.DocumentChunk{}, nil
	}
	var rows []*types.DocumentChunk
	err := transaction.WithContext(ctx).
		Where("require_id = ?", requireID).
		Order("chunk_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *documentChunkRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, id string, embedding datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.DocumentChunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":  embedding,
			"updated_at": time.Now(),
		}).Error
}

func (r *documentChunkRepo) DeleteByRequireID(ctx context.Context, tx *gorm.DB, requireID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if requireID == "" {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("require_id = ?", requireID).
		Delete(&types.DocumentChunk{})
	return res.RowsAffected, res.Error
}
