package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/types"
)

const (
	chunkSizeRunes    = 512
	chunkOverlapRunes = 64
	embedBatchSize    = 16
)

// SearchResult is one semantic-search hit over the chunk index.
type SearchResult struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// KnowledgeService maintains the chunk-level semantic index over ingested
// requirement documents and answers similarity queries against it.
type KnowledgeService interface {
	AddDocument(ctx context.Context, requireID, requireName, text string) error
	RemoveDocument(ctx context.Context, requireID string) error
	Query(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

type knowledgeService struct {
	db        *gorm.DB
	log       *logger.Logger
	chunkRepo repos.DocumentChunkRepo
	ai        LLMClient
}

func NewKnowledgeService(db *gorm.DB, baseLog *logger.Logger, chunkRepo repos.DocumentChunkRepo, ai LLMClient) KnowledgeService {
	return &knowledgeService{
		db:        db,
		log:       baseLog.With("service", "KnowledgeService"),
		chunkRepo: chunkRepo,
		ai:        ai,
	}
}

// AddDocument replaces any previous index entries for the requirement, then
// chunks, embeds and stores the new text. Batches are embedded concurrently.
func (s *knowledgeService) AddDocument(ctx context.Context, requireID, requireName, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty document text for %s", requireID)
	}

	if _, err := s.chunkRepo.DeleteByRequireID(ctx, nil, requireID); err != nil {
		return fmt.Errorf("clear old chunks: %w", err)
	}

	pieces := chunkText(text, chunkSizeRunes, chunkOverlapRunes)
	rows := make([]*types.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		rows[i] = &types.DocumentChunk{
			ID:        uuid.New(),
			RequireID: requireID,
			Index:     i,
			Text:      piece,
			Metadata: MustJSON(map[string]any{
				"require_id":   requireID,
				"require_name": requireName,
				"chunk_index":  i,
			}),
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(pieces); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		start, end := start, end
		g.Go(func() error {
			vectors, err := s.ai.Embed(gctx, pieces[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for i, vec := range vectors {
				rows[start+i].Embedding = MustJSON(vec)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.chunkRepo.Create(ctx, nil, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	s.log.Info("Indexed document", "require_id", requireID, "chunks", len(rows))
	return nil
}

func (s *knowledgeService) RemoveDocument(ctx context.Context, requireID string) error {
	_, err := s.chunkRepo.DeleteByRequireID(ctx, nil, requireID)
	return err
}

// Query embeds the query text and ranks all stored chunks by cosine
// similarity. The index is small enough that a full scan is fine.
func (s *knowledgeService) Query(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK < 1 {
		topK = 5
	}

	vectors, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := vectors[0]

	chunks, err := s.chunkRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		var vec []float32
		if err := json.Unmarshal(chunk.Embedding, &vec); err != nil || len(vec) == 0 {
			continue
		}
		score := cosineSimilarity(queryVec, vec)
		var meta map[string]any
		_ = json.Unmarshal(chunk.Metadata, &meta)
		results = append(results, SearchResult{
			Text:     chunk.Text,
			Score:    score,
			Metadata: meta,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// chunkText splits on rune boundaries with overlap between adjacent chunks so
// sentences cut at a boundary still appear whole in one of them.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if size < 1 {
		size = chunkSizeRunes
	}
	if overlap >= size {
		overlap = size / 8
	}

	step := size - overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
