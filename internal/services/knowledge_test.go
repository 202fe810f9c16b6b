package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
)

// directionalEmbedder maps texts onto fixed axes so cosine ranking is
// predictable: payment-ish text on one axis, login-ish text on another.
type directionalEmbedder struct {
	fakeLLM
}

func (d *directionalEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		switch {
		case strings.Contains(text, "payment"):
			out[i] = []float32{1, 0}
		case strings.Contains(text, "login"):
			out[i] = []float32{0, 1}
		default:
			out[i] = []float32{0.5, 0.5}
		}
	}
	return out, nil
}

func TestChunkTextOverlapsAdjacentChunks(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100) // 1000 runes
	chunks := chunkText(text, 512, 64)
	require.Len(t, chunks, 3)
	// the tail of chunk 1 reappears at the head of chunk 2
	assert.Equal(t, chunks[0][len(chunks[0])-64:], chunks[1][:64])
}

func TestChunkTextShortInput(t *testing.T) {
	assert.Len(t, chunkText("short text", 512, 64), 1)
	assert.Empty(t, chunkText("   ", 512, 64))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}

func TestKnowledgeQueryRanksBySimilarity(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	chunkRepo := repos.NewDocumentChunkRepo(db, log)
	svc := NewKnowledgeService(db, log, chunkRepo, &directionalEmbedder{})
	ctx := context.Background()

	require.NoError(t, svc.AddDocument(ctx, "REQ-1", "payment-prd.md", "the payment gateway must retry failed charges"))
	require.NoError(t, svc.AddDocument(ctx, "REQ-2", "login-prd.md", "the login page supports phone number login"))

	results, err := svc.Query(ctx, "how does payment retry work", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "payment")
	assert.Greater(t, results[0].Score, results[len(results)-1].Score)
	assert.Equal(t, "REQ-1", results[0].Metadata["require_id"])
}

func TestKnowledgeQueryHonorsTopK(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	chunkRepo := repos.NewDocumentChunkRepo(db, log)
	svc := NewKnowledgeService(db, log, chunkRepo, &directionalEmbedder{})
	ctx := context.Background()

	require.NoError(t, svc.AddDocument(ctx, "REQ-1", "a.md", "payment text"))
	require.NoError(t, svc.AddDocument(ctx, "REQ-2", "b.md", "login text"))
	require.NoError(t, svc.AddDocument(ctx, "REQ-3", "c.md", "other text"))

	results, err := svc.Query(ctx, "payment", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestAddDocumentReplacesPreviousChunks(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	chunkRepo := repos.NewDocumentChunkRepo(db, log)
	svc := NewKnowledgeService(db, log, chunkRepo, &directionalEmbedder{})
	ctx := context.Background()

	require.NoError(t, svc.AddDocument(ctx, "REQ-1", "a.md", "first version payment text"))
	require.NoError(t, svc.AddDocument(ctx, "REQ-1", "a.md", "second version payment text"))

	chunks, err := chunkRepo.GetByRequireID(ctx, nil, "REQ-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "second version")
}

func TestKnowledgeQueryRejectsEmptyQuery(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	svc := NewKnowledgeService(db, log, repos.NewDocumentChunkRepo(db, log), &directionalEmbedder{})

	_, err := svc.Query(context.Background(), "   ", 5)
	require.Error(t, err)
}
