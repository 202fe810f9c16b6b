package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/types"
	"github.com/taoyanli0808/husky/internal/utils"
)

var (
	failureTermRe  = regexp.MustCompile(`(?i)(fail|error|exception|invalid)`)
	coverageTermRe = regexp.MustCompile(`(?i)(all|every|complete|entire)`)
	ioPairRe       = regexp.MustCompile(`(?is)(input|parameter|condition).*?(output|result)`)
	vagueTermRe    = regexp.MustCompile(`(?i)(may |maybe|approximately|roughly|several|as appropriate|etc\.)`)
	actorTermRe    = regexp.MustCompile(`(?i)\b(user|customer|member)\b`)
)

// IngestResult is what the upload endpoint returns to the caller: the stored
// requirement row plus the number of chunks added to the knowledge index.
type IngestResult struct {
	Requirement *types.Requirement `json:"requirement"`
	AddedNodes  int                `json:"added_nodes"`
}

// RequirementService handles document ingestion and requirement CRUD.
type RequirementService interface {
	IngestDocument(ctx context.Context, filename string, data []byte) (*IngestResult, error)
	List(ctx context.Context) ([]*types.Requirement, error)
	Update(ctx context.Context, requireID string, updates map[string]interface{}) (*types.Requirement, error)

	// Delete removes the requirement row and its index entries. Returns the
	// number of deleted requirement rows, 0 when the id is unknown.
	Delete(ctx context.Context, requireID string) (int64, error)
}

type requirementService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.RequirementRepo
	ai        LLMClient
	knowledge KnowledgeService
}

func NewRequirementService(db *gorm.DB, baseLog *logger.Logger, repo repos.RequirementRepo, ai LLMClient, knowledge KnowledgeService) RequirementService {
	return &requirementService{
		db:        db,
		log:       baseLog.With("service", "RequirementService"),
		repo:      repo,
		ai:        ai,
		knowledge: knowledge,
	}
}

// IngestDocument extracts text from the upload, asks the model for metadata,
// scores quality, persists the requirement and feeds the knowledge index.
func (s *requirementService) IngestDocument(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("document %q contains no text", filename)
	}

	requireID := utils.NewRequireID()

	meta, err := s.ai.CompleteJSON(ctx, RenderRequirementMetadataPrompt(text, filename), KeyDescription)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	tags := ToStringList(meta["tags"])
	if len(tags) == 0 {
		tags = []string{"auto-import"}
	}

	score := analyzeQuality(text)
	now := time.Now()
	requirement := &types.Requirement{
		RequireID:      requireID,
		RequireName:    filename,
		Description:    stringFromAny(meta[KeyDescription]),
		OriginalText:   text,
		BusinessDomain: stringFromAny(meta["business_domain"]),
		Module:         stringFromAny(meta["module"]),
		QualityScore:   MustJSON(score),
		TotalScore:     score.Mean(),
		Tags:           MustJSON(tags),
		Source:         filename,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Upsert(ctx, nil, requirement); err != nil {
		return nil, fmt.Errorf("store requirement: %w", err)
	}

	added := 0
	if s.knowledge != nil {
		if err := s.knowledge.AddDocument(ctx, requireID, filename, text); err != nil {
			// The requirement row is already durable; a broken index entry
			// only degrades search.
			s.log.Warn("Knowledge indexing failed", "require_id", requireID, "error", err)
		} else {
			added = len(chunkText(text, chunkSizeRunes, chunkOverlapRunes))
		}
	}

	s.log.Info("Ingested requirement document",
		"require_id", requireID,
		"filename", filename,
		"total_score", requirement.TotalScore,
		"added_nodes", added,
	)
	return &IngestResult{Requirement: requirement, AddedNodes: added}, nil
}

func (s *requirementService) List(ctx context.Context) ([]*types.Requirement, error) {
	return s.repo.List(ctx, nil)
}

func (s *requirementService) Update(ctx context.Context, requireID string, updates map[string]interface{}) (*types.Requirement, error) {
	rows, err := s.repo.UpdateFields(ctx, nil, requireID, updates)
	if err != nil {
		return nil, fmt.Errorf("update requirement: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	return s.repo.GetByID(ctx, nil, requireID)
}

func (s *requirementService) Delete(ctx context.Context, requireID string) (int64, error) {
	rows, err := s.repo.Delete(ctx, nil, requireID)
	if err != nil {
		return 0, fmt.Errorf("delete requirement: %w", err)
	}
	if s.knowledge != nil {
		if err := s.knowledge.RemoveDocument(ctx, requireID); err != nil {
			s.log.Warn("Knowledge removal failed", "require_id", requireID, "error", err)
		}
	}
	return rows, nil
}

// analyzeQuality scores the document on four 0-5 axes with cheap lexical
// heuristics. Completeness rewards failure and coverage language, testability
// counts input/output pairings, clarity penalizes vague wording, consistency
// penalizes mixing actor terms.
func analyzeQuality(text string) types.QualityScore {
	completeness := 3
	if failureTermRe.MatchString(text) {
		completeness++
	}
	if coverageTermRe.MatchString(text) {
		completeness++
	}

	testability := len(ioPairRe.FindAllString(text, 6))

	clarity := 5 - len(vagueTermRe.FindAllString(text, 6))

	consistency := 5
	actors := map[string]bool{}
	for _, m := range actorTermRe.FindAllString(text, -1) {
		actors[strings.ToLower(m)] = true
	}
	if len(actors) > 1 {
		consistency -= 2
	}

	return types.QualityScore{
		Completeness: clampScore(completeness),
		Testability:  clampScore(testability),
		Clarity:      clampScore(clarity),
		Consistency:  clampScore(consistency),
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
