package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/types"
	"github.com/taoyanli0808/husky/internal/utils"
)

// ModuleChunk is the pipeline's working memory for one requirement module:
// the chunking stage fills the header fields, the extraction stage attaches
// the raw point objects returned by the model.
type ModuleChunk struct {
	Module         string
	BusinessDomain string
	Chunks         string
	Points         []map[string]any
}

// ResultMaterializer flattens nested pipeline output into row-level records
// with generated ids and upserts them. Ids are derived from row content, so
// re-materializing the same content overwrites instead of duplicating.
type ResultMaterializer interface {
	MaterializePoints(ctx context.Context, taskID, requireID string, chunks []*ModuleChunk) (int, error)
	MaterializeTestcases(ctx context.Context, taskID, requireID string, rawCases []map[string]any) (int, error)
}

type resultMaterializer struct {
	db           *gorm.DB
	log          *logger.Logger
	pointRepo    repos.PointRepo
	testcaseRepo repos.TestcaseRepo
}

func NewResultMaterializer(db *gorm.DB, baseLog *logger.Logger, pointRepo repos.PointRepo, testcaseRepo repos.TestcaseRepo) ResultMaterializer {
	return &resultMaterializer{
		db:           db,
		log:          baseLog.With("service", "ResultMaterializer"),
		pointRepo:    pointRepo,
		testcaseRepo: testcaseRepo,
	}
}

func (m *resultMaterializer) MaterializePoints(ctx context.Context, taskID, requireID string, chunks []*ModuleChunk) (int, error) {
	now := time.Now()
	rows := make([]*types.FunctionalPoint, 0)
	seen := map[string]int{}
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}
		for _, raw := range chunk.Points {
			functionName := stringFromAny(raw["function_name"])
			pointID := utils.ContentHuskyID("POINT", requireID, chunk.Module, functionName)
			row := &types.FunctionalPoint{
				PointID:        pointID,
				TaskID:         taskID,
				RequireID:      requireID,
				Module:         chunk.Module,
				BusinessDomain: chunk.BusinessDomain,
				FunctionName:   functionName,
				Description:    stringFromAny(raw["description"]),
				TestType:       stringFromAny(raw["test_type"]),
				Chunks:         chunk.Chunks,
				Preconditions:  MustJSON(ToStringList(raw["preconditions"])),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			// duplicate content in one batch collapses onto one id; a
			// repeated key would abort a single ON CONFLICT statement
			if idx, ok := seen[pointID]; ok {
				rows[idx] = row
				continue
			}
			seen[pointID] = len(rows)
			rows = append(rows, row)
		}
	}
	if err := m.pointRepo.Upsert(ctx, nil, rows); err != nil {
		return 0, err
	}
	m.log.Info("Materialized functional points", "task_id", taskID, "require_id", requireID, "count", len(rows))
	return len(rows), nil
}

func (m *resultMaterializer) MaterializeTestcases(ctx context.Context, taskID, requireID string, rawCases []map[string]any) (int, error) {
	now := time.Now()
	rows := make([]*types.TestCase, 0, len(rawCases))
	seen := map[string]int{}
	for _, raw := range rawCases {
		caseName := stringFromAny(raw["case_name"])
		caseID := utils.ContentHuskyID("CASE", requireID, caseName)
		row := &types.TestCase{
			CaseID:         caseID,
			TaskID:         taskID,
			RequireID:      requireID,
			CaseName:       caseName,
			Preconditions:  MustJSON(ToStringList(raw["preconditions"])),
			TestSteps:      MustJSON(ToStringList(raw["test_steps"])),
			ExpectedResult: MustJSON(ToStringList(raw["expected_result"])),
			Priority:       stringFromAny(raw["priority"]),
			TestType:       MustJSON(ToStringList(raw["test_type"])),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if idx, ok := seen[caseID]; ok {
			rows[idx] = row
			continue
		}
		seen[caseID] = len(rows)
		rows = append(rows, row)
	}
	if err := m.testcaseRepo.Upsert(ctx, nil, rows); err != nil {
		return 0, err
	}
	m.log.Info("Materialized test cases", "task_id", taskID, "require_id", requireID, "count", len(rows))
	return len(rows), nil
}
