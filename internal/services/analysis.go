package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/types"
)

// ErrQueueFull is returned by the enqueue methods when the worker pool's
// backlog is at capacity; the task row is marked failed before returning.
var ErrQueueFull = errors.New("analysis worker queue is full")

// AnalysisService drives the two analysis pipelines. One pipeline run is one
// job on a bounded worker pool; stages within a run are strictly sequential
// and all task-state writes go through the durable task row.
type AnalysisService interface {
	EnqueuePointAnalysis(ctx context.Context, taskID, requireID string) (*types.Task, error)
	EnqueueTestcaseAnalysis(ctx context.Context, taskID, requireID string, pointIDs []string) (*types.Task, error)

	// Cancel forces the task row to failed. It does not interrupt an
	// in-flight worker: a stage write racing the cancellation wins or loses
	// on last-writer-wins semantics over the task row.
	Cancel(ctx context.Context, taskID string) error

	GetStatus(ctx context.Context, taskID string) (*types.Task, error)
	StartWorkers(ctx context.Context)
}

type analysisJob struct {
	taskID    string
	taskType  string
	requireID string
	pointIDs  []string
}

type analysisService struct {
	db  *gorm.DB
	log *logger.Logger

	requirementRepo repos.RequirementRepo
	taskRepo        repos.TaskRepo
	pointRepo       repos.PointRepo

	ai           LLMClient
	materializer ResultMaterializer
	cache        *TaskStatusCache

	jobs    chan analysisJob
	workers int
}

func NewAnalysisService(
	db *gorm.DB,
	baseLog *logger.Logger,
	requirementRepo repos.RequirementRepo,
	taskRepo repos.TaskRepo,
	pointRepo repos.PointRepo,
	ai LLMClient,
	materializer ResultMaterializer,
	cache *TaskStatusCache,
	workers int,
	queueSize int,
) AnalysisService {
	if workers < 1 {
		workers = 2
	}
	if queueSize < 1 {
		queueSize = 16
	}
	return &analysisService{
		db:              db,
		log:             baseLog.With("service", "AnalysisService"),
		requirementRepo: requirementRepo,
		taskRepo:        taskRepo,
		pointRepo:       pointRepo,
		ai:              ai,
		materializer:    materializer,
		cache:           cache,
		jobs:            make(chan analysisJob, queueSize),
		workers:         workers,
	}
}

func (s *analysisService) EnqueuePointAnalysis(ctx context.Context, taskID, requireID string) (*types.Task, error) {
	return s.enqueue(ctx, analysisJob{
		taskID:    taskID,
		taskType:  types.TaskTypePointAnalysis,
		requireID: requireID,
	})
}

func (s *analysisService) EnqueueTestcaseAnalysis(ctx context.Context, taskID, requireID string, pointIDs []string) (*types.Task, error) {
	return s.enqueue(ctx, analysisJob{
		taskID:    taskID,
		taskType:  types.TaskTypeTestcaseAnalysis,
		requireID: requireID,
		pointIDs:  pointIDs,
	})
}

func (s *analysisService) enqueue(ctx context.Context, job analysisJob) (*types.Task, error) {
	now := time.Now()
	task := &types.Task{
		TaskID:    job.taskID,
		RequireID: job.requireID,
		TaskType:  job.taskType,
		Status:    types.TaskStatusPending,
		Progress:  0,
		Message:   "waiting to start",
		StartTime: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.taskRepo.Create(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	select {
	case s.jobs <- job:
		return task, nil
	default:
		s.updateTask(ctx, job.taskID, map[string]interface{}{
			"status":  types.TaskStatusFailed,
			"message": ErrQueueFull.Error(),
		})
		return nil, ErrQueueFull
	}
}

func (s *analysisService) StartWorkers(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		workerLog := s.log.With("worker", i)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-s.jobs:
					workerLog.Info("Picked up analysis job", "task_id", job.taskID, "task_type", job.taskType)
					switch job.taskType {
					case types.TaskTypePointAnalysis:
						s.processPointAnalysis(ctx, job)
					case types.TaskTypeTestcaseAnalysis:
						s.processTestcaseAnalysis(ctx, job)
					default:
						workerLog.Warn("Unknown task type", "task_id", job.taskID, "task_type", job.taskType)
					}
				}
			}
		}()
	}
}

func (s *analysisService) Cancel(ctx context.Context, taskID string) error {
	rows, err := s.taskRepo.UpdateFields(ctx, nil, taskID, map[string]interface{}{
		"status":  types.TaskStatusFailed,
		"message": "Task cancelled by user",
	})
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	s.cache.Invalidate(ctx, taskID)
	if rows == 0 {
		return fmt.Errorf("task %s not found", taskID)
	}
	return nil
}

func (s *analysisService) GetStatus(ctx context.Context, taskID string) (*types.Task, error) {
	if task, ok := s.cache.Get(ctx, taskID); ok {
		return task, nil
	}
	task, err := s.taskRepo.GetByID(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if task != nil {
		s.cache.Set(ctx, task)
	}
	return task, nil
}

// updateTask is the single write path for task state; it keeps the cache
// coherent with the durable row.
func (s *analysisService) updateTask(ctx context.Context, taskID string, updates map[string]interface{}) {
	if _, err := s.taskRepo.UpdateFields(ctx, nil, taskID, updates); err != nil {
		s.log.Error("Task update failed", "task_id", taskID, "error", err)
	}
	s.cache.Invalidate(ctx, taskID)
}

// Point-analysis pipeline: pending -> chunking -> extraction ->
// materializing -> completed, with the contractual progress checkpoints
// 10/30/90/100 the status-polling UI depends on.
func (s *analysisService) processPointAnalysis(ctx context.Context, job analysisJob) {
	taskID := job.taskID
	requireID := job.requireID

	fail := func(err error) {
		s.log.Error("Point analysis failed", "task_id", taskID, "require_id", requireID, "error", err)
		s.updateTask(ctx, taskID, map[string]interface{}{
			"status":  types.TaskStatusFailed,
			"message": err.Error(),
		})
	}

	progress := func(pct int, msg string) {
		s.updateTask(ctx, taskID, map[string]interface{}{
			"status":   types.TaskStatusProcessing,
			"progress": pct,
			"message":  msg,
		})
	}

	progress(10, "chunking requirements")

	requirement, err := s.requirementRepo.GetByID(ctx, nil, requireID)
	if err != nil {
		fail(fmt.Errorf("load requirement: %w", err))
		return
	}
	if requirement == nil || requirement.OriginalText == "" {
		fail(fmt.Errorf("requirement %s not found or has no text", requireID))
		return
	}

	chunkObj, err := s.ai.CompleteJSON(ctx, RenderChunkingPrompt(requirement.OriginalText), KeyChunks)
	if err != nil {
		fail(fmt.Errorf("chunk requirement: %w", err))
		return
	}
	chunks := decodeModuleChunks(chunkObj[KeyChunks])
	if len(chunks) == 0 {
		fail(fmt.Errorf("chunking produced no modules"))
		return
	}

	progress(30, "chunking complete; extracting points")

	for _, chunk := range chunks {
		pointObj, err := s.ai.CompleteJSON(ctx, RenderPointExtractionPrompt(chunk.Module, chunk.BusinessDomain, chunk.Chunks), KeyPoints)
		if err != nil {
			fail(fmt.Errorf("extract points for module %q: %w", chunk.Module, err))
			return
		}
		chunk.Points = decodeObjectList(pointObj[KeyPoints])
	}

	progress(90, "saving results")

	count, err := s.materializer.MaterializePoints(ctx, taskID, requireID, chunks)
	if err != nil {
		fail(fmt.Errorf("materialize points: %w", err))
		return
	}

	s.updateTask(ctx, taskID, map[string]interface{}{
		"status":   types.TaskStatusCompleted,
		"progress": 100,
		"message":  "task completed",
		"result": MustJSON(map[string]any{
			"points_count": count,
			"require_id":   requireID,
		}),
	})
	s.log.Info("Point analysis completed", "task_id", taskID, "require_id", requireID, "points", count)
}

// Testcase-analysis pipeline: pending -> fetching -> generating ->
// materializing -> completed, checkpoints 20/90/100.
func (s *analysisService) processTestcaseAnalysis(ctx context.Context, job analysisJob) {
	taskID := job.taskID
	requireID := job.requireID

	fail := func(err error) {
		s.log.Error("Testcase analysis failed", "task_id", taskID, "require_id", requireID, "error", err)
		s.updateTask(ctx, taskID, map[string]interface{}{
			"status":  types.TaskStatusFailed,
			"message": err.Error(),
		})
	}

	progress := func(pct int, msg string) {
		s.updateTask(ctx, taskID, map[string]interface{}{
			"status":   types.TaskStatusProcessing,
			"progress": pct,
			"message":  msg,
		})
	}

	progress(20, "fetching requirement and points")

	requirement, err := s.requirementRepo.GetByID(ctx, nil, requireID)
	if err != nil {
		fail(fmt.Errorf("load requirement: %w", err))
		return
	}
	if requirement == nil {
		fail(fmt.Errorf("requirement %s not found", requireID))
		return
	}

	points, err := s.pointRepo.GetByIDs(ctx, nil, job.pointIDs)
	if err != nil {
		fail(fmt.Errorf("load points: %w", err))
		return
	}
	if len(points) == 0 {
		fail(fmt.Errorf("no functional points found for ids %v", job.pointIDs))
		return
	}

	progress(90, "generating test cases")

	rawCases := make([]map[string]any, 0)
	for _, point := range points {
		caseObj, err := s.ai.CompleteJSON(ctx, RenderTestcasePrompt(requirement.OriginalText, point), KeyTestcases)
		if err != nil {
			fail(fmt.Errorf("generate testcases for point %s: %w", point.PointID, err))
			return
		}
		rawCases = append(rawCases, decodeObjectList(caseObj[KeyTestcases])...)
	}

	count, err := s.materializer.MaterializeTestcases(ctx, taskID, requireID, rawCases)
	if err != nil {
		fail(fmt.Errorf("materialize testcases: %w", err))
		return
	}

	s.updateTask(ctx, taskID, map[string]interface{}{
		"status":   types.TaskStatusCompleted,
		"progress": 100,
		"message":  "task completed",
		"result": MustJSON(map[string]any{
			"cases_count": count,
			"require_id":  requireID,
		}),
	})
	s.log.Info("Testcase analysis completed", "task_id", taskID, "require_id", requireID, "cases", count)
}

func decodeModuleChunks(v any) []*ModuleChunk {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]*ModuleChunk, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, &ModuleChunk{
			Module:         stringFromAny(m["module"]),
			BusinessDomain: stringFromAny(m["business_domain"]),
			Chunks:         stringFromAny(m["chunks"]),
		})
	}
	return out
}

func decodeObjectList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
