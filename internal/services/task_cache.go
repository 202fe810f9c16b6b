package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

// TaskStatusCache is a read-through cache in front of the task row for the
// status-polling endpoint. The durable row stays the sole source of truth:
// every orchestrator write invalidates the cached copy, and a cache miss is
// never an error. A nil *TaskStatusCache is valid and disables caching.
type TaskStatusCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewTaskStatusCache connects to redis when REDIS_ADDR is set; otherwise it
// returns (nil, nil) and callers run uncached.
func NewTaskStatusCache(log *logger.Logger) (*TaskStatusCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &TaskStatusCache{
		log: log.With("service", "TaskStatusCache"),
		rdb: rdb,
		ttl: 30 * time.Second,
	}, nil
}

func taskCacheKey(taskID string) string { return "husky:task:" + taskID }

func (c *TaskStatusCache) Get(ctx context.Context, taskID string) (*types.Task, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, taskCacheKey(taskID)).Bytes()
	if err != nil {
		return nil, false
	}
	var task types.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, false
	}
	return &task, true
}

func (c *TaskStatusCache) Set(ctx context.Context, task *types.Task) {
	if c == nil || c.rdb == nil || task == nil {
		return
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, taskCacheKey(task.TaskID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Task cache set failed", "task_id", task.TaskID, "error", err)
	}
}

func (c *TaskStatusCache) Invalidate(ctx context.Context, taskID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, taskCacheKey(taskID)).Err(); err != nil {
		c.log.Warn("Task cache invalidate failed", "task_id", taskID, "error", err)
	}
}

func (c *TaskStatusCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
