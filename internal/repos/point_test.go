package repos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/types"
)

func makePoint(pointID, taskID, functionName string) *types.FunctionalPoint {
	now := time.Now()
	return &types.FunctionalPoint{
		PointID:      pointID,
		TaskID:       taskID,
		RequireID:    "REQ-20250101120000-123",
		Module:       "login",
		FunctionName: functionName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPointRepoUpsertOverwritesExistingID(t *testing.T) {
	repo := NewPointRepo(newTestDB(t), logger.NewNop())
	ctx := context.Background()

	first := makePoint("POINT-11112222-10001", "TASK-A", "login with password")
	require.NoError(t, repo.Upsert(ctx, nil, []*types.FunctionalPoint{first}))

	second := makePoint("POINT-11112222-10001", "TASK-B", "login with password")
	second.Description = "updated description"
	require.NoError(t, repo.Upsert(ctx, nil, []*types.FunctionalPoint{second}))

	rows, err := repo.GetByIDs(ctx, nil, []string{"POINT-11112222-10001"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TASK-B", rows[0].TaskID)
	assert.Equal(t, "updated description", rows[0].Description)
}

func TestPointRepoGetByIDsPreservesOrderAndSkipsMissing(t *testing.T) {
	repo := NewPointRepo(newTestDB(t), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, nil, []*types.FunctionalPoint{
		makePoint("POINT-AAAA0001-10001", "TASK-A", "a"),
		makePoint("POINT-AAAA0002-10002", "TASK-A", "b"),
	}))

	rows, err := repo.GetByIDs(ctx, nil, []string{
		"POINT-AAAA0002-10002",
		"POINT-MISSING0-10009",
		"POINT-AAAA0001-10001",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "POINT-AAAA0002-10002", rows[0].PointID)
	assert.Equal(t, "POINT-AAAA0001-10001", rows[1].PointID)
}

func TestPointRepoDeleteReportsAffectedRows(t *testing.T) {
	repo := NewPointRepo(newTestDB(t), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, nil, []*types.FunctionalPoint{
		makePoint("POINT-DDDD0001-10001", "TASK-A", "a"),
	}))

	rows, err := repo.Delete(ctx, nil, "POINT-DDDD0001-10001")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = repo.Delete(ctx, nil, "POINT-DDDD0001-10001")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}
