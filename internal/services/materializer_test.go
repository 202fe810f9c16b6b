package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
)

func newTestMaterializer(t *testing.T) (ResultMaterializer, repos.PointRepo, repos.TestcaseRepo) {
	db := newTestDB(t)
	log := logger.NewNop()
	pointRepo := repos.NewPointRepo(db, log)
	testcaseRepo := repos.NewTestcaseRepo(db, log)
	return NewResultMaterializer(db, log, pointRepo, testcaseRepo), pointRepo, testcaseRepo
}

func TestMaterializeTestcasesCollapsesDuplicateCaseNames(t *testing.T) {
	m, _, testcaseRepo := newTestMaterializer(t)

	count, err := m.MaterializeTestcases(context.Background(), "TASK-AAAA1111-10001", "REQ-20250101120000-001", []map[string]any{
		{
			"case_name":       "login with a valid account",
			"test_steps":      []any{"open the login page", "submit valid credentials"},
			"expected_result": "the home page is shown",
			"priority":        "P1",
		},
		{
			"case_name":       "login with a valid account",
			"test_steps":      []any{"open the login page", "submit valid credentials", "wait for redirect"},
			"expected_result": "the dashboard is shown",
			"priority":        "P0",
		},
		{
			"case_name":       "login with a locked account",
			"test_steps":      []any{"submit credentials of a locked account"},
			"expected_result": "an account-locked error is shown",
			"priority":        "P1",
		},
	})
	require.NoError(t, err)

	stored, err := testcaseRepo.GetByTaskID(context.Background(), nil, "TASK-AAAA1111-10001")
	require.NoError(t, err)
	assert.Equal(t, len(stored), count)
	assert.Equal(t, 2, count)

	// the later duplicate wins
	for _, row := range stored {
		if row.CaseName == "login with a valid account" {
			assert.Equal(t, "P0", row.Priority)
		}
	}
}

func TestMaterializePointsCollapsesDuplicateFunctionNames(t *testing.T) {
	m, pointRepo, _ := newTestMaterializer(t)

	count, err := m.MaterializePoints(context.Background(), "TASK-BBBB2222-10002", "REQ-20250101120000-002", []*ModuleChunk{
		{
			Module:         "auth",
			BusinessDomain: "identity",
			Chunks:         "login requirements",
			Points: []map[string]any{
				{"function_name": "password login", "description": "first variant", "test_type": "functional"},
				{"function_name": "password login", "description": "second variant", "test_type": "functional"},
				{"function_name": "sms login", "description": "one-time code", "test_type": "functional"},
			},
		},
	})
	require.NoError(t, err)

	stored, err := pointRepo.GetByTaskID(context.Background(), nil, "TASK-BBBB2222-10002")
	require.NoError(t, err)
	assert.Equal(t, len(stored), count)
	assert.Equal(t, 2, count)

	for _, row := range stored {
		if row.FunctionName == "password login" {
			assert.Equal(t, "second variant", row.Description)
		}
	}
}

func TestMaterializeTestcasesRerunOverwritesInsteadOfDuplicating(t *testing.T) {
	m, _, testcaseRepo := newTestMaterializer(t)

	raw := []map[string]any{{
		"case_name":       "export a report",
		"test_steps":      []any{"open the report", "click export"},
		"expected_result": "a file downloads",
		"priority":        "P2",
	}}

	first, err := m.MaterializeTestcases(context.Background(), "TASK-CCCC3333-10003", "REQ-20250101120000-003", raw)
	require.NoError(t, err)
	second, err := m.MaterializeTestcases(context.Background(), "TASK-CCCC3333-10003", "REQ-20250101120000-003", raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := testcaseRepo.GetByTaskID(context.Background(), nil, "TASK-CCCC3333-10003")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
