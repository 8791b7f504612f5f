package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func sampleRuns() []domain.RunRecord {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.RunRecord{
		{
			ID:        "run-b",
			Namespace: "docs",
			Seeds:     []string{"https://example.com"},
			StartedAt: started.Add(time.Hour),
			EndedAt:   started.Add(time.Hour + 2*time.Second),
			Pages:     4,
			Chunks:    9,
			Records:   9,
			Upserted:  9,
		},
		{
			ID:            "run-a",
			Namespace:     "docs",
			StartedAt:     started,
			EndedAt:       started.Add(time.Second),
			Pages:         2,
			Records:       6,
			Upserted:      3,
			FailedBatches: 1,
		},
	}
}

func TestRunsCommand_List(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.runs.runs = sampleRuns()

	out, err := executeCommand("runs", "--limit", "5")
	require.NoError(t, err)

	assert.Equal(t, []Needs{NeedRuns}, ts.needs)
	assert.Equal(t, 5, ts.runs.limit)
	assert.Contains(t, out, "run-b")
	assert.Contains(t, out, "pages=4 upserted=9/9  ok")
	assert.Contains(t, out, "pages=2 upserted=3/6  partial")
	assert.Equal(t, 1, ts.closed)
}

func TestRunsCommand_DefaultLimit(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("runs")
	require.NoError(t, err)

	assert.Equal(t, 20, ts.runs.limit)
	assert.Contains(t, out, "No runs recorded.")
}

func TestRunsCommand_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.runs.runs = sampleRuns()

	out, err := executeCommand("runs", "--json")
	require.NoError(t, err)

	var got []domain.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "run-b", got[0].ID)
}

func TestRunsCommand_ListError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.runs.err = errBoom

	_, err := executeCommand("runs")
	assert.ErrorIs(t, err, errBoom)
}

func TestRunsShowCommand(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.runs.runs = sampleRuns()

	out, err := executeCommand("runs", "show", "run-a")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-a")
	assert.Contains(t, out, "Namespace: docs")
	assert.Contains(t, out, "Duration:  1s")
	assert.Contains(t, out, "Status:    partial")
	assert.Contains(t, out, "Upserted:  3/6")
	assert.Contains(t, out, "Failed batches: 1")
}

func TestRunsShowCommand_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("runs", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run missing not found")
}

func TestRunsShowCommand_RequiresID(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("runs", "show")
	assert.Error(t, err)
}

func TestRunStatus(t *testing.T) {
	assert.Equal(t, "ok", runStatus(domain.RunRecord{}))
	assert.Equal(t, "partial", runStatus(domain.RunRecord{FailedBatches: 2}))
	assert.Equal(t, "failed", runStatus(domain.RunRecord{Error: "boom", FailedBatches: 2}))
}
