package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedDB runs the scenario suite with --db and returns the database.
func recordedDB(t *testing.T) string {
	t.Helper()
	dir := scenarioSuite(t)
	db := filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, "test", "--db", db, dir)
	require.NoError(t, err)
	return db
}

func TestHistoryRequiresDB(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db is required")
}

func TestHistoryMissingDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "none.db")
	_, err := execute(t, "history", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
	assert.NoFileExists(t, db)
}

func TestHistoryText(t *testing.T) {
	db := recordedDB(t)

	out, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] a_conserved conserved")
	assert.Contains(t, out, "[2] b_violated violated")
	assert.Contains(t, out, "Relative error: 0.25 (tolerance 1e-09)")
}

func TestHistoryFilters(t *testing.T) {
	db := recordedDB(t)

	out, err := execute(t, "history", "--db", db, "--scenario", "b_violated", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	run := resp.Data.Runs[0]
	assert.Equal(t, "b_violated", run.Scenario)
	assert.Equal(t, "one_deg", run.Resolution)
	assert.Equal(t, int64(2), run.NNZ)

	out, err = execute(t, "history", "--db", db, "--batch", run.BatchToken, "--format", "json")
	require.NoError(t, err)
	resp.Data = HistoryResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.Runs, 2)

	out, err = execute(t, "history", "--db", db, "--list")
	require.NoError(t, err)
	assert.Equal(t, "a_conserved\nb_violated\n", out)

	out, err = execute(t, "history", "--db", db, "--scenario", "unknown")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	_, err = execute(t, "history", "--db", db, "--scenario", "a", "--batch", "b")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryDBFromEnv(t *testing.T) {
	db := recordedDB(t)
	t.Setenv("REMAPCHECK_DB", db)

	out, err := execute(t, "history", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "a_conserved")
}
