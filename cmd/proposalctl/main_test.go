package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "proposalhub.yaml")
	body := "storage:\n  driver: sqlite\n  sqlitePath: " + filepath.Join(dir, "hub.db") + "\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestGenerateStatsDeleteDump(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "generate", "-c", cfg, "--title", "Website Redesign", "--description", "Complete redesign of corporate website with modern UI/UX")
	require.NoError(t, err)
	var generated struct {
		Proposal struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"proposal"`
		Questions []struct {
			Order  int    `json:"order"`
			Source string `json:"source"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	assert.Equal(t, int64(1), generated.Proposal.ID)
	assert.Equal(t, "draft", generated.Proposal.Status)
	require.Len(t, generated.Questions, 7)
	assert.Equal(t, "ai", generated.Questions[6].Source)

	out, err = execute(t, "stats", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "proposal       1\n")
	assert.Contains(t, out, "question       7\n")

	out, err = execute(t, "delete-proposal", "-c", cfg, "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted proposal 1\n", out)

	_, err = execute(t, "delete-proposal", "-c", cfg, "1")
	assert.ErrorContains(t, err, "not found")

	out, err = execute(t, "dump", "-c", cfg)
	require.NoError(t, err)
	var snapshot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &snapshot))
	assert.JSONEq(t, "[]", string(snapshot["proposalQuestions"]))
	assert.JSONEq(t, "[]", string(snapshot["proposals"]))
}

func TestRestoreFromDump(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "generate", "-c", cfg, "--title", "Keep me")
	require.NoError(t, err)
	dump, err := execute(t, "dump", "-c", cfg)
	require.NoError(t, err)
	backup := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(backup, []byte(dump), 0o600))

	_, err = execute(t, "delete-proposal", "-c", cfg, "1")
	require.NoError(t, err)

	out, err := execute(t, "restore", "-c", cfg, backup)
	require.NoError(t, err)
	assert.Equal(t, "restored snapshot from "+backup+"\n", out)

	out, err = execute(t, "stats", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "proposal       1\n")
	assert.Contains(t, out, "question       7\n")

	partial := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`{"proposals":[]}`), 0o600))
	out, err = execute(t, "restore", "-c", cfg, partial)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded sections: users")

	_, err = execute(t, "restore", "-c", cfg, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read dump")
}

func TestStatsPrintsConfiguredMetrics(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "stats", "-c", cfg, "--metrics")
	assert.ErrorContains(t, err, "metrics.prometheus")

	t.Setenv("PROPOSALHUB_METRICS_EXPVAR", "true")
	out, err := execute(t, "stats", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"results_total"`)
	assert.Contains(t, out, `"stats"`)

	t.Setenv("PROPOSALHUB_METRICS_EXPVAR", "false")
	t.Setenv("PROPOSALHUB_METRICS_PROMETHEUS", "true")
	out, err = execute(t, "stats", "-c", cfg, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, `proposalhub_store_operations_total{operation="stats",result="success"} 1`)
	assert.NotContains(t, out, `"results_total"`)
}

func TestArgumentValidation(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "delete-proposal", "-c", cfg, "abc")
	assert.ErrorContains(t, err, "invalid proposal id")

	_, err = execute(t, "generate", "-c", cfg)
	assert.Error(t, err, "title is required")

	_, err = execute(t, "stats", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config")
}
