package loaddriver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONAndReadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	in := WorkerStatus{State: StateRunning, ActiveUsers: 3}
	require.NoError(t, writeJSON(path, in))

	var out WorkerStatus
	require.NoError(t, readJSON(path, &out))
	require.Equal(t, in, out)
}

func TestTailLinesReturnsLastN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\ne\n"), 0o644))

	lines := tailLines(path, 2)
	require.Equal(t, []string{"d", "e"}, lines)
}

func TestTailLinesMissingFileReturnsNil(t *testing.T) {
	require.Nil(t, tailLines("/nonexistent/path.txt", 5))
}

func TestStartLaunchesWorkerAndMaterializesConfig(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, "/bin/true")

	res, err := d.Start(StartOptions{Users: 5, SpawnRate: 1, DurationSec: 1, APIs: []APIStep{{Name: "ping", Method: "GET", URL: "http://x"}}})
	require.NoError(t, err)
	require.NotEmpty(t, res.TaskID)
	require.Greater(t, res.PID, 0)

	configPath := filepath.Join(dir, "config_"+res.TaskID+".json")
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var cfg WorkerConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.Equal(t, 5, cfg.Users)
	require.Len(t, cfg.APIs, 1)
}

func TestStatusUnknownTaskErrors(t *testing.T) {
	d := New(t.TempDir(), "/bin/true")
	_, err := d.Status("missing")
	require.Error(t, err)
}

func TestStatusReflectsProcessExit(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, "/bin/true")
	res, err := d.Start(StartOptions{Users: 1, DurationSec: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := d.Status(res.TaskID)
		return err == nil && !status.Running
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCollectUnknownTaskErrors(t *testing.T) {
	d := New(t.TempDir(), "/bin/true")
	_, _, err := d.Collect("missing", "r")
	require.Error(t, err)
}

func TestCollectBuildsReportFromAggregatedRow(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, "/bin/true")
	res, err := d.Start(StartOptions{Users: 1, DurationSec: 1})
	require.NoError(t, err)

	resultPath := filepath.Join(dir, "result_"+res.TaskID+".json")
	workerResult := WorkerResult{
		Stats: []EndpointStats{
			{Name: "GET /ping", NumRequests: 10, NumFailures: 1},
			{Name: AggregatedName, NumRequests: 10, NumFailures: 1},
		},
		DurationSec: 5,
	}
	b, err := json.Marshal(workerResult)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(resultPath, b, 0o644))

	report, results, err := d.Collect(res.TaskID, "load-report")
	require.NoError(t, err)
	require.Equal(t, 10, report.Total)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 9, report.Passed)
	require.Len(t, results, 2)
}

func TestCollectErrorsWhenAggregatedRowMissing(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, "/bin/true")
	res, err := d.Start(StartOptions{Users: 1, DurationSec: 1})
	require.NoError(t, err)

	resultPath := filepath.Join(dir, "result_"+res.TaskID+".json")
	workerResult := WorkerResult{Stats: []EndpointStats{{Name: "GET /ping", NumRequests: 10}}}
	b, _ := json.Marshal(workerResult)
	require.NoError(t, os.WriteFile(resultPath, b, 0o644))

	_, _, err = d.Collect(res.TaskID, "load-report")
	require.Error(t, err)
}
