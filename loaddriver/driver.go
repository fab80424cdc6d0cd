package loaddriver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/apitest-engine/apitestd/batch/objstore"
	"github.com/apitest-engine/apitestd/entity"
)

// Driver spawns and supervises load-test worker subprocesses, one per
// task_id, under WorkspaceDir (the <tmp>/locust_presstest/ directory named
// in spec §6).
type Driver struct {
	WorkspaceDir  string
	WorkerBinPath string // path to the cmd/loadworker executable

	// ObjStore and Bucket are optional: when set, Collect archives the
	// worker's result and log files for retention after a run completes.
	ObjStore objstore.ObjectStore
	Bucket   string

	mu    sync.Mutex
	tasks map[string]*taskHandle
}

type taskHandle struct {
	cmd        *exec.Cmd
	configPath string
	statusPath string
	resultPath string
	logPath    string
}

// New returns a Driver rooted at workspaceDir, launching workerBinPath for
// each task.
func New(workspaceDir, workerBinPath string) *Driver {
	return &Driver{WorkspaceDir: workspaceDir, WorkerBinPath: workerBinPath, tasks: make(map[string]*taskHandle)}
}

// StartOptions configures one load-test invocation.
type StartOptions struct {
	Users       int
	SpawnRate   float64
	DurationSec int
	APIs        []APIStep
}

// StartResult mirrors POST /locust/start's response shape.
type StartResult struct {
	TaskID  string `json:"task_id"`
	PID     int    `json:"pid"`
	Message string `json:"message"`
}

// Start materializes config.json/status.json, spawns the worker process
// with stdout/stderr redirected to a log file, and returns its task id.
func (d *Driver) Start(opts StartOptions) (StartResult, error) {
	if err := os.MkdirAll(d.WorkspaceDir, 0o755); err != nil {
		return StartResult{}, fmt.Errorf("loaddriver: mkdir workspace: %w", err)
	}
	taskID := uuid.NewString()

	h := &taskHandle{
		configPath: filepath.Join(d.WorkspaceDir, fmt.Sprintf("config_%s.json", taskID)),
		statusPath: filepath.Join(d.WorkspaceDir, fmt.Sprintf("status_%s.json", taskID)),
		resultPath: filepath.Join(d.WorkspaceDir, fmt.Sprintf("result_%s.json", taskID)),
		logPath:    filepath.Join(d.WorkspaceDir, fmt.Sprintf("log_%s.txt", taskID)),
	}

	cfg := WorkerConfig{
		TaskID: taskID, Users: opts.Users, SpawnRate: opts.SpawnRate, DurationSec: opts.DurationSec,
		APIs: opts.APIs, StatusPath: h.statusPath, ResultPath: h.resultPath,
	}
	if err := writeJSON(h.configPath, cfg); err != nil {
		return StartResult{}, err
	}
	if err := writeJSON(h.statusPath, WorkerStatus{State: StateStarting}); err != nil {
		return StartResult{}, err
	}

	logFile, err := os.Create(h.logPath)
	if err != nil {
		return StartResult{}, fmt.Errorf("loaddriver: create log: %w", err)
	}

	cmd := exec.Command(d.WorkerBinPath, "-config", h.configPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return StartResult{}, fmt.Errorf("loaddriver: spawn worker: %w", err)
	}
	h.cmd = cmd

	d.mu.Lock()
	d.tasks[taskID] = h
	d.mu.Unlock()

	go func() { _ = cmd.Wait(); logFile.Close() }()

	return StartResult{TaskID: taskID, PID: cmd.Process.Pid, Message: "started"}, nil
}

// StatusResult merges the child's liveness with status.json content and,
// on abnormal exit, the last log lines.
type StatusResult struct {
	Running  bool     `json:"running"`
	ExitCode *int     `json:"exit_code,omitempty"`
	Status   WorkerStatus `json:"status"`
	LogTail  []string `json:"log_tail,omitempty"`
}

// Status reports taskID's liveness plus its latest status.json.
func (d *Driver) Status(taskID string) (StatusResult, error) {
	d.mu.Lock()
	h, ok := d.tasks[taskID]
	d.mu.Unlock()
	if !ok {
		return StatusResult{}, fmt.Errorf("loaddriver: unknown task %s", taskID)
	}

	var status WorkerStatus
	_ = readJSON(h.statusPath, &status)

	running := h.cmd.ProcessState == nil
	res := StatusResult{Running: running, Status: status}
	if !running && h.cmd.ProcessState != nil {
		code := h.cmd.ProcessState.ExitCode()
		res.ExitCode = &code
		if code != 0 {
			res.LogTail = tailLines(h.logPath, 10)
		}
	}
	return res, nil
}

// Stop sends a graceful termination signal (SIGTERM) to the worker.
func (d *Driver) Stop(taskID string) error {
	d.mu.Lock()
	h, ok := d.tasks[taskID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("loaddriver: unknown task %s", taskID)
	}
	if h.cmd.Process == nil {
		return nil
	}
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return err
	}
	go func() {
		time.Sleep(GracefulStopGrace)
		if h.cmd.ProcessState == nil {
			_ = h.cmd.Process.Kill()
		}
	}()
	return nil
}

// Collect reads result.json and builds a TestReport with one TestResult per
// stats row: one per endpoint plus the "Aggregated" row.
func (d *Driver) Collect(taskID, reportName string) (*entity.TestReport, []entity.TestResult, error) {
	d.mu.Lock()
	h, ok := d.tasks[taskID]
	d.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("loaddriver: unknown task %s", taskID)
	}

	var res WorkerResult
	if err := readJSON(h.resultPath, &res); err != nil {
		return nil, nil, fmt.Errorf("loaddriver: read result: %w", err)
	}

	var aggregated *EndpointStats
	for i := range res.Stats {
		if res.Stats[i].Name == AggregatedName {
			aggregated = &res.Stats[i]
			break
		}
	}
	if aggregated == nil {
		return nil, nil, fmt.Errorf("loaddriver: result missing aggregated row")
	}

	report := &entity.TestReport{
		Name:            reportName,
		Status:          entity.ReportCompleted,
		Total:           int(aggregated.NumRequests),
		Failed:          int(aggregated.NumFailures),
		Passed:          int(aggregated.NumRequests - aggregated.NumFailures),
		DurationSeconds: res.DurationSec,
		CreatedAt:       time.Now(),
	}

	results := make([]entity.TestResult, 0, len(res.Stats))
	for _, s := range res.Stats {
		body, _ := json.Marshal(s)
		status := entity.ResultPass
		if s.NumFailures > 0 {
			status = entity.ResultFail
		}
		results = append(results, entity.TestResult{
			ApiName:     s.Name,
			RequestBody: string(body),
			Status:      status,
		})
	}

	if d.ObjStore != nil {
		d.archive(taskID, h)
	}

	return report, results, nil
}

// archive pushes the worker's result and log files to object storage for
// retention; failures are swallowed since collection has already succeeded.
func (d *Driver) archive(taskID string, h *taskHandle) {
	ctx := context.Background()
	for _, src := range []struct{ path, contentType string }{
		{h.resultPath, "application/json"},
		{h.logPath, "text/plain"},
	} {
		f, err := os.Open(src.path)
		if err != nil {
			continue
		}
		info, err := f.Stat()
		if err == nil {
			objName := fmt.Sprintf("loadtest/%s/%s", taskID, filepath.Base(src.path))
			_ = d.ObjStore.Put(ctx, d.Bucket, objName, f, info.Size(), src.contentType)
		}
		f.Close()
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("loaddriver: marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("loaddriver: write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func tailLines(path string, n int) []string {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	start := 0
	for i, c := range b {
		if c == '\n' {
			lines = append(lines, string(b[start:i]))
			start = i + 1
		}
	}
	if start < len(b) {
		lines = append(lines, string(b[start:]))
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
