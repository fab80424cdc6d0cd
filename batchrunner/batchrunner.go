// Package batchrunner implements the Batch Runner (component I): sequential
// execution of an ordered API list, live progress publication, optional
// early abort, and persistence of one TestReport with per-API TestResult
// rows.
package batchrunner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/metrics"
	"github.com/apitest-engine/apitestd/pipeline"
	"github.com/apitest-engine/apitestd/varstore"
)

// Repository is the persistence boundary the batch runner consumes; the
// core treats the store as any relational engine per spec §1.
type Repository interface {
	ListAPIsByID(ctx context.Context, ids []int64) ([]entity.ApiConfig, error)
	LoadGlobals(ctx context.Context) (map[string]string, error)
	CreateReport(ctx context.Context, report entity.TestReport) (int64, error)
	UpdateReport(ctx context.Context, report entity.TestReport) error
	InsertResult(ctx context.Context, result entity.TestResult) error
}

// Progress is one (progress, total) update published for a task_id.
type Progress struct {
	Progress int
	Total    int
	Status   string // running | completed | error
	ReportID int64
	Error    string
}

// ProgressRegistry is the shared, lock-guarded map of task_id -> Progress
// named in §5's shared-resource policy.
type ProgressRegistry struct {
	mu   sync.Mutex
	data map[string]Progress
}

// NewProgressRegistry returns an empty registry.
func NewProgressRegistry() *ProgressRegistry {
	return &ProgressRegistry{data: make(map[string]Progress)}
}

// Publish records p under taskID.
func (r *ProgressRegistry) Publish(taskID string, p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[taskID] = p
}

// Get returns the latest progress for taskID.
func (r *ProgressRegistry) Get(taskID string) (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[taskID]
	return p, ok
}

// Reap removes taskID's entry, for the optional cleanup named in §5.
func (r *ProgressRegistry) Reap(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, taskID)
}

// Runner runs batches against a shared Store/Pipeline and persists via repo.
type Runner struct {
	Store    *varstore.Store
	Pipeline *pipeline.Pipeline
	Repo     Repository
	Progress *ProgressRegistry
	Logger   *logharbour.Logger
	Metrics  metrics.Metrics // optional; nil disables instrumentation

	// runMu enforces §5's cross-batch exclusion: the process-wide Variable
	// Store forbids concurrent batches.
	runMu sync.Mutex
}

// Options configures one batch invocation.
type Options struct {
	APIIDs         []int64
	ReportName     string
	StopOnFailure  bool
	TaskID         string // optional; enables progress publication
}

// Run executes Options.APIIDs in (sort_order, id) order, persists a
// TestReport, and returns it. Returns (nil, nil) when no matching APIs are
// found, matching execute_batch's "return null" behavior.
func (r *Runner) Run(ctx context.Context, opts Options) (*entity.TestReport, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.Store.Reset()
	if globals, err := r.Repo.LoadGlobals(ctx); err == nil {
		r.Store.LoadGlobals(globals)
	}

	apis, err := r.Repo.ListAPIsByID(ctx, opts.APIIDs)
	if err != nil {
		r.publishError(opts.TaskID, err)
		return nil, fmt.Errorf("batchrunner: list apis: %w", err)
	}
	if len(apis) == 0 {
		return nil, nil
	}
	sortAPIs(apis)

	start := time.Now()
	report := entity.TestReport{
		Name:      opts.ReportName,
		Status:    entity.ReportRunning,
		Total:     len(apis),
		CreatedAt: start,
	}
	reportID, err := r.Repo.CreateReport(ctx, report)
	if err != nil {
		r.publishError(opts.TaskID, err)
		return nil, fmt.Errorf("batchrunner: create report: %w", err)
	}
	report.ID = reportID

	for i, api := range apis {
		result := r.Pipeline.Run(ctx, api, nil)
		result.ReportID = reportID
		result.ResponseBody = entity.Truncate(result.ResponseBody)

		if err := r.Repo.InsertResult(ctx, result); err != nil && r.Logger != nil {
			r.Logger.Log(fmt.Sprintf("batchrunner: insert result failed: %v", err))
		}

		switch result.Status {
		case entity.ResultPass:
			report.Passed++
		case entity.ResultFail:
			report.Failed++
		case entity.ResultError:
			report.Error++
		}
		if r.Metrics != nil {
			r.Metrics.RecordWithLabels("apitest_batch_results_total", 1, string(result.Status))
		}

		if opts.TaskID != "" {
			r.Progress.Publish(opts.TaskID, Progress{Progress: i + 1, Total: len(apis), Status: "running"})
		}

		if opts.StopOnFailure && result.Status != entity.ResultPass {
			report.Total = i + 1
			break
		}
	}

	report.DurationSeconds = roundTo(time.Since(start).Seconds(), 3)
	report.Status = entity.ReportCompleted
	if err := r.Repo.UpdateReport(ctx, report); err != nil {
		r.publishError(opts.TaskID, err)
		return &report, fmt.Errorf("batchrunner: update report: %w", err)
	}

	if opts.TaskID != "" {
		r.Progress.Publish(opts.TaskID, Progress{Progress: report.Total, Total: report.Total, Status: "completed", ReportID: reportID})
	}

	return &report, nil
}

func (r *Runner) publishError(taskID string, err error) {
	if taskID == "" {
		return
	}
	r.Progress.Publish(taskID, Progress{Status: "error", Error: err.Error()})
}

func sortAPIs(apis []entity.ApiConfig) {
	sort.SliceStable(apis, func(i, j int) bool {
		if apis[i].SortOrder != apis[j].SortOrder {
			return apis[i].SortOrder < apis[j].SortOrder
		}
		return apis[i].ID < apis[j].ID
	})
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}
