// Package restapi wires the test-execution engine's HTTP surface (single-API
// run, batch run with progress polling, scheduler trigger, and the load-test
// control plane) onto gin, following the wscutils request/response envelope
// and the service.RouteGroup registration style used elsewhere in this repo.
package restapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/apitest-engine/apitestd/batchrunner"
	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/loaddriver"
	"github.com/apitest-engine/apitestd/pipeline"
	"github.com/apitest-engine/apitestd/repo/gorm"
	"github.com/apitest-engine/apitestd/scheduler"
	"github.com/apitest-engine/apitestd/varstore"
	"github.com/apitest-engine/apitestd/wscutils"
)

// Repository is the subset of batchrunner.Repository the single-API run
// handler needs to resolve one ApiConfig by id.
type Repository interface {
	batchrunner.Repository
}

// Handlers holds every collaborator the REST surface dispatches to.
type Handlers struct {
	Store     *varstore.Store
	Pipeline  *pipeline.Pipeline
	Repo      Repository
	Runner    *batchrunner.Runner
	Scheduler *scheduler.Scheduler
	Load      *loaddriver.Driver
	Reader    *gorm.Reader // admin read paths; may be nil
}

const (
	msgidInternal  = 9000
	errcodeInternal = "internal_error"
	msgidNotFound  = 9001
	errcodeNotFound = "not_found"
	msgidBadInput  = 9002
	errcodeBadInput = "invalid_input"
)

func fail(c *gin.Context, status int, msgid int, errcode string) {
	c.JSON(status, wscutils.NewErrorResponse(msgid, errcode))
}

// RunAPIRequest is POST /apis/:id/run's optional body: a one-shot variable
// override layered over the process-wide Store before the pipeline runs.
type RunAPIRequest struct {
	Vars map[string]string `json:"vars,omitempty"`
}

// RunAPI executes one ApiConfig's pipeline synchronously and returns its
// TestResult, matching spec §4.H's single-API entry point.
func (h *Handlers) RunAPI(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msgidBadInput, errcodeBadInput)
		return
	}

	var req RunAPIRequest
	_ = wscutils.BindJSON(c, &req) // body is optional; ignore bind failure on empty body

	apis, err := h.Repo.ListAPIsByID(c.Request.Context(), []int64{id})
	if err != nil || len(apis) == 0 {
		fail(c, http.StatusNotFound, msgidNotFound, errcodeNotFound)
		return
	}

	for k, v := range req.Vars {
		h.Store.Set(k, v)
	}

	result := h.Pipeline.Run(c.Request.Context(), apis[0], nil)
	result.ResponseBody = entity.Truncate(result.ResponseBody)
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(result))
}

// RunBatchRequest is POST /run/batch's body.
type RunBatchRequest struct {
	APIIDs        []int64 `json:"api_ids" binding:"required"`
	ReportName    string  `json:"report_name"`
	StopOnFailure bool    `json:"stop_on_failure"`
	Async         bool    `json:"async"`
}

// RunBatchResponse covers both the synchronous (report populated) and
// asynchronous (task_id populated for polling) shapes.
type RunBatchResponse struct {
	TaskID string             `json:"task_id,omitempty"`
	Report *entity.TestReport `json:"report,omitempty"`
}

// RunBatch runs Options.APIIDs. When Async is set it returns a task_id
// immediately and runs the batch on a goroutine; GET /run/batch/status/:id
// polls its ProgressRegistry entry.
func (h *Handlers) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if err := wscutils.BindJSON(c, &req); err != nil {
		return
	}
	if len(req.APIIDs) == 0 {
		fail(c, http.StatusBadRequest, msgidBadInput, errcodeBadInput)
		return
	}
	if req.ReportName == "" {
		req.ReportName = "batch_" + time.Now().Format("20060102_150405")
	}

	opts := batchrunner.Options{APIIDs: req.APIIDs, ReportName: req.ReportName, StopOnFailure: req.StopOnFailure}

	if req.Async {
		taskID := uuid.NewString()
		opts.TaskID = taskID
		h.Runner.Progress.Publish(taskID, batchrunner.Progress{Status: "running", Total: len(req.APIIDs)})
		go func() {
			ctx := context.Background()
			_, _ = h.Runner.Run(ctx, opts)
		}()
		wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(RunBatchResponse{TaskID: taskID}))
		return
	}

	report, err := h.Runner.Run(c.Request.Context(), opts)
	if err != nil {
		fail(c, http.StatusInternalServerError, msgidInternal, errcodeInternal)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(RunBatchResponse{Report: report}))
}

// BatchStatus reports GET /run/batch/status/:task_id's progress snapshot.
func (h *Handlers) BatchStatus(c *gin.Context) {
	taskID := c.Param("task_id")
	p, ok := h.Runner.Progress.Get(taskID)
	if !ok {
		fail(c, http.StatusNotFound, msgidNotFound, errcodeNotFound)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(p))
}

// TriggerScheduledTask is POST /scheduler/tasks/:id/run, a manual firing of
// a registered task outside its normal cron/interval schedule.
func (h *Handlers) TriggerScheduledTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msgidBadInput, errcodeBadInput)
		return
	}
	h.Scheduler.TriggerNow(c.Request.Context(), id)
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"triggered": id}))
}

// LocustStartRequest is POST /locust/start's body: a pre-materialized API
// step list plus virtual-user ramp-up parameters.
type LocustStartRequest struct {
	Users       int                  `json:"users" binding:"required"`
	SpawnRate   float64              `json:"spawn_rate" binding:"required"`
	DurationSec int                  `json:"duration_sec"`
	APIs        []loaddriver.APIStep `json:"apis" binding:"required"`
}

// LocustStart spawns a load-test worker subprocess.
func (h *Handlers) LocustStart(c *gin.Context) {
	var req LocustStartRequest
	if err := wscutils.BindJSON(c, &req); err != nil {
		return
	}
	res, err := h.Load.Start(loaddriver.StartOptions{
		Users: req.Users, SpawnRate: req.SpawnRate, DurationSec: req.DurationSec, APIs: req.APIs,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, msgidInternal, errcodeInternal)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(res))
}

// LocustStatus reports GET /locust/status/:task_id.
func (h *Handlers) LocustStatus(c *gin.Context) {
	res, err := h.Load.Status(c.Param("task_id"))
	if err != nil {
		fail(c, http.StatusNotFound, msgidNotFound, errcodeNotFound)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(res))
}

// LocustStop gracefully terminates a running load-test worker.
func (h *Handlers) LocustStop(c *gin.Context) {
	if err := h.Load.Stop(c.Param("task_id")); err != nil {
		fail(c, http.StatusNotFound, msgidNotFound, errcodeNotFound)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"stopped": true}))
}

// LocustCollectRequest names the TestReport the aggregated load-test result
// should be filed under.
type LocustCollectRequest struct {
	ReportName string `json:"report_name"`
}

// LocustCollect reads a completed worker's result.json and persists it as a
// TestReport with one TestResult per endpoint plus one for the "Aggregated"
// row.
func (h *Handlers) LocustCollect(c *gin.Context) {
	var req LocustCollectRequest
	_ = wscutils.BindJSON(c, &req)
	if req.ReportName == "" {
		req.ReportName = "loadtest_" + time.Now().Format("20060102_150405")
	}

	report, results, err := h.Load.Collect(c.Param("task_id"), req.ReportName)
	if err != nil {
		fail(c, http.StatusInternalServerError, msgidInternal, errcodeInternal)
		return
	}

	id, err := h.Runner.Repo.CreateReport(c.Request.Context(), *report)
	if err != nil {
		fail(c, http.StatusInternalServerError, msgidInternal, errcodeInternal)
		return
	}
	report.ID = id
	for i := range results {
		results[i].ReportID = id
		_ = h.Runner.Repo.InsertResult(c.Request.Context(), results[i])
	}
	_ = h.Runner.Repo.UpdateReport(c.Request.Context(), *report)

	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(report))
}

// LocustPreview is the supplemented GET /locust/preview/:taskSpec: it
// substitutes one ApiConfig against the current variable store without
// dispatching it, letting the load-test author verify templating before
// committing to a full run.
func (h *Handlers) LocustPreview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("taskSpec"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msgidBadInput, errcodeBadInput)
		return
	}
	apis, err := h.Repo.ListAPIsByID(c.Request.Context(), []int64{id})
	if err != nil || len(apis) == 0 {
		fail(c, http.StatusNotFound, msgidNotFound, errcodeNotFound)
		return
	}
	api := apis[0]
	snapshot := h.Store.Snapshot()
	step := loaddriver.APIStep{
		Name:     api.Name,
		Method:   string(api.Method),
		URL:      varstore.Substitute(api.URL, snapshot),
		BodyType: string(api.BodyType),
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(step))
}

// ListAPIs is the admin listing GET /apis, backed by the gorm read path.
func (h *Handlers) ListAPIs(c *gin.Context) {
	if h.Reader == nil {
		fail(c, http.StatusServiceUnavailable, msgidInternal, errcodeInternal)
		return
	}
	apis, err := h.Reader.ListAPISummaries(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, msgidInternal, errcodeInternal)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(apis))
}

// ReportHistory is the admin listing GET /reports.
func (h *Handlers) ReportHistory(c *gin.Context) {
	if h.Reader == nil {
		fail(c, http.StatusServiceUnavailable, msgidInternal, errcodeInternal)
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	reports, err := h.Reader.ReportHistory(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, msgidInternal, errcodeInternal)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(reports))
}

// RegisterRoutes mounts every handler onto group.
func (h *Handlers) RegisterRoutes(group ginRouteGroup) {
	group.RegisterRoute(http.MethodPost, "/apis/:id/run", h.RunAPI)
	group.RegisterRoute(http.MethodPost, "/run/batch", h.RunBatch)
	group.RegisterRoute(http.MethodGet, "/run/batch/status/:task_id", h.BatchStatus)
	group.RegisterRoute(http.MethodPost, "/scheduler/tasks/:id/run", h.TriggerScheduledTask)
	group.RegisterRoute(http.MethodPost, "/locust/start", h.LocustStart)
	group.RegisterRoute(http.MethodGet, "/locust/status/:task_id", h.LocustStatus)
	group.RegisterRoute(http.MethodPost, "/locust/stop/:task_id", h.LocustStop)
	group.RegisterRoute(http.MethodPost, "/locust/collect/:task_id", h.LocustCollect)
	group.RegisterRoute(http.MethodGet, "/locust/preview/:taskSpec", h.LocustPreview)
	group.RegisterRoute(http.MethodGet, "/apis", h.ListAPIs)
	group.RegisterRoute(http.MethodGet, "/reports", h.ReportHistory)
}

// ginRouteGroup is the minimal surface RegisterRoutes needs from
// service.RouteGroup, kept local to avoid an import cycle back onto
// service from restapi's test package.
type ginRouteGroup interface {
	RegisterRoute(method, path string, handler gin.HandlerFunc)
}
