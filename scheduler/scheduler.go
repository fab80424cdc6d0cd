// Package scheduler implements the Scheduler (component J): a process-wide
// singleton started exactly once, a bounded worker pool, cron/interval
// job registration with coalescing and misfire grace, and a synchronous
// fallback when the pool is unavailable.
//
// No cron library appears anywhere in the example corpus (verified by
// grepping every go.mod in the pack), so the expression parser in cron.go
// is hand-rolled against §4.J's semantics directly, as documented in
// DESIGN.md. The job-execution loop is grounded on jobs.JobManager's own
// poll-and-process shape in jobs/jobmanager.go.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/metrics"
)

// MinIntervalSecs is the minimum interval-trigger period enforced by §4.J.
const MinIntervalSecs = 60

// WorkerPoolSize bounds concurrent job executions.
const WorkerPoolSize = 5

// MisfireGrace is how late a firing may run before it is treated as a
// coalesced catch-up rather than a fresh miss.
const MisfireGrace = 60 * time.Second

// Repository is the persistence boundary the scheduler consumes to reload
// and update ScheduledTask rows.
type Repository interface {
	GetTask(ctx context.Context, taskID int64) (entity.ScheduledTask, error)
	ListActiveTasks(ctx context.Context) ([]entity.ScheduledTask, error)
	UpdateTaskRun(ctx context.Context, taskID int64, lastRunAt time.Time, lastReportID int64, lastResult string) error
}

// BatchRunnerFunc executes a batch for the given API ids and report name,
// matching batchrunner.Runner.Run's signature without importing it (to
// avoid a dependency cycle: batchrunner doesn't need the scheduler).
type BatchRunnerFunc func(ctx context.Context, apiIDs []int64, reportName string) (*entity.TestReport, error)

// MailFunc hands a completed report to the mailer collaborator.
type MailFunc func(report entity.TestReport, to []string) error

type job struct {
	task     entity.ScheduledTask
	cron     cronSpec
	interval time.Duration
	nextFire time.Time
	running  sync.Mutex // max_instances = 1
}

// Scheduler is the process-wide job registry and worker pool.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[int64]*job
	sem     chan struct{}
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	Repo        Repository
	RunBatch    BatchRunnerFunc
	Mail        MailFunc
	Logger      *logharbour.Logger
	Metrics     metrics.Metrics // optional; nil disables instrumentation
	Now         func() time.Time // injectable clock for tests
}

// New builds a Scheduler bound to repo/runBatch/mail.
func New(repo Repository, runBatch BatchRunnerFunc, mail MailFunc, logger *logharbour.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[int64]*job),
		sem:    make(chan struct{}, WorkerPoolSize),
		Repo:   repo,
		RunBatch: runBatch,
		Mail:   mail,
		Logger: logger,
		Now:    time.Now,
	}
}

// Start is idempotent: calling it twice on a running scheduler is a no-op.
// It loads all active tasks from the repository and begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	tasks, err := s.Repo.ListActiveTasks(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: load active tasks: %w", err)
	}
	for _, t := range tasks {
		s.Register(t)
	}

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop halts the tick loop. Already-running job executions are allowed to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.Now()
	s.mu.Lock()
	due := make([]*job, 0)
	for _, j := range s.jobs {
		if !j.nextFire.IsZero() && !j.nextFire.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		j := j
		missedBy := now.Sub(j.nextFire)
		s.advance(j, now)
		outcome := "dispatched"
		if missedBy > MisfireGrace {
			// Misfire grace exceeded: coalesce=true means we still fire
			// once (the most recent miss), never once-per-missed-tick.
			outcome = "coalesced"
			if s.Logger != nil {
				s.Logger.Log(fmt.Sprintf("scheduler: job %d misfired by %v, coalescing", j.task.ID, missedBy))
			}
		}
		if s.Metrics != nil {
			s.Metrics.RecordWithLabels("apitest_scheduler_firings_total", 1, outcome)
		}
		s.dispatch(ctx, j)
	}
}

func (s *Scheduler) advance(j *job, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.interval > 0 {
		next := j.nextFire
		for !next.After(now) {
			next = next.Add(j.interval)
		}
		j.nextFire = next
		return
	}
	j.nextFire = j.cron.Next(now)
}

// dispatch respects max_instances=1 via job.running's TryLock; a firing
// that finds the job still executing is simply skipped (coalesced away).
func (s *Scheduler) dispatch(ctx context.Context, j *job) {
	if !j.running.TryLock() {
		return
	}
	select {
	case s.sem <- struct{}{}:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer j.running.Unlock()
			s.runTask(ctx, j.task.ID)
		}()
	default:
		// Pool saturated: run synchronously inline rather than drop the
		// firing, matching §4.J's "synchronous fallback when the pool is
		// unavailable".
		defer j.running.Unlock()
		s.runTask(ctx, j.task.ID)
	}
}

// Register removes any existing registration for task.ID, then, if the
// task is active, computes its first fire time under its trigger.
func (s *Scheduler) Register(task entity.ScheduledTask) {
	s.Remove(task.ID)
	if task.Status != entity.TaskActive {
		return
	}

	j := &job{task: task}
	now := s.now()
	if task.TriggerType == entity.TriggerCron {
		j.cron = ParseCron(task.CronExpr)
		j.nextFire = j.cron.Next(now)
	} else {
		secs := task.IntervalSecs
		if secs < MinIntervalSecs {
			secs = MinIntervalSecs
		}
		j.interval = time.Duration(secs) * time.Second
		j.nextFire = now.Add(j.interval)
	}

	s.mu.Lock()
	s.jobs[task.ID] = j
	s.mu.Unlock()
}

// Remove best-effort unregisters taskID.
func (s *Scheduler) Remove(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, taskID)
}

// TriggerNow enqueues a one-shot firing of taskID; if the pool is
// unavailable (or the scheduler isn't running), it executes synchronously
// inline.
func (s *Scheduler) TriggerNow(ctx context.Context, taskID int64) {
	if !s.isRunning() {
		s.runTask(ctx, taskID)
		return
	}
	select {
	case s.sem <- struct{}{}:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			s.runTask(ctx, taskID)
		}()
	default:
		s.runTask(ctx, taskID)
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// runTask reloads taskID, runs its batch, and persists last-run bookkeeping
// plus an optional email, matching run_task's behavior verbatim.
func (s *Scheduler) runTask(ctx context.Context, taskID int64) {
	task, err := s.Repo.GetTask(ctx, taskID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Log(fmt.Sprintf("scheduler: task %d not found: %v", taskID, err))
		}
		return
	}
	if task.Status != entity.TaskActive {
		return
	}
	apiIDs := task.GetAPIIDs()
	if len(apiIDs) == 0 {
		if s.Logger != nil {
			s.Logger.Log(fmt.Sprintf("scheduler: task %s has no apis, skipping", task.Name))
		}
		return
	}

	now := s.now()
	reportName := task.ReportNameFor(now.Format("20060102_150405"))
	report, err := s.RunBatch(ctx, apiIDs, reportName)
	if err != nil || report == nil {
		msg := "execution failed: no matching apis"
		if err != nil {
			msg = fmt.Sprintf("execution failed: %v", err)
		}
		_ = s.Repo.UpdateTaskRun(ctx, taskID, now, 0, msg)
		return
	}

	summary := fmt.Sprintf("通過率 %.1f%% (%d/%d)", report.PassRate(), report.Passed, report.Total)
	_ = s.Repo.UpdateTaskRun(ctx, taskID, now, report.ID, summary)

	if task.SendEmail {
		if to := task.GetEmailToList(); len(to) > 0 && s.Mail != nil {
			if err := s.Mail(*report, to); err != nil && s.Logger != nil {
				s.Logger.Log(fmt.Sprintf("scheduler: email send failed: %v", err))
			}
		}
	}
}
