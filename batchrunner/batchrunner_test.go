package batchrunner

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/stretchr/testify/require"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/httpdispatch"
	"github.com/apitest-engine/apitestd/pipeline"
	"github.com/apitest-engine/apitestd/varstore"
)

type fakeRepo struct {
	mu      sync.Mutex
	apis    []entity.ApiConfig
	globals map[string]string
	reports []entity.TestReport
	results []entity.TestResult
}

func (r *fakeRepo) ListAPIsByID(ctx context.Context, ids []int64) ([]entity.ApiConfig, error) {
	return r.apis, nil
}

func (r *fakeRepo) LoadGlobals(ctx context.Context) (map[string]string, error) {
	return r.globals, nil
}

func (r *fakeRepo) CreateReport(ctx context.Context, report entity.TestReport) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.reports) + 1)
	report.ID = id
	r.reports = append(r.reports, report)
	return id, nil
}

func (r *fakeRepo) UpdateReport(ctx context.Context, report entity.TestReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.reports {
		if existing.ID == report.ID {
			r.reports[i] = report
		}
	}
	return nil
}

func (r *fakeRepo) InsertResult(ctx context.Context, result entity.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func testRunner(repo *fakeRepo) *Runner {
	logger := logharbour.NewLogger(&logharbour.LoggerContext{}, "batchrunner-test", log.Writer())
	store := varstore.New()
	p := pipeline.New(store, httpdispatch.NewDispatcher(), pipeline.Resolvers{}, logger)
	return &Runner{Store: store, Pipeline: p, Repo: repo, Progress: NewProgressRegistry(), Logger: logger}
}

func TestRunExecutesInSortOrderAndPersistsReport(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	repo := &fakeRepo{apis: []entity.ApiConfig{
		{ID: 2, Name: "second", SortOrder: 2, URL: srv.URL + "/second", Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON},
		{ID: 1, Name: "first", SortOrder: 1, URL: srv.URL + "/first", Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON},
	}}
	runner := testRunner(repo)

	report, err := runner.Run(context.Background(), Options{APIIDs: []int64{1, 2}, ReportName: "nightly"})
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Equal(t, []string{"/first", "/second"}, order)
	require.Equal(t, 2, report.Passed)
	require.Equal(t, entity.ReportCompleted, report.Status)
	require.Len(t, repo.results, 2)
}

func TestRunReturnsNilWhenNoAPIsMatch(t *testing.T) {
	repo := &fakeRepo{apis: nil}
	runner := testRunner(repo)

	report, err := runner.Run(context.Background(), Options{APIIDs: []int64{99}})
	require.NoError(t, err)
	require.Nil(t, report)
}

func TestRunStopsOnFailureWhenRequested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	repo := &fakeRepo{apis: []entity.ApiConfig{
		{ID: 1, SortOrder: 1, URL: srv.URL + "/fail", Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON},
		{ID: 2, SortOrder: 2, URL: srv.URL + "/ok", Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON},
	}}
	runner := testRunner(repo)

	report, err := runner.Run(context.Background(), Options{APIIDs: []int64{1, 2}, StopOnFailure: true})
	require.NoError(t, err)
	require.Equal(t, 1, report.Total)
	require.Len(t, repo.results, 1)
}

func TestRunPublishesProgressWhenTaskIDSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	repo := &fakeRepo{apis: []entity.ApiConfig{
		{ID: 1, SortOrder: 1, URL: srv.URL, Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON},
	}}
	runner := testRunner(repo)

	_, err := runner.Run(context.Background(), Options{APIIDs: []int64{1}, TaskID: "task-1"})
	require.NoError(t, err)

	progress, ok := runner.Progress.Get("task-1")
	require.True(t, ok)
	require.Equal(t, "completed", progress.Status)
}
