package pipeline

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/stretchr/testify/require"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/httpdispatch"
	"github.com/apitest-engine/apitestd/varstore"
)

func testPipeline() *Pipeline {
	logger := logharbour.NewLogger(&logharbour.LoggerContext{}, "pipeline-test", log.Writer())
	return New(varstore.New(), httpdispatch.NewDispatcher(), Resolvers{}, logger)
}

func TestRunPassesWithoutAssertionsOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	p := testPipeline()
	cfg := entity.ApiConfig{Name: "ping", URL: srv.URL, Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON}
	result := p.Run(context.Background(), cfg, nil)

	require.Equal(t, entity.ResultPass, result.Status)
	require.Equal(t, http.StatusOK, result.ResponseStatus)
}

func TestRunFailsWithoutAssertionsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := testPipeline()
	cfg := entity.ApiConfig{Name: "broken", URL: srv.URL, Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON}
	result := p.Run(context.Background(), cfg, nil)

	require.Equal(t, entity.ResultFail, result.Status)
}

func TestRunSubstitutesVarsIntoURLAndBody(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := testPipeline()
	p.Store.LoadGlobals(map[string]string{"id": "42"})
	cfg := entity.ApiConfig{
		Name: "sub", URL: srv.URL + "/users/{{id}}", Method: entity.MethodPost,
		TimeoutSeconds: 5, Body: `{"user_id":"{{id}}"}`, BodyType: entity.BodyJSON,
	}
	p.Run(context.Background(), cfg, nil)

	require.Equal(t, "/users/42", gotPath)
	require.Contains(t, gotBody, `"user_id":"42"`)
}

func TestRunEvaluatesAssertionsAndExtractsVars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"token":"abc123","count":2}`))
	}))
	defer srv.Close()

	p := testPipeline()
	cfg := entity.ApiConfig{
		Name: "extract", URL: srv.URL, Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON,
		ExtractVars: []entity.ExtractRule{{Name: "auth_token", Path: "token"}},
		Assertions:  []entity.Assertion{{Type: entity.AssertJSONPath, Path: "count", Expected: "2"}},
	}
	result := p.Run(context.Background(), cfg, nil)

	require.Equal(t, entity.ResultPass, result.Status)
	require.Contains(t, string(result.ExtractedVars), "abc123")
	require.Equal(t, "abc123", p.Store.Snapshot()["auth_token"])
}

func TestRunFailsOnDispatchError(t *testing.T) {
	p := testPipeline()
	cfg := entity.ApiConfig{Name: "unreachable", URL: "http://127.0.0.1:1", Method: entity.MethodGet, TimeoutSeconds: 1, BodyType: entity.BodyJSON}
	result := p.Run(context.Background(), cfg, nil)

	require.Equal(t, entity.ResultError, result.Status)
	require.NotEmpty(t, result.ErrorMessage)
}

func TestRunRepeatedRunsConfiguredCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := testPipeline()
	cfg := entity.ApiConfig{
		Name: "repeat", URL: srv.URL, Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON,
		RepeatEnabled: true, RepeatCount: 3,
	}
	results := p.RunRepeated(context.Background(), cfg, nil)
	require.Len(t, results, 3)
}

func TestRunRepeatedDefaultsToOneWhenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := testPipeline()
	cfg := entity.ApiConfig{Name: "once", URL: srv.URL, Method: entity.MethodGet, TimeoutSeconds: 5, BodyType: entity.BodyJSON, RepeatCount: 5}
	results := p.RunRepeated(context.Background(), cfg, nil)
	require.Len(t, results, 1)
}

func TestRunForcesErrorStatusOnWholeBodyEncryptionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := testPipeline()
	cfg := entity.ApiConfig{
		Name: "bad-encryption", URL: srv.URL, Method: entity.MethodPost, TimeoutSeconds: 5,
		Body: `{}`, BodyType: entity.BodyJSON, Encrypted: true,
		EncryptionAlgorithm: entity.EncryptionAlgorithm("bogus"),
		EncryptionKey:       "0123456789abcdef",
	}
	result := p.Run(context.Background(), cfg, nil)

	require.Equal(t, entity.ResultError, result.Status)
	require.NotEmpty(t, result.ErrorMessage)
}

func TestRunAppliesFieldEncryptionBeforeDispatch(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 2048)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := testPipeline()
	p.Store.LoadGlobals(map[string]string{"secret": "s3cr3t"})
	cfg := entity.ApiConfig{
		Name: "encrypt", URL: srv.URL, Method: entity.MethodPost, TimeoutSeconds: 5,
		Body: `{}`, BodyType: entity.BodyJSON,
		EncryptionKey: "0123456789abcdef0123456789abcdef",
		BodyEncRules:  []entity.BodyEncRule{{Field: "enc_secret", SSrc: "{{secret}}"}},
	}
	p.Run(context.Background(), cfg, nil)
	require.Contains(t, gotBody, "enc_secret")
	require.NotContains(t, gotBody, "s3cr3t")
}
