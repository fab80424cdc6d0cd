// Package pipeline implements the Per-API Pipeline (component H): the
// 12-stage ordered orchestration that turns one entity.ApiConfig into one
// entity.TestResult.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/apitest-engine/apitestd/assertion"
	"github.com/apitest-engine/apitestd/cryptoutil"
	"github.com/apitest-engine/apitestd/dbexec"
	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/extract"
	"github.com/apitest-engine/apitestd/httpdispatch"
	"github.com/apitest-engine/apitestd/metrics"
	"github.com/apitest-engine/apitestd/redisunit"
	"github.com/apitest-engine/apitestd/varstore"
)

// Resolvers lets the pipeline reach configuration rows without depending on
// a concrete repository implementation.
type Resolvers struct {
	DatabaseConfig func(ctx context.Context, dbID int64) (entity.DatabaseConfig, error)
	RedisConfig    func(ctx context.Context, redisID int64) (entity.RedisConfig, error)
}

// Pipeline executes ApiConfigs against a shared Store and Dispatcher.
type Pipeline struct {
	Store      *varstore.Store
	Dispatcher *httpdispatch.Dispatcher
	Resolvers  Resolvers
	Logger     *logharbour.Logger
	Metrics    metrics.Metrics // optional; nil disables instrumentation

	redisClients map[int64]*redis.Client
}

// New builds a Pipeline.
func New(store *varstore.Store, dispatcher *httpdispatch.Dispatcher, resolvers Resolvers, logger *logharbour.Logger) *Pipeline {
	return &Pipeline{
		Store:        store,
		Dispatcher:   dispatcher,
		Resolvers:    resolvers,
		Logger:       logger,
		redisClients: make(map[int64]*redis.Client),
	}
}

// WithMetrics attaches a metrics.Metrics sink, registering the histogram it
// records into.
func (p *Pipeline) WithMetrics(m metrics.Metrics) *Pipeline {
	m.RegisterWithLabels("apitest_pipeline_run_duration_seconds", "Histogram", "Duration of one per-API pipeline run.", []string{"status"})
	p.Metrics = m
	return p
}

func (p *Pipeline) redisClient(ctx context.Context, redisID int64) (*redis.Client, error) {
	if c, ok := p.redisClients[redisID]; ok {
		return c, nil
	}
	cfg, err := p.Resolvers.RedisConfig(ctx, redisID)
	if err != nil {
		return nil, err
	}
	c := redisunit.NewClient(cfg)
	p.redisClients[redisID] = c
	return c, nil
}

// Extra carries ad-hoc variable overrides layered on top of the store's
// snapshot for one invocation, per §4.H step 1.
type Extra map[string]string

// Run executes cfg's pipeline once and returns a TestResult. extraVars may
// be nil.
func (p *Pipeline) Run(ctx context.Context, cfg entity.ApiConfig, extraVars Extra) entity.TestResult {
	start := time.Now()
	result := entity.TestResult{
		ApiName:  cfg.Name,
		URL:      cfg.URL,
		Method:   cfg.Method,
		UseAsync: cfg.UseAsync,
	}
	if p.Metrics != nil {
		defer func() {
			p.Metrics.RecordWithLabels("apitest_pipeline_run_duration_seconds", time.Since(start).Seconds(), string(result.Status))
		}()
	}

	// 1. Snapshot variables.
	vars := p.Store.Snapshot()
	for k, v := range extraVars {
		vars[k] = v
	}

	// 2. Pre-Redis rules.
	preRedisLog := p.runPreRedis(ctx, cfg.PreRedisRules, vars)

	// 3. Substitute url, headers, params, body.
	url := varstore.Substitute(cfg.URL, vars)
	headersMap := decodeHeaders(cfg.Headers)
	headers := stringMapFromSubstituted(varstore.SubstituteDeep(headersMap, vars))
	paramsAny, _ := cfg.Params.ParseAny()
	params, _ := varstore.SubstituteDeep(paramsAny, vars).(map[string]any)
	bodyAny, _ := cfg.Body.ParseAny()
	if bodyAny == nil {
		bodyAny = string(cfg.Body)
	}
	body := varstore.SubstituteDeep(bodyAny, vars)

	bodyType := cfg.BodyType
	var encryptedFields []string

	// 4. Field-level encryption (takes precedence over whole-body).
	if len(cfg.BodyEncRules) > 0 {
		bm, _ := body.(map[string]any)
		rules := make([]cryptoutil.BodyEncRule, 0, len(cfg.BodyEncRules))
		for _, r := range cfg.BodyEncRules {
			rules = append(rules, cryptoutil.BodyEncRule{Field: r.Field, SSrc: r.SSrc, JSONDumps: r.JSONDumps, Raw: r.Raw})
			encryptedFields = append(encryptedFields, r.Field)
		}
		body = cryptoutil.ApplyBodyEncRules(bm, rules, cfg.EncryptionKey, vars)
	} else if cfg.Encrypted {
		// 5. Whole-body encryption.
		serialized := serializeBody(body)
		cipher, err := encryptWholeBody(serialized, cfg.EncryptionAlgorithm, cfg.EncryptionKey)
		if err != nil {
			result.ErrorMessage = truncate(fmt.Sprintf("encryption failed: %v", err), 400)
		} else {
			switch bodyType {
			case entity.BodyText, entity.BodyData, entity.BodyRaw:
				body = cipher
			default:
				body = map[string]any{"encrypted": cipher}
				bodyType = entity.BodyJSON
			}
		}
	}

	reqHeadersJSON, _ := json.Marshal(headers)
	reqParamsJSON, _ := json.Marshal(params)
	reqBodyJSON, _ := json.Marshal(body)
	result.RequestHeaders = string(reqHeadersJSON)
	result.RequestParams = string(reqParamsJSON)
	result.RequestBody = string(reqBodyJSON)

	// 6. Pre-SQL.
	var preSQLResult any
	if cfg.PreSQLDBID != nil && cfg.PreSQL != "" {
		preSQLResult = p.runSQL(ctx, *cfg.PreSQLDBID, varstore.Substitute(cfg.PreSQL, vars))
	}
	if preSQLResult != nil {
		result.PreSQLResult, _ = json.Marshal(preSQLResult)
	}

	// 7. HTTP dispatch.
	httpReq, buildErr := httpdispatch.BuildRequest(string(cfg.Method), url, headers, params, body, bodyType)
	var dispatchResult httpdispatch.Result
	var dispatchErr error
	apiID := fmt.Sprintf("%d", cfg.ID)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	tlsCfg := httpdispatch.TLSConfig{
		Verify:            cfg.SSLVerify,
		ClientCertEnabled: cfg.ClientCertEnabled,
		ClientCert:        cfg.ClientCert,
		ClientKey:         cfg.ClientKey,
	}

	if buildErr != nil {
		result.ErrorMessage = truncate(fmt.Sprintf("request build failed: %v", buildErr), 400)
		result.Status = entity.ResultError
		return result
	}

	dispatchStart := time.Now()
	if cfg.UseAsync {
		dispatchResult, dispatchErr = p.Dispatcher.DoAsync(ctx, apiID, cfg.UseSession, httpReq, tlsCfg, timeout)
	} else {
		dispatchResult, dispatchErr = p.Dispatcher.DoSync(ctx, apiID, cfg.UseSession, httpReq, tlsCfg, timeout)
	}
	result.ResponseTimeMs = roundTo(time.Since(dispatchStart).Seconds()*1000, 2)

	if dispatchErr != nil {
		result.ErrorMessage = classifyDispatchError(dispatchErr, cfg.UseAsync, timeout)
		result.ResponseStatus = 0
		result.Status = entity.ResultError
		return result
	}

	result.ResponseStatus = dispatchResult.Status
	headersJSON, _ := json.Marshal(dispatchResult.Headers)
	result.ResponseHeaders = string(headersJSON)
	result.ResponseBody = entity.Truncate(dispatchResult.Body)

	// 8. Parse response.
	decoded := decodeResponse(dispatchResult.Body)

	// 9. Extraction (only if HTTP succeeded).
	var extracted = map[string]any{}
	for _, rule := range cfg.ExtractVars {
		val := extract.Extract(decoded, rule.Path)
		if val != nil {
			p.Store.Set(rule.Name, varstore.Stringify(val))
			vars[rule.Name] = varstore.Stringify(val)
			extracted[rule.Name] = val
		}
	}
	result.ExtractedVars, _ = json.Marshal(extracted)

	// 10. HTTP + structural-diff assertions.
	httpResults := assertion.RunHTTPAssertions(cfg.Assertions, dispatchResult.Status, decoded)
	ddResults := assertion.RunDeepdiffAssertions(cfg.DeepdiffAssertions, decoded)
	result.AssertionResults, _ = json.Marshal(httpResults)
	result.DeepdiffResults, _ = json.Marshal(ddResults)
	allHTTPOK := assertion.AllPassed(httpResults)
	allDDOK := assertion.AllPassed(ddResults)

	// 11. Post-SQL.
	var postSQLResult any
	if cfg.PostSQLDBID != nil && cfg.PostSQL != "" {
		postSQLResult = p.runSQL(ctx, *cfg.PostSQLDBID, varstore.Substitute(cfg.PostSQL, vars))
	}
	if postSQLResult != nil {
		result.PostSQLResult, _ = json.Marshal(postSQLResult)
	}

	// 12. DB assertions.
	var allDBOK = true
	if len(cfg.DBAssertions) > 0 {
		substituted := substituteDBAssertions(cfg.DBAssertions, vars)
		cache := dbexec.NewConnCache(p.Resolvers.DatabaseConfig)
		defer cache.Close(ctx)
		dbResults := assertion.RunDBAssertions(ctx, cache, substituted)
		result.DBAssertionResults, _ = json.Marshal(dbResults)
		for _, r := range dbResults {
			if !r.Passed {
				allDBOK = false
			}
		}
	}

	anyAssertionsDeclared := len(cfg.Assertions) > 0 || len(cfg.DeepdiffAssertions) > 0 || len(cfg.DBAssertions) > 0
	switch {
	case result.ErrorMessage != "":
		result.Status = entity.ResultError
	case !anyAssertionsDeclared:
		if dispatchResult.Status >= 200 && dispatchResult.Status < 300 {
			result.Status = entity.ResultPass
		} else {
			result.Status = entity.ResultFail
		}
	case allHTTPOK && allDDOK && allDBOK:
		result.Status = entity.ResultPass
	default:
		result.Status = entity.ResultFail
	}

	if p.Logger != nil {
		preRedisPassed := 0
		for _, r := range preRedisLog {
			if r.Passed {
				preRedisPassed++
			}
		}
		p.Logger.LogDataChange("pipeline run completed", logharbour.ChangeInfo{
			Entity: "TestResult",
			Op:     "Executed",
			Changes: []logharbour.ChangeDetail{
				{"status", "", string(result.Status)},
				{"pre_redis_ok", "", fmt.Sprintf("%d/%d", preRedisPassed, len(preRedisLog))},
			},
		})
	}

	return result
}

func (p *Pipeline) runPreRedis(ctx context.Context, rules []entity.PreRedisRule, vars map[string]string) []assertion.Result {
	results := make([]assertion.Result, 0, len(rules))
	for _, rule := range rules {
		client, err := p.redisClient(ctx, rule.RedisID)
		if err != nil {
			results = append(results, assertion.Result{Rule: rule.VarName, Passed: false, Message: err.Error()})
			continue
		}
		err = redisunit.FetchCaptchaToGlobal(ctx, client, rule.Key, rule.VarName, rule.ExtractField, vars, p.Store, nil)
		if err != nil {
			results = append(results, assertion.Result{Rule: rule.VarName, Passed: false, Message: err.Error()})
			continue
		}
		if v, ok := p.Store.Snapshot()[rule.VarName]; ok {
			vars[rule.VarName] = v
		}
		results = append(results, assertion.Result{Rule: rule.VarName, Passed: true, Message: "ok"})
	}
	return results
}

func (p *Pipeline) runSQL(ctx context.Context, dbID int64, sql string) dbexec.ExecResult {
	cfg, err := p.Resolvers.DatabaseConfig(ctx, dbID)
	if err != nil {
		return dbexec.ExecResult{Success: false, Error: err.Error()}
	}
	conn, err := dbexec.Connect(ctx, cfg)
	if err != nil {
		return dbexec.ExecResult{Success: false, Error: err.Error()}
	}
	defer conn.Close(ctx)
	return dbexec.ExecuteStatements(ctx, conn, sql)
}

func substituteDBAssertions(rules []entity.DBAssertion, vars map[string]string) []entity.DBAssertion {
	out := make([]entity.DBAssertion, len(rules))
	for i, r := range rules {
		nr := r
		nr.SQL = varstore.Substitute(r.SQL, vars)
		nr.Expected = varstore.Substitute(r.Expected, vars)
		if len(r.Fields) > 0 {
			nf := make([]entity.DBAssertionField, len(r.Fields))
			for j, f := range r.Fields {
				f.Expected = varstore.Substitute(f.Expected, vars)
				nf[j] = f
			}
			nr.Fields = nf
		}
		out[i] = nr
	}
	return out
}

func classifyDispatchError(err error, async bool, timeout time.Duration) string {
	mode := "synchronous"
	if async {
		mode = "asynchronous"
	}
	if isTimeout(err) {
		return fmt.Sprintf("%s request timed out after %v", mode, timeout)
	}
	return truncate(err.Error(), 400)
}

func isTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "timed out")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}

func decodeHeaders(j entity.JSONText) map[string]any {
	m, _ := j.ParseObject()
	return m
}

func stringMapFromSubstituted(x any) map[string]string {
	m, ok := x.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = varstore.Stringify(v)
	}
	return out
}

func serializeBody(body any) string {
	if s, ok := body.(string); ok {
		return s
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(b)
}

func encryptWholeBody(plain string, algo entity.EncryptionAlgorithm, key string) (string, error) {
	switch algo {
	case entity.EncAESGCM:
		return cryptoutil.AESGCM(plain, key)
	case entity.EncAES:
		return cryptoutil.AESCBC(plain, key)
	case entity.EncBase64:
		return cryptoutil.Base64(plain), nil
	case entity.EncMD5:
		return cryptoutil.MD5(plain), nil
	default:
		return "", fmt.Errorf("unknown encryption algorithm %q", algo)
	}
}

func decodeResponse(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// RunRepeated runs cfg repeat_count times serially, returning one
// TestResult per iteration, matching §4.H's repeat-mode semantics.
func (p *Pipeline) RunRepeated(ctx context.Context, cfg entity.ApiConfig, extraVars Extra) []entity.TestResult {
	count := cfg.RepeatCount
	if !cfg.RepeatEnabled || count < 1 {
		count = 1
	}
	results := make([]entity.TestResult, 0, count)
	for i := 0; i < count; i++ {
		results = append(results, p.Run(ctx, cfg, extraVars))
	}
	return results
}
