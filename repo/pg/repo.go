// Package pg is the Postgres-backed repository implementing
// batchrunner.Repository and scheduler.Repository, grounded on
// jobs/jobmanager.go's pgxpool usage and jobs/pg/batchsqlc's hand-rolled
// query style (this package doesn't use sqlc codegen since its queries are
// simple CRUD, but keeps the same pgx/v5 + pgxpool driver).
package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apitest-engine/apitestd/entity"
)

// Repo is the pgxpool-backed implementation of the engine's repository
// boundary.
type Repo struct {
	Pool *pgxpool.Pool
}

// New returns a Repo over pool.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{Pool: pool}
}

// ListAPIsByID loads the ApiConfig rows named by ids, unordered (callers
// sort per §5's (sort_order, id) rule).
func (r *Repo) ListAPIsByID(ctx context.Context, ids []int64) ([]entity.ApiConfig, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT id, name, category_id, sort_order, url, method, timeout_seconds,
		       headers, params, body, body_type, use_session, use_async,
		       ssl_verify, ssl_cert, client_cert_enabled, client_cert, client_key,
		       encrypted, encryption_key, encryption_algorithm, body_enc_rules,
		       extract_vars, assertions, deepdiff_assertions, db_assertions, pre_redis_rules,
		       pre_sql_db_id, pre_sql, post_sql_db_id, post_sql,
		       repeat_enabled, repeat_count, created_at, updated_at
		FROM api_configs WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pg: list apis: %w", err)
	}
	defer rows.Close()

	var out []entity.ApiConfig
	for rows.Next() {
		var (
			api                                                                  entity.ApiConfig
			categoryID, preSQLDBID, postSQLDBID                                  *int64
			bodyEncRulesJSON, extractVarsJSON, assertionsJSON, ddJSON, dbAssertJSON, preRedisJSON []byte
		)
		if err := rows.Scan(
			&api.ID, &api.Name, &categoryID, &api.SortOrder, &api.URL, &api.Method, &api.TimeoutSeconds,
			&api.Headers, &api.Params, &api.Body, &api.BodyType, &api.UseSession, &api.UseAsync,
			&api.SSLVerify, &api.SSLCert, &api.ClientCertEnabled, &api.ClientCert, &api.ClientKey,
			&api.Encrypted, &api.EncryptionKey, &api.EncryptionAlgorithm, &bodyEncRulesJSON,
			&extractVarsJSON, &assertionsJSON, &ddJSON, &dbAssertJSON, &preRedisJSON,
			&preSQLDBID, &api.PreSQL, &postSQLDBID, &api.PostSQL,
			&api.RepeatEnabled, &api.RepeatCount, &api.CreatedAt, &api.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pg: scan api: %w", err)
		}
		api.CategoryID = categoryID
		api.PreSQLDBID = preSQLDBID
		api.PostSQLDBID = postSQLDBID
		_ = json.Unmarshal(bodyEncRulesJSON, &api.BodyEncRules)
		_ = json.Unmarshal(extractVarsJSON, &api.ExtractVars)
		_ = json.Unmarshal(assertionsJSON, &api.Assertions)
		_ = json.Unmarshal(ddJSON, &api.DeepdiffAssertions)
		_ = json.Unmarshal(dbAssertJSON, &api.DBAssertions)
		_ = json.Unmarshal(preRedisJSON, &api.PreRedisRules)
		out = append(out, api)
	}
	return out, rows.Err()
}

// LoadGlobals returns every persisted GlobalVariable as a flat map.
func (r *Repo) LoadGlobals(ctx context.Context) (map[string]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT name, value FROM global_variables`)
	if err != nil {
		return nil, fmt.Errorf("pg: load globals: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("pg: scan global: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// SetGlobal upserts a single persisted global, used by pre-Redis captcha
// extraction.
func (r *Repo) SetGlobal(ctx context.Context, name, value string) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO global_variables (name, value, var_type) VALUES ($1, $2, 'string')
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	if err != nil {
		return fmt.Errorf("pg: set global: %w", err)
	}
	return nil
}

// CreateReport inserts a new TestReport row and returns its id.
func (r *Repo) CreateReport(ctx context.Context, report entity.TestReport) (int64, error) {
	var id int64
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO test_reports (name, status, total, passed, failed, error, duration_seconds, created_at)
		VALUES ($1, $2, $3, 0, 0, 0, 0, $4) RETURNING id`,
		report.Name, report.Status, report.Total, report.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("pg: create report: %w", err)
	}
	return id, nil
}

// UpdateReport persists report's final counters; reports are immutable
// after this call per §3's lifecycle invariant.
func (r *Repo) UpdateReport(ctx context.Context, report entity.TestReport) error {
	_, err := r.Pool.Exec(ctx, `
		UPDATE test_reports SET status=$1, total=$2, passed=$3, failed=$4, error=$5, duration_seconds=$6
		WHERE id=$7`,
		report.Status, report.Total, report.Passed, report.Failed, report.Error, report.DurationSeconds, report.ID)
	if err != nil {
		return fmt.Errorf("pg: update report: %w", err)
	}
	return nil
}

// InsertResult persists one TestResult row owned by result.ReportID.
func (r *Repo) InsertResult(ctx context.Context, result entity.TestResult) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO test_results (
			report_id, api_name, url, method, use_async,
			request_headers, request_params, request_body,
			response_status, response_headers, response_body, response_time_ms,
			status, error_message,
			extracted_vars, assertion_results, db_assertion_results, deepdiff_results,
			pre_sql_result, post_sql_result
		) VALUES ($1,$2,$3,$4,$5, $6,$7,$8, $9,$10,$11,$12, $13,$14, $15,$16,$17,$18, $19,$20)`,
		result.ReportID, result.ApiName, result.URL, result.Method, result.UseAsync,
		result.RequestHeaders, result.RequestParams, result.RequestBody,
		result.ResponseStatus, result.ResponseHeaders, result.ResponseBody, result.ResponseTimeMs,
		result.Status, result.ErrorMessage,
		nullableJSON(result.ExtractedVars), nullableJSON(result.AssertionResults),
		nullableJSON(result.DBAssertionResults), nullableJSON(result.DeepdiffResults),
		nullableJSON(result.PreSQLResult), nullableJSON(result.PostSQLResult),
	)
	if err != nil {
		return fmt.Errorf("pg: insert result: %w", err)
	}
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// GetTask loads one ScheduledTask by id.
func (r *Repo) GetTask(ctx context.Context, taskID int64) (entity.ScheduledTask, error) {
	var t entity.ScheduledTask
	var apiIDs []int64
	var emailTo []string
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, api_ids, trigger_type, cron_expr, interval_secs, report_name_tpl,
		       send_email, email_to, status, last_run_at, last_report_id, last_result
		FROM scheduled_tasks WHERE id = $1`, taskID).Scan(
		&t.ID, &t.Name, &apiIDs, &t.TriggerType, &t.CronExpr, &t.IntervalSecs, &t.ReportNameTpl,
		&t.SendEmail, &emailTo, &t.Status, &t.LastRunAt, &t.LastReportID, &t.LastResult,
	)
	if err != nil {
		return entity.ScheduledTask{}, fmt.Errorf("pg: get task: %w", err)
	}
	t.APIIDsCSV = joinInt64(apiIDs)
	t.EmailToCSV = strings.Join(emailTo, ",")
	return t, nil
}

// ListActiveTasks loads every ScheduledTask with status=active.
func (r *Repo) ListActiveTasks(ctx context.Context) ([]entity.ScheduledTask, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, name, api_ids, trigger_type, cron_expr, interval_secs, report_name_tpl,
		       send_email, email_to, status, last_run_at, last_report_id, last_result
		FROM scheduled_tasks WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("pg: list active tasks: %w", err)
	}
	defer rows.Close()

	var out []entity.ScheduledTask
	for rows.Next() {
		var t entity.ScheduledTask
		var apiIDs []int64
		var emailTo []string
		if err := rows.Scan(
			&t.ID, &t.Name, &apiIDs, &t.TriggerType, &t.CronExpr, &t.IntervalSecs, &t.ReportNameTpl,
			&t.SendEmail, &emailTo, &t.Status, &t.LastRunAt, &t.LastReportID, &t.LastResult,
		); err != nil {
			return nil, fmt.Errorf("pg: scan task: %w", err)
		}
		t.APIIDsCSV = joinInt64(apiIDs)
		t.EmailToCSV = strings.Join(emailTo, ",")
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskRun persists last-run bookkeeping after one scheduled firing.
func (r *Repo) UpdateTaskRun(ctx context.Context, taskID int64, lastRunAt time.Time, lastReportID int64, lastResult string) error {
	var reportID any
	if lastReportID != 0 {
		reportID = lastReportID
	}
	_, err := r.Pool.Exec(ctx, `
		UPDATE scheduled_tasks SET last_run_at=$1, last_report_id=$2, last_result=$3 WHERE id=$4`,
		lastRunAt, reportID, lastResult, taskID)
	if err != nil {
		return fmt.Errorf("pg: update task run: %w", err)
	}
	return nil
}

// GetDatabaseConfig resolves a DatabaseConfig by id, for dbexec.ConnCache's
// resolver callback.
func (r *Repo) GetDatabaseConfig(ctx context.Context, dbID int64) (entity.DatabaseConfig, error) {
	var cfg entity.DatabaseConfig
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, host, port, username, password, database, charset
		FROM database_configs WHERE id = $1`, dbID).Scan(
		&cfg.ID, &cfg.Name, &cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password, &cfg.Database, &cfg.Charset)
	if err != nil {
		return entity.DatabaseConfig{}, fmt.Errorf("pg: get database config %d: %w", dbID, err)
	}
	return cfg, nil
}

// GetRedisConfig resolves a RedisConfig by id.
func (r *Repo) GetRedisConfig(ctx context.Context, redisID int64) (entity.RedisConfig, error) {
	var cfg entity.RedisConfig
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, host, port, password, db FROM redis_configs WHERE id = $1`, redisID).Scan(
		&cfg.ID, &cfg.Name, &cfg.Host, &cfg.Port, &cfg.Password, &cfg.DB)
	if err != nil {
		return entity.RedisConfig{}, fmt.Errorf("pg: get redis config %d: %w", redisID, err)
	}
	return cfg, nil
}

func joinInt64(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
