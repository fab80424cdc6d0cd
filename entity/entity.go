// Package entity holds the persisted data model for the test-execution
// engine: ApiConfig and its supporting configuration rows, and the
// TestReport/TestResult/ScheduledTask rows the engine produces.
package entity

import (
	"encoding/json"
	"time"
)

// JSONText is a string known to hold a JSON document or, for a handful of
// legacy columns (ApiConfig.Body in text/plain mode), an opaque literal
// string. It mirrors jobs.JSONstr's role of validating shape once at the
// repository boundary instead of on every read.
type JSONText string

// ParseObject decodes the text as a JSON object. Non-object JSON or invalid
// JSON returns a nil map and the original text is treated by callers as an
// opaque value, matching ApiConfig.get_body's "JSON or raw string" duck typing.
func (j JSONText) ParseObject() (map[string]any, bool) {
	if j == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(j), &m); err != nil {
		return nil, false
	}
	return m, true
}

// ParseAny decodes the text as any JSON value.
func (j JSONText) ParseAny() (any, bool) {
	if j == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(j), &v); err != nil {
		return nil, false
	}
	return v, true
}

// BodyEncRule is one entry of ApiConfig.BodyEncRules: encrypt the value
// named by SSrc and write it into body_map[Field].
type BodyEncRule struct {
	Field     string `json:"field"`
	SSrc      string `json:"ssrc"`
	JSONDumps bool   `json:"json_dumps,omitempty"`
	Raw       string `json:"raw,omitempty"`
}

// ExtractRule pulls a value out of a decoded HTTP response and writes it
// into the variable store under Name.
type ExtractRule struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// AssertionType enumerates the HTTP assertion kinds of §4.C.
type AssertionType string

const (
	AssertStatusCode AssertionType = "status_code"
	AssertJSONPath   AssertionType = "json_path"
	AssertContains   AssertionType = "contains"
	AssertNotEmpty   AssertionType = "not_empty"
	AssertRegex      AssertionType = "regex"
)

// Assertion is one HTTP-response assertion rule.
type Assertion struct {
	Type     AssertionType `json:"type"`
	Path     string        `json:"path,omitempty"`
	Expected string        `json:"expected,omitempty"`
}

// DeepdiffAssertion is one structural-diff assertion rule.
type DeepdiffAssertion struct {
	Label       string   `json:"label"`
	Expected    any      `json:"expected"`
	IgnoreFields []string `json:"ignore_fields,omitempty"`
	CheckPath   string   `json:"check_path,omitempty"`
}

// DBAssertionField is one field-level sub-check of a (possibly multi-field)
// DB assertion rule.
type DBAssertionField struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Expected string `json:"expected"`
}

// DBAssertion accepts both the legacy single-field shape (Field/Operator/
// Expected populated directly) and the multi-field shape (Fields populated),
// same as run_db_assertions in the original implementation.
type DBAssertion struct {
	DBID     int64              `json:"db_id"`
	SQL      string             `json:"sql"`
	Label    string             `json:"label,omitempty"`
	Field    string             `json:"field,omitempty"`
	Operator string             `json:"operator,omitempty"`
	Expected string             `json:"expected,omitempty"`
	Fields   []DBAssertionField `json:"fields,omitempty"`
}

// FieldChecks normalizes the legacy/new shapes into one list, as
// run_db_assertions does before iterating.
func (d DBAssertion) FieldChecks() []DBAssertionField {
	if len(d.Fields) > 0 {
		return d.Fields
	}
	return []DBAssertionField{{Field: d.Field, Operator: d.Operator, Expected: d.Expected}}
}

// PreRedisRule reads a value from Redis before substitution runs and
// injects it into the variable store.
type PreRedisRule struct {
	RedisID       int64  `json:"redis_id"`
	Key           string `json:"key"`
	VarName       string `json:"var_name"`
	ExtractField  string `json:"extract_field,omitempty"`
}

// HTTPMethod enumerates ApiConfig.Method.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// BodyType enumerates ApiConfig.BodyType, the body-framing mode of §4.G.
type BodyType string

const (
	BodyJSON   BodyType = "json"
	BodyData   BodyType = "data"
	BodyParams BodyType = "params"
	BodyForm   BodyType = "form"
	BodyText   BodyType = "text"
	BodyRaw    BodyType = "raw"
	BodyFiles  BodyType = "files"
)

// EncryptionAlgorithm enumerates the whole-body encryption modes.
type EncryptionAlgorithm string

const (
	EncAES     EncryptionAlgorithm = "AES"
	EncAESGCM  EncryptionAlgorithm = "AES-GCM"
	EncBase64  EncryptionAlgorithm = "BASE64"
	EncMD5     EncryptionAlgorithm = "MD5"
)

// ApiConfig is a user-defined HTTP request template; see spec §3.
type ApiConfig struct {
	ID         int64
	Name       string
	CategoryID *int64
	SortOrder  int

	URL            string
	Method         HTTPMethod
	TimeoutSeconds int

	Headers JSONText
	Params  JSONText
	Body    JSONText
	BodyType BodyType

	UseSession bool
	UseAsync   bool

	SSLVerify         string // "true" | "false" | path
	SSLCert           string
	ClientCertEnabled bool
	ClientCert        string
	ClientKey         string

	Encrypted           bool
	EncryptionKey       string
	EncryptionAlgorithm EncryptionAlgorithm
	BodyEncRules        []BodyEncRule

	ExtractVars        []ExtractRule
	Assertions         []Assertion
	DeepdiffAssertions []DeepdiffAssertion
	DBAssertions       []DBAssertion
	PreRedisRules      []PreRedisRule

	PreSQLDBID  *int64
	PreSQL      string
	PostSQLDBID *int64
	PostSQL     string

	RepeatEnabled bool
	RepeatCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GlobalVariable is a persisted {name -> value} entry merged under the
// runtime variable store (runtime wins on conflict).
type GlobalVariable struct {
	ID      int64
	Name    string
	Value   string
	VarType string // string | token | json
}

// DatabaseConfig names a relational target for pre/post SQL and DB
// assertions. The original targets MySQL via PyMySQL; this engine targets
// Postgres via pgx — see DESIGN.md for the rationale.
type DatabaseConfig struct {
	ID       int64
	Name     string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Charset  string // accepted, unused against Postgres
}

// RedisConfig names a Redis target for the Redis Unit.
type RedisConfig struct {
	ID       int64
	Name     string
	Host     string
	Port     int
	Password string
	DB       int
}

// EmailConfig names an SMTP relay the mailer collaborator uses.
type EmailConfig struct {
	ID       int64
	Name     string
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseSSL   bool
	UseTLS   bool
	IsActive bool
}

// ReportStatus enumerates TestReport.Status.
type ReportStatus string

const (
	ReportRunning   ReportStatus = "running"
	ReportCompleted ReportStatus = "completed"
	ReportError     ReportStatus = "error"
)

// TestReport is the persisted outcome of one batch/schedule/load-test run.
type TestReport struct {
	ID              int64
	Name            string
	Status          ReportStatus
	Total           int
	Passed          int
	Failed          int
	Error           int
	DurationSeconds float64
	CreatedAt       time.Time
}

// PassRate returns round(passed/total*100, 1), or 0 when Total is 0.
func (r TestReport) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	rate := float64(r.Passed) / float64(r.Total) * 100
	return roundTo(rate, 1)
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}

// ResultStatus enumerates TestResult.Status.
type ResultStatus string

const (
	ResultPass  ResultStatus = "pass"
	ResultFail  ResultStatus = "fail"
	ResultError ResultStatus = "error"
)

// TestResult is one API execution's outcome within a TestReport.
type TestResult struct {
	ID       int64
	ReportID int64

	ApiName  string
	URL      string
	Method   HTTPMethod
	UseAsync bool

	RequestHeaders string
	RequestParams  string
	RequestBody    string

	ResponseStatus  int
	ResponseHeaders string
	ResponseBody    string // truncated to 10000 chars
	ResponseTimeMs  float64

	Status       ResultStatus
	ErrorMessage string

	ExtractedVars      json.RawMessage
	AssertionResults   json.RawMessage
	DBAssertionResults json.RawMessage
	DeepdiffResults    json.RawMessage
	PreSQLResult       json.RawMessage
	PostSQLResult      json.RawMessage
}

// MaxResponseBodyChars is the truncation bound named in spec §3.
const MaxResponseBodyChars = 10000

// Truncate trims s to MaxResponseBodyChars runes, matching the Python
// slice-by-character truncation the original applies.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxResponseBodyChars {
		return s
	}
	return string(r[:MaxResponseBodyChars])
}

// TriggerType enumerates ScheduledTask.TriggerType.
type TriggerType string

const (
	TriggerCron     TriggerType = "cron"
	TriggerInterval TriggerType = "interval"
)

// TaskStatus enumerates ScheduledTask.Status.
type TaskStatus string

const (
	TaskActive TaskStatus = "active"
	TaskPaused TaskStatus = "paused"
	TaskStopped TaskStatus = "stopped"
)

// ScheduledTask is a cron/interval registration that replays an ordered
// API list on a timer.
type ScheduledTask struct {
	ID            int64
	Name          string
	APIIDsCSV     string // comma-separated, ordered; see GetAPIIDs
	TriggerType   TriggerType
	CronExpr      string
	IntervalSecs  int
	ReportNameTpl string
	SendEmail     bool
	EmailToCSV    string
	Status        TaskStatus

	LastRunAt    *time.Time
	LastReportID *int64
	LastResult   string
}
