// Package loaddriver implements the Load Driver (component K): a
// subprocess-isolated virtual-user fan-out over a materialized API list,
// exchanging config/status/result JSON files with a dedicated worker
// process (cmd/loadworker), and the host-side start/status/stop/collect
// API.
package loaddriver

import "time"

// APIStep is one minimal, already-substituted request the worker replays,
// matching §4.K step 1's payload shape.
type APIStep struct {
	Name     string            `json:"name"`
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     any               `json:"body,omitempty"`
	Params   map[string]any    `json:"params,omitempty"`
	BodyType string            `json:"body_type"`
}

// WorkerConfig is config_<id>.json's shape: everything the worker needs to
// run a virtual-user fan-out with no further lookups.
type WorkerConfig struct {
	TaskID      string    `json:"task_id"`
	Users       int       `json:"users"`
	SpawnRate   float64   `json:"spawn_rate"`
	DurationSec int       `json:"duration_sec"`
	APIs        []APIStep `json:"apis"`
	StatusPath  string    `json:"status_path"`
	ResultPath  string    `json:"result_path"`
}

// WorkerState enumerates status.json's state field.
type WorkerState string

const (
	StateStarting WorkerState = "starting"
	StateRamping  WorkerState = "ramping"
	StateRunning  WorkerState = "running"
	StateCompleted WorkerState = "completed"
	StateError    WorkerState = "error"
)

// WorkerStatus is status_<id>.json's shape, rewritten at least every 0.5s.
type WorkerStatus struct {
	State          WorkerState `json:"state"`
	ElapsedSec     float64     `json:"elapsed"`
	ActiveUsers    int         `json:"active_users"`
	TotalRequests  int64       `json:"total_requests"`
	TotalFailures  int64       `json:"total_failures"`
	Error          string      `json:"error,omitempty"`
}

// EndpointStats is one endpoint's (or the synthetic "Aggregated" row's)
// final statistics, written into result_<id>.json.
type EndpointStats struct {
	Name         string             `json:"name"`
	NumRequests  int64              `json:"num_requests"`
	NumFailures  int64              `json:"num_failures"`
	Avg          float64            `json:"avg"`
	Min          float64            `json:"min"`
	Max          float64            `json:"max"`
	Percentiles  map[string]float64 `json:"percentiles"` // keys "50","75","90","95","99"
	RPS          float64            `json:"rps"`
}

// WorkerResult is result_<id>.json's shape.
type WorkerResult struct {
	Stats      []EndpointStats `json:"stats"` // last entry is "Aggregated"
	DurationSec float64        `json:"duration_sec"`
}

// AggregatedName is the synthetic row name summarizing every endpoint.
const AggregatedName = "Aggregated"

// StatusPollInterval bounds how often the worker rewrites status.json.
const StatusPollInterval = 500 * time.Millisecond

// GracefulStopGrace is how long a load test is given to drain its worker
// pool after a stop signal, per §5.
const GracefulStopGrace = 15 * time.Second
