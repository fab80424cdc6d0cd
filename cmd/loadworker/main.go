// Command loadworker is the isolated subprocess the Load Driver spawns per
// load-test task: it reads config_<id>.json, fans out virtual users against
// the materialized API list, writes status_<id>.json at least every 0.5s,
// and writes result_<id>.json with per-endpoint statistics plus an
// "Aggregated" row on completion.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/apitest-engine/apitestd/loaddriver"
)

func main() {
	configPath := flag.String("config", "", "path to config_<id>.json")
	flag.Parse()
	if *configPath == "" {
		log.Fatal("loadworker: -config is required")
	}

	cfg, err := readConfig(*configPath)
	if err != nil {
		log.Fatalf("loadworker: read config: %v", err)
	}

	w := newWorker(cfg)
	w.run()
}

func readConfig(path string) (loaddriver.WorkerConfig, error) {
	var cfg loaddriver.WorkerConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(b, &cfg)
	return cfg, err
}

type endpointCounters struct {
	mu          sync.Mutex
	numRequests int64
	numFailures int64
	latencies   []float64 // ms
}

type worker struct {
	cfg       loaddriver.WorkerConfig
	counters  map[string]*endpointCounters
	active    atomic.Int64
	totalReq  atomic.Int64
	totalFail atomic.Int64
	stop      chan struct{}
	start     time.Time
	client    *http.Client
}

func newWorker(cfg loaddriver.WorkerConfig) *worker {
	counters := make(map[string]*endpointCounters, len(cfg.APIs))
	for _, a := range cfg.APIs {
		counters[a.Name] = &endpointCounters{}
	}
	return &worker{
		cfg:      cfg,
		counters: counters,
		stop:     make(chan struct{}),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *worker) run() {
	var stopOnce sync.Once
	stopAll := func() { stopOnce.Do(func() { close(w.stop) }) }

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		stopAll()
	}()

	w.start = time.Now()
	w.writeStatus(loaddriver.StateStarting)

	var wg sync.WaitGroup
	spawnInterval := time.Duration(float64(time.Second) / maxF(w.cfg.SpawnRate, 1))

	statusDone := make(chan struct{})
	go w.statusLoop(statusDone)

	for i := 0; i < w.cfg.Users; i++ {
		select {
		case <-w.stop:
			goto ramped
		default:
		}
		wg.Add(1)
		go w.virtualUser(&wg)
		w.active.Add(1)
		time.Sleep(spawnInterval)
	}
ramped:

	deadline := time.Now().Add(time.Duration(w.cfg.DurationSec) * time.Second)
	if w.cfg.DurationSec <= 0 {
		deadline = time.Now().Add(24 * time.Hour)
	}
	select {
	case <-time.After(time.Until(deadline)):
	case <-w.stop:
	}
	stopAll()
	wg.Wait()
	close(statusDone)

	w.writeResult()
}

func (w *worker) statusLoop(done chan struct{}) {
	ticker := time.NewTicker(loaddriver.StatusPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.writeStatus(loaddriver.StateRunning)
		}
	}
}


func (w *worker) virtualUser(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-w.stop:
			return
		default:
		}
		for _, api := range w.cfg.APIs {
			select {
			case <-w.stop:
				return
			default:
			}
			w.issueRequest(api)
			time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
		}
	}
}

func (w *worker) issueRequest(api loaddriver.APIStep) {
	var bodyReader *bytes.Reader
	if api.Body != nil {
		b, err := json.Marshal(api.Body)
		if err != nil {
			b = nil
		}
		bodyReader = bytes.NewReader(b)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(api.Method, api.URL, bodyReader)
	if err != nil {
		w.recordFailure(api.Name, 0)
		return
	}
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && api.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		w.recordFailure(api.Name, elapsedMs)
		return
	}
	defer resp.Body.Close()

	c := w.counters[api.Name]
	c.mu.Lock()
	c.numRequests++
	c.latencies = append(c.latencies, elapsedMs)
	if resp.StatusCode >= 400 {
		c.numFailures++
	}
	c.mu.Unlock()

	w.totalReq.Add(1)
	if resp.StatusCode >= 400 {
		w.totalFail.Add(1)
	}
}

func (w *worker) recordFailure(name string, elapsedMs float64) {
	c := w.counters[name]
	c.mu.Lock()
	c.numRequests++
	c.numFailures++
	c.latencies = append(c.latencies, elapsedMs)
	c.mu.Unlock()
	w.totalReq.Add(1)
	w.totalFail.Add(1)
}

func (w *worker) writeStatus(state loaddriver.WorkerState) {
	status := loaddriver.WorkerStatus{
		State:         state,
		ElapsedSec:    time.Since(w.start).Seconds(),
		ActiveUsers:   int(w.active.Load()),
		TotalRequests: w.totalReq.Load(),
		TotalFailures: w.totalFail.Load(),
	}
	b, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(w.cfg.StatusPath, b, 0o644)
}

func (w *worker) writeResult() {
	stats := make([]loaddriver.EndpointStats, 0, len(w.counters)+1)
	var aggLatencies []float64
	var aggReq, aggFail int64

	names := make([]string, 0, len(w.counters))
	for name := range w.counters {
		names = append(names, name)
	}
	sort.Strings(names)

	elapsed := time.Since(w.start).Seconds()
	for _, name := range names {
		c := w.counters[name]
		c.mu.Lock()
		lat := append([]float64(nil), c.latencies...)
		n, f := c.numRequests, c.numFailures
		c.mu.Unlock()

		stats = append(stats, computeStats(name, n, f, lat, elapsed))
		aggLatencies = append(aggLatencies, lat...)
		aggReq += n
		aggFail += f
	}
	stats = append(stats, computeStats(loaddriver.AggregatedName, aggReq, aggFail, aggLatencies, elapsed))

	result := loaddriver.WorkerResult{Stats: stats, DurationSec: elapsed}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		w.writeStatus(loaddriver.StateError)
		return
	}
	_ = os.WriteFile(w.cfg.ResultPath, b, 0o644)
	w.writeStatus(loaddriver.StateCompleted)
}

func computeStats(name string, numReq, numFail int64, latencies []float64, elapsedSec float64) loaddriver.EndpointStats {
	stats := loaddriver.EndpointStats{Name: name, NumRequests: numReq, NumFailures: numFail}
	if elapsedSec > 0 {
		stats.RPS = float64(numReq) / elapsedSec
	}
	if len(latencies) == 0 {
		return stats
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	stats.Avg = sum / float64(len(sorted))
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.Percentiles = map[string]float64{
		"50": percentile(sorted, 50),
		"75": percentile(sorted, 75),
		"90": percentile(sorted, 90),
		"95": percentile(sorted, 95),
		"99": percentile(sorted, 99),
	}
	return stats
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(p)/100*float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
