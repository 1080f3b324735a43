package internal

import "time"

// BenchmarkRun is one pass of a sentence suite through a set of backends.
type BenchmarkRun struct {
	ID             string          `json:"id"`
	Suite          string          `json:"test_case"`
	TargetLanguage string          `json:"target_language"`
	Models         []string        `json:"models"`
	Fastest        string          `json:"faster_model,omitempty"`
	Duration       time.Duration   `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	Stats          []BackendStat   `json:"stats"`
	Items          []BenchmarkItem `json:"results,omitempty"`
}

// BackendStat aggregates one backend over a run. AvgLatency is in seconds
// and only counts successful calls.
type BackendStat struct {
	Backend    string  `json:"backend"`
	Attempts   int     `json:"attempts"`
	Successes  int     `json:"successes"`
	AvgLatency float64 `json:"avg_latency"`
}

type BenchmarkItem struct {
	Index    int              `json:"index"`
	Original string           `json:"original"`
	Outcomes []BackendOutcome `json:"outcomes"`
}

type BackendOutcome struct {
	Backend     string  `json:"backend"`
	Translation string  `json:"translation,omitempty"`
	Status      string  `json:"status"`
	Latency     float64 `json:"latency"`
	Error       string  `json:"error,omitempty"`
}

// BackendSummary aggregates one backend across all stored runs.
type BackendSummary struct {
	Backend    string  `json:"backend"`
	Runs       int     `json:"runs"`
	Attempts   int     `json:"attempts"`
	Successes  int     `json:"successes"`
	AvgLatency float64 `json:"avg_latency"`
}
