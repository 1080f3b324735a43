// Package benchmark runs predefined sentence suites through the
// orchestrator and aggregates per-backend latency and success counts.
package benchmark

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal"
	"github.com/valpere/transbench/internal/comparator"
	"github.com/valpere/transbench/internal/orchestrator"
	"github.com/valpere/transbench/internal/translator"
)

const DefaultSuite = "general"

var suites = map[string][]string{
	"museum_tour": {
		"Welcome to the National Museum. This ancient artifact was created in the 15th century.",
		"This painting by Leonardo da Vinci represents the Renaissance period.",
		"The sculpture was discovered in Egypt and dates back to 3000 BC.",
		"This exhibition showcases traditional European art and culture.",
		"The museum houses over 5000 historical artifacts from around the world.",
	},
	"guided_tour": {
		"Follow me as we explore this historic building.",
		"This room was used by the royal family for important ceremonies.",
		"The architecture reflects traditional European design elements.",
		"Please be careful with the stairs as they are quite old.",
		"Our next stop will be the heritage garden behind the palace.",
	},
	"general": {
		"Hello, how are you today?",
		"Can you help me find the nearest restaurant?",
		"What time does the tour start?",
		"Thank you for your assistance.",
		"I would like to learn more about local culture.",
	},
}

// Suites lists the known suite names, sorted.
func Suites() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sentences resolves a suite by name. Unknown names fall back to the
// general suite; the returned name is the one actually used.
func Sentences(name string) (string, []string) {
	key := strings.ToLower(strings.TrimSpace(name))
	if s, ok := suites[key]; ok {
		return key, append([]string(nil), s...)
	}
	return DefaultSuite, append([]string(nil), suites[DefaultSuite]...)
}

// Comparer is satisfied by *orchestrator.Orchestrator.
type Comparer interface {
	Compare(ctx context.Context, req orchestrator.Request) (*comparator.Report, error)
}

// Sink persists finished runs; *store.Store implements it.
type Sink interface {
	SaveBenchmarkRun(ctx context.Context, run internal.BenchmarkRun) error
}

type Request struct {
	Suite          string   `json:"testCase"`
	TargetLanguage string   `json:"targetLanguage"`
	Models         []string `json:"models"`
}

type Runner struct {
	comparer Comparer
	sink     Sink
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRunner builds a runner. sink may be nil, in which case runs are not
// persisted.
func NewRunner(comparer Comparer, sink Sink, logger zerolog.Logger) *Runner {
	return &Runner{
		comparer: comparer,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sends every sentence of the suite to the selected backends, one
// sentence at a time. A failed save is logged; the run is still returned.
func (r *Runner) Run(ctx context.Context, req Request) (*internal.BenchmarkRun, error) {
	suite, sentences := Sentences(req.Suite)

	run := &internal.BenchmarkRun{
		ID:        uuid.New().String(),
		Suite:     suite,
		CreatedAt: r.now(),
	}
	started := time.Now()

	for i, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("benchmark interrupted at sentence %d: %w", i, err)
		}

		report, err := r.comparer.Compare(ctx, orchestrator.Request{
			Text:           sentence,
			TargetLanguage: req.TargetLanguage,
			Models:         req.Models,
		})
		if err != nil {
			return nil, err
		}

		if run.Models == nil {
			run.Models = append([]string(nil), report.SelectedModels...)
			run.TargetLanguage = report.TargetLanguage
		}
		run.Items = append(run.Items, item(i, sentence, report))
	}

	run.Duration = time.Since(started)
	run.Stats = Summarize(run.Models, run.Items)
	run.Fastest = Fastest(run.Stats)

	r.logger.Info().
		Str("run_id", run.ID).
		Str("suite", run.Suite).
		Str("language", run.TargetLanguage).
		Strs("models", run.Models).
		Str("fastest", run.Fastest).
		Dur("duration", run.Duration).
		Msg("benchmark finished")

	if r.sink != nil {
		if err := r.sink.SaveBenchmarkRun(ctx, *run); err != nil {
			r.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to save benchmark run")
		}
	}
	return run, nil
}

func item(index int, sentence string, report *comparator.Report) internal.BenchmarkItem {
	it := internal.BenchmarkItem{Index: index, Original: sentence}
	for _, id := range report.SelectedModels {
		res := report.Results[id]
		it.Outcomes = append(it.Outcomes, internal.BackendOutcome{
			Backend:     id,
			Translation: res.Text(),
			Status:      string(res.Status),
			Latency:     res.LatencySeconds(),
			Error:       res.ErrorMessage(),
		})
	}
	return it
}

// Summarize computes per-backend stats in model order. Average latency
// only counts successful outcomes.
func Summarize(models []string, items []internal.BenchmarkItem) []internal.BackendStat {
	stats := make([]internal.BackendStat, len(models))
	index := make(map[string]int, len(models))
	for i, id := range models {
		stats[i].Backend = id
		index[id] = i
	}

	totals := make([]float64, len(models))
	for _, it := range items {
		for _, o := range it.Outcomes {
			i, ok := index[o.Backend]
			if !ok {
				continue
			}
			stats[i].Attempts++
			if o.Status == string(translator.StatusSuccess) {
				stats[i].Successes++
				totals[i] += o.Latency
			}
		}
	}

	for i := range stats {
		if stats[i].Successes > 0 {
			stats[i].AvgLatency = round3(totals[i] / float64(stats[i].Successes))
		}
	}
	return stats
}

// Fastest returns the backend with the lowest average latency among those
// with at least one success. Ties keep the earlier backend.
func Fastest(stats []internal.BackendStat) string {
	best := -1
	for i, st := range stats {
		if st.Successes == 0 {
			continue
		}
		if best < 0 || st.AvgLatency < stats[best].AvgLatency {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return stats[best].Backend
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
