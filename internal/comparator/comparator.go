// Package comparator derives side-by-side metrics from a set of backend
// results. Everything here is pure and computed fresh per request.
//
// Sign conventions for a pair (a, b) taken in request order:
//
//	length_diff = runes(b) - runes(a)
//	speed_diff  = latency(b) - latency(a), seconds, rounded to ms
//
// so a positive speed_diff means a was faster.
package comparator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/valpere/transbench/internal/translator"
)

const NoteUnavailable = "comparison unavailable"

type PairwiseMetric struct {
	Models     [2]string `json:"models"`
	Available  bool      `json:"available"`
	AreSame    *bool     `json:"are_same,omitempty"`
	LengthDiff *int      `json:"length_diff,omitempty"`
	SpeedDiff  *float64  `json:"speed_diff,omitempty"`
	Note       string    `json:"note,omitempty"`
}

type Summary struct {
	SuccessfulModels   []string         `json:"successful_models"`
	TotalModels        int              `json:"total_models"`
	SuccessRate        float64          `json:"success_rate"`
	Fastest            string           `json:"fastest,omitempty"`
	LatencyRanking     []string         `json:"latency_ranking"`
	Pairwise           []PairwiseMetric `json:"pairwise"`
	LanguageMismatches []string         `json:"language_mismatches,omitempty"`
}

type Report struct {
	SourceText     string                       `json:"source_text"`
	TargetLanguage string                       `json:"target_language"`
	SelectedModels []string                     `json:"selected_models"`
	Results        map[string]translator.Result `json:"results"`
	Comparison     Summary                      `json:"comparison"`
}

// Normalize is the form translations are compared in.
func Normalize(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

// ComparePair compares two results. Pairs with a failed side carry only
// the unavailable note.
func ComparePair(a, b translator.Result) PairwiseMetric {
	m := PairwiseMetric{Models: [2]string{a.BackendID, b.BackendID}}
	if !a.OK() || !b.OK() {
		m.Note = NoteUnavailable
		return m
	}

	same := Normalize(a.Text()) == Normalize(b.Text())
	lengthDiff := utf8.RuneCountInString(b.Text()) - utf8.RuneCountInString(a.Text())
	speedDiff := roundSeconds(b.Latency - a.Latency)

	m.Available = true
	m.AreSame = &same
	m.LengthDiff = &lengthDiff
	m.SpeedDiff = &speedDiff
	m.Note = speedNote(a, b)
	return m
}

// CompareMany builds a report over results given in request order. The
// caller fills in the request fields.
func CompareMany(results []translator.Result) Report {
	report := Report{
		SelectedModels: make([]string, 0, len(results)),
		Results:        make(map[string]translator.Result, len(results)),
		Comparison: Summary{
			SuccessfulModels: []string{},
			LatencyRanking:   []string{},
			Pairwise:         []PairwiseMetric{},
			TotalModels:      len(results),
		},
	}

	var ok []translator.Result
	for _, r := range results {
		report.SelectedModels = append(report.SelectedModels, r.BackendID)
		report.Results[r.BackendID] = r
		if r.OK() {
			ok = append(ok, r)
			report.Comparison.SuccessfulModels = append(report.Comparison.SuccessfulModels, r.BackendID)
		}
	}

	if len(results) > 0 {
		report.Comparison.SuccessRate = float64(len(ok)) / float64(len(results))
	}

	ranked := append([]translator.Result(nil), ok...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Latency < ranked[j].Latency })
	for _, r := range ranked {
		report.Comparison.LatencyRanking = append(report.Comparison.LatencyRanking, r.BackendID)
	}
	if len(ranked) > 0 {
		report.Comparison.Fastest = ranked[0].BackendID
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			report.Comparison.Pairwise = append(report.Comparison.Pairwise, ComparePair(results[i], results[j]))
		}
	}
	return report
}

// LanguageMismatches lists successful results whose detected language is
// known and differs from want (ISO 639-1).
func LanguageMismatches(results []translator.Result, want string) []string {
	if want == "" {
		return nil
	}
	var out []string
	for _, r := range results {
		if r.OK() && r.DetectedLanguage != "" && !strings.EqualFold(r.DetectedLanguage, want) {
			out = append(out, r.BackendID)
		}
	}
	return out
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

func speedNote(a, b translator.Result) string {
	diff := b.Latency - a.Latency
	switch {
	case diff > 0:
		return fmt.Sprintf("%s was faster by %.2fs", a.Model, diff.Seconds())
	case diff < 0:
		return fmt.Sprintf("%s was slower by %.2fs", a.Model, -diff.Seconds())
	default:
		return fmt.Sprintf("%s and %s took the same time", a.Model, b.Model)
	}
}
