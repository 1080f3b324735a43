package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/transbench/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, createdAt time.Time) internal.BenchmarkRun {
	return internal.BenchmarkRun{
		ID:             id,
		Suite:          "museum_tour",
		TargetLanguage: "french",
		Models:         []string{"marian", "google"},
		Fastest:        "marian",
		Duration:       2500 * time.Millisecond,
		CreatedAt:      createdAt,
		Stats: []internal.BackendStat{
			{Backend: "marian", Attempts: 2, Successes: 2, AvgLatency: 0.5},
			{Backend: "google", Attempts: 2, Successes: 1, AvgLatency: 1.25},
		},
		Items: []internal.BenchmarkItem{
			{
				Index:    0,
				Original: "  Welcome to the museum.  ",
				Outcomes: []internal.BackendOutcome{
					{Backend: "marian", Translation: "Bienvenue au musée.", Status: "success", Latency: 0.4},
					{Backend: "google", Translation: "Bienvenue au musée.", Status: "success", Latency: 1.25},
				},
			},
			{
				Index:    1,
				Original: "This painting is famous.",
				Outcomes: []internal.BackendOutcome{
					{Backend: "marian", Translation: "Ce tableau est célèbre.", Status: "success", Latency: 0.6},
					{Backend: "google", Status: "failed", Latency: 3, Error: "timeout after 3s"},
				},
			},
		},
	}
}

func TestStore_New(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBenchmarkRun(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveBenchmarkRun failed: %v", err)
	}

	run, err := s.GetBenchmarkRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBenchmarkRun failed: %v", err)
	}

	if run.Suite != "museum_tour" || run.TargetLanguage != "french" {
		t.Errorf("unexpected run header: %+v", run)
	}
	if len(run.Models) != 2 || run.Models[0] != "marian" || run.Models[1] != "google" {
		t.Errorf("expected models [marian google], got %v", run.Models)
	}
	if run.Duration != 2500*time.Millisecond {
		t.Errorf("expected duration 2.5s, got %v", run.Duration)
	}
	if len(run.Stats) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(run.Stats))
	}
	if run.Stats[1].Backend != "google" || run.Stats[1].Successes != 1 || run.Stats[1].AvgLatency != 1.25 {
		t.Errorf("unexpected google stat: %+v", run.Stats[1])
	}

	if len(run.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(run.Items))
	}
	if run.Items[0].Original != "Welcome to the museum." {
		t.Errorf("expected trimmed source text, got %q", run.Items[0].Original)
	}
	failed := run.Items[1].Outcomes[1]
	if failed.Status != "failed" || failed.Error != "timeout after 3s" || failed.Latency != 3 {
		t.Errorf("unexpected failed outcome: %+v", failed)
	}
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBenchmarkRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStore_SaveRun_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBenchmarkRun(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveBenchmarkRun failed: %v", err)
	}
	if err := s.SaveBenchmarkRun(ctx, sampleRun("run-1", time.Now())); err == nil {
		t.Error("expected error for duplicate run id")
	}

	runs, err := s.ListBenchmarkRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListBenchmarkRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected the failed save to roll back, got %d runs", len(runs))
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "middle", "new"} {
		if err := s.SaveBenchmarkRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveBenchmarkRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListBenchmarkRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListBenchmarkRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "middle" {
		t.Errorf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
	if len(runs[0].Stats) != 2 {
		t.Errorf("expected stats on listed runs, got %d", len(runs[0].Stats))
	}
	if len(runs[0].Items) != 0 {
		t.Errorf("expected listed runs without items, got %d", len(runs[0].Items))
	}

	all, err := s.ListBenchmarkRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListBenchmarkRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestStore_BackendSummaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBenchmarkRun(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveBenchmarkRun failed: %v", err)
	}
	second := sampleRun("run-2", time.Now())
	second.Stats = []internal.BackendStat{{Backend: "marian", Attempts: 2, Successes: 2, AvgLatency: 1.5}}
	second.Items = nil
	if err := s.SaveBenchmarkRun(ctx, second); err != nil {
		t.Fatalf("SaveBenchmarkRun failed: %v", err)
	}

	sums, err := s.BackendSummaries(ctx)
	if err != nil {
		t.Fatalf("BackendSummaries failed: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(sums))
	}

	// sorted by backend name
	google, marian := sums[0], sums[1]
	if google.Backend != "google" || google.Runs != 1 || google.Successes != 1 {
		t.Errorf("unexpected google summary: %+v", google)
	}
	if marian.Runs != 2 || marian.Attempts != 4 || marian.Successes != 4 {
		t.Errorf("unexpected marian summary: %+v", marian)
	}
	if marian.AvgLatency < 0.999 || marian.AvgLatency > 1.001 {
		t.Errorf("expected weighted avg latency 1.0, got %f", marian.AvgLatency)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"café", "café"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
