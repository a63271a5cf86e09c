package domain

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBatchParams() Parameters {
	p := DefaultParameters()
	p.NumScenariosPerYear = 25
	p.MaxRepaymentYear = 6
	p.MortgageTermYears = 10
	return p
}

func volatileHistory() MarketHistory {
	return testHistory(
		[]float64{0.015, -0.025, 0.008, -0.004, 0.012, 0.001},
		[]float64{0.004, 0.001, 0.006, -0.001},
		[]float64{0.0015, -0.001, 0.0005, 0.002, -0.0025},
	)
}

func TestOrchestratorRejectsBadInputs(t *testing.T) {
	params := testBatchParams()
	params.NumScenariosPerYear = 0
	if _, err := NewMonteCarloOrchestrator(params, volatileHistory(), 4, testLogger()); err == nil {
		t.Fatal("invalid parameters accepted")
	}

	bad := volatileHistory()
	bad.Property = HistoricalSeries{Name: "property"}
	if _, err := NewMonteCarloOrchestrator(testBatchParams(), bad, 4, testLogger()); err == nil {
		t.Fatal("empty history accepted")
	}
}

func TestOrchestratorCoversAllYears(t *testing.T) {
	o, err := NewMonteCarloOrchestrator(testBatchParams(), volatileHistory(), 4, testLogger())
	if err != nil {
		t.Fatalf("NewMonteCarloOrchestrator: %v", err)
	}
	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Aborted {
		t.Fatal("uncancelled batch reported as aborted")
	}
	if len(result.Years) != 7 {
		t.Fatalf("got %d years, want 7 (years 0 through 6)", len(result.Years))
	}

	seen := make(map[int]bool)
	for i, y := range result.Years {
		seen[y.TargetYear] = true
		if y.Scenarios != 25 || y.Excluded != 0 {
			t.Errorf("year %d: scenarios=%d excluded=%d", y.TargetYear, y.Scenarios, y.Excluded)
		}
		if y.Rank != i+1 {
			t.Errorf("position %d carries rank %d", i, y.Rank)
		}
		if i > 0 && result.Years[i-1].P50 < y.P50 {
			t.Errorf("ranking not descending by median at position %d", i)
		}
		if y.P5 > y.P50 || y.P50 > y.P95 {
			t.Errorf("year %d: percentiles out of order p5=%v p50=%v p95=%v", y.TargetYear, y.P5, y.P50, y.P95)
		}
		lo, hi := ScenarioSeed(y.TargetYear, 0), ScenarioSeed(y.TargetYear, 24)
		if y.MedianSeed < lo || y.MedianSeed > hi {
			t.Errorf("year %d: median seed %d outside [%d,%d]", y.TargetYear, y.MedianSeed, lo, hi)
		}
	}
	for year := 0; year <= 6; year++ {
		if !seen[year] {
			t.Errorf("year %d missing from results", year)
		}
	}
}

func TestOrchestratorSmallBatch(t *testing.T) {
	params := testBatchParams()
	params.NumScenariosPerYear = 5
	params.MaxRepaymentYear = 3
	o, err := NewMonteCarloOrchestrator(params, flatHistory(), 2, testLogger())
	if err != nil {
		t.Fatalf("NewMonteCarloOrchestrator: %v", err)
	}

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run with 5 scenarios per year: %v", err)
	}
	if len(result.Years) != 4 {
		t.Fatalf("got %d years, want 4", len(result.Years))
	}
	for _, y := range result.Years {
		if y.Scenarios != 5 {
			t.Errorf("year %d reduced %d scenarios, want 5", y.TargetYear, y.Scenarios)
		}
		if y.P5 > y.P50 || y.P50 > y.P95 {
			t.Errorf("year %d: percentiles out of order p5=%v p50=%v p95=%v", y.TargetYear, y.P5, y.P50, y.P95)
		}
	}
}

func TestReduceYearOrderInvariance(t *testing.T) {
	pnls := []float64{-4200.5, 1250, 310.25, 9850, -180, 47.5, 7600}
	seeds := []int64{30000, 30001, 30002, 30003, 30004, 30005, 30006}

	base, err := reduceYear(3, pnls, seeds, 0)
	if err != nil {
		t.Fatalf("reduceYear: %v", err)
	}

	shuffledPnls := append([]float64(nil), pnls...)
	shuffledSeeds := append([]int64(nil), seeds...)
	rng := rand.New(rand.NewSource(99))
	rng.Shuffle(len(shuffledPnls), func(i, j int) {
		shuffledPnls[i], shuffledPnls[j] = shuffledPnls[j], shuffledPnls[i]
		shuffledSeeds[i], shuffledSeeds[j] = shuffledSeeds[j], shuffledSeeds[i]
	})

	shuffled, err := reduceYear(3, shuffledPnls, shuffledSeeds, 0)
	if err != nil {
		t.Fatalf("reduceYear after shuffle: %v", err)
	}
	if *base != *shuffled {
		t.Fatalf("reduction depends on collection order:\n%+v\n%+v", base, shuffled)
	}
}

func TestOrchestratorSchedulingInvariance(t *testing.T) {
	run := func(workers int) *BatchResult {
		o, err := NewMonteCarloOrchestrator(testBatchParams(), volatileHistory(), workers, testLogger())
		if err != nil {
			t.Fatalf("NewMonteCarloOrchestrator: %v", err)
		}
		result, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return result
	}

	serial := run(1)
	parallel := run(8)

	if len(serial.Years) != len(parallel.Years) {
		t.Fatalf("year counts differ: %d vs %d", len(serial.Years), len(parallel.Years))
	}
	for i := range serial.Years {
		if serial.Years[i] != parallel.Years[i] {
			t.Fatalf("year %d stats differ across worker counts:\n%+v\n%+v",
				serial.Years[i].TargetYear, serial.Years[i], parallel.Years[i])
		}
	}
}

func TestOrchestratorCancellation(t *testing.T) {
	params := testBatchParams()
	params.NumScenariosPerYear = 200
	params.MaxRepaymentYear = 12
	o, err := NewMonteCarloOrchestrator(params, volatileHistory(), 1, testLogger())
	if err != nil {
		t.Fatalf("NewMonteCarloOrchestrator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
	if !result.Aborted {
		t.Fatal("cancelled batch not marked aborted")
	}
	if len(result.Years) != 0 {
		t.Fatalf("pre-cancelled batch reduced %d years", len(result.Years))
	}
}
