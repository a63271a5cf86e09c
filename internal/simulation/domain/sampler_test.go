package domain

import (
	"errors"
	"testing"
	"time"
)

// monthlySeries 构造一条以 start 为起点的月度序列
func monthlySeries(name string, start time.Time, changes ...float64) HistoricalSeries {
	s := HistoricalSeries{Name: name}
	for i, c := range changes {
		s.Points = append(s.Points, SeriesPoint{
			Date:   start.AddDate(0, i, 0),
			Change: c,
		})
	}
	return s
}

func TestBootstrapSamplerDeterministic(t *testing.T) {
	series := monthlySeries("property", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		0.01, -0.02, 0.03, 0.005, -0.015)

	a, err := NewBootstrapSampler(series, 42)
	if err != nil {
		t.Fatalf("NewBootstrapSampler: %v", err)
	}
	b, err := NewBootstrapSampler(series, 42)
	if err != nil {
		t.Fatalf("NewBootstrapSampler: %v", err)
	}

	for i := 0; i < 1000; i++ {
		if va, vb := a.Sample(), b.Sample(); va != vb {
			t.Fatalf("draw %d: %v != %v", i, va, vb)
		}
	}
}

func TestBootstrapSamplerSeedsDiffer(t *testing.T) {
	series := monthlySeries("cpi", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		0.001, 0.002, 0.003, 0.004, 0.005, 0.006, 0.007, 0.008)

	a, _ := NewBootstrapSampler(series, 1)
	b, _ := NewBootstrapSampler(series, 2)

	same := true
	for i := 0; i < 100; i++ {
		if a.Sample() != b.Sample() {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical draw sequences")
	}
}

func TestBootstrapSamplerDrawsFromHistory(t *testing.T) {
	series := monthlySeries("rate", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		0.1, 0.2, 0.3)
	s, _ := NewBootstrapSampler(series, 7)

	allowed := map[float64]bool{0.1: true, 0.2: true, 0.3: true}
	for _, v := range s.SampleN(200) {
		if !allowed[v] {
			t.Fatalf("drew %v, not in historical distribution", v)
		}
	}
}

func TestBootstrapSamplerEmptySeries(t *testing.T) {
	_, err := NewBootstrapSampler(HistoricalSeries{Name: "empty"}, 1)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}

func TestLookbackFiltersOldPoints(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := monthlySeries("property", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		make([]float64, 300)...)

	filtered := series.Lookback(10, now)
	if filtered.Len() == 0 {
		t.Fatal("lookback removed all points")
	}
	if filtered.Len() >= series.Len() {
		t.Fatalf("lookback kept %d of %d points", filtered.Len(), series.Len())
	}
	cutoff := now.AddDate(-11, 0, 0)
	for _, p := range filtered.Points {
		if p.Date.Before(cutoff) {
			t.Fatalf("point at %s survived a 10y lookback", p.Date)
		}
	}

	if series.Lookback(0, now).Len() != series.Len() {
		t.Error("zero lookback must keep all history")
	}
}

func TestMarketHistoryValidate(t *testing.T) {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	ok := MarketHistory{
		Property:     monthlySeries("property", start, 0.01),
		CPI:          monthlySeries("cpi", start, 0.002),
		MortgageRate: monthlySeries("rate", start, 0.0),
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := ok
	bad.CPI = HistoricalSeries{Name: "cpi"}
	if err := bad.Validate(); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}
