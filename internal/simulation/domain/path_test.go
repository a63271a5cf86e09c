package domain

import (
	"errors"
	"testing"
	"time"
)

func testHistory(propertyChanges, cpiChanges, rateChanges []float64) MarketHistory {
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	return MarketHistory{
		Property:     monthlySeries("property", start, propertyChanges...),
		CPI:          monthlySeries("cpi", start, cpiChanges...),
		MortgageRate: monthlySeries("rate", start, rateChanges...),
	}
}

func testPathConfig() PathConfig {
	return PathConfig{
		InitialPropertyValue:  250000,
		InitialCPIIndex:       100,
		InitialMortgageRate:   0.045,
		PropertyFloorFraction: 0.30,
		MortgageRateFloor:     0.005,
		RateLockMonths:        60,
	}
}

func TestGenerateDeterministic(t *testing.T) {
	history := testHistory(
		[]float64{0.01, -0.03, 0.02, -0.01, 0.005},
		[]float64{0.002, 0.004, -0.001, 0.003},
		[]float64{0.001, -0.002, 0.0005, -0.0005},
	)
	gen := NewPathGenerator(history, testPathConfig())

	a, err := gen.Generate(123456, 300)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := gen.Generate(123456, 300)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 0; i <= 300; i++ {
		if a.PropertyValue[i] != b.PropertyValue[i] ||
			a.CPIIndex[i] != b.CPIIndex[i] ||
			a.SpotMortgageRate[i] != b.SpotMortgageRate[i] ||
			a.MortgageRate[i] != b.MortgageRate[i] {
			t.Fatalf("month %d: paths diverge for identical seed", i)
		}
	}
}

func TestGeneratePropertyFloor(t *testing.T) {
	// 强下跌分布，确保触达下限
	history := testHistory(
		[]float64{-0.40, -0.30, -0.20},
		[]float64{0.002},
		[]float64{0.0},
	)
	cfg := testPathConfig()
	gen := NewPathGenerator(history, cfg)

	path, err := gen.Generate(9, 240)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	floor := cfg.PropertyFloorFraction * cfg.InitialPropertyValue
	hit := false
	for i, v := range path.PropertyValue {
		if v < floor {
			t.Fatalf("month %d: property %v below floor %v", i, v, floor)
		}
		if v == floor {
			hit = true
		}
	}
	if !hit {
		t.Error("crash distribution never reached the floor")
	}
}

func TestGenerateRateLockBlocks(t *testing.T) {
	history := testHistory(
		[]float64{0.0},
		[]float64{0.0},
		[]float64{0.002, -0.001, 0.0015, -0.0005},
	)
	gen := NewPathGenerator(history, testPathConfig())

	path, err := gen.Generate(77, 360)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	changes := 0
	for tm := 1; tm <= 360; tm++ {
		if path.MortgageRate[tm] != path.MortgageRate[tm-1] {
			if tm%60 != 0 {
				t.Fatalf("month %d: locked rate changed inside a 60-month block", tm)
			}
			changes++
		}
	}
	if changes == 0 {
		t.Error("locked rate never repriced across 6 blocks")
	}
}

func TestGenerateMortgageRateFloor(t *testing.T) {
	history := testHistory(
		[]float64{0.0},
		[]float64{0.0},
		[]float64{-0.01},
	)
	cfg := testPathConfig()
	gen := NewPathGenerator(history, cfg)

	path, err := gen.Generate(1, 120)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, r := range path.SpotMortgageRate {
		if r < cfg.MortgageRateFloor {
			t.Fatalf("month %d: spot rate %v below floor", i, r)
		}
	}
	if path.SpotMortgageRate[120] != cfg.MortgageRateFloor {
		t.Errorf("monotone falling deltas should pin the spot rate to the floor, got %v", path.SpotMortgageRate[120])
	}
}

func TestGenerateAnnualCPIRate(t *testing.T) {
	// 恒定月度通胀：四月重定的年率应为 (1+m)^12 - 1
	const m = 0.002
	history := testHistory(
		[]float64{0.0},
		[]float64{m},
		[]float64{0.0},
	)
	gen := NewPathGenerator(history, testPathConfig())

	path, err := gen.Generate(5, 120)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if path.AnnualCPIRate[1] != 0 {
		t.Errorf("annual rate before the first April should be zero, got %v", path.AnnualCPIRate[1])
	}

	want := 1.0
	for i := 0; i < 12; i++ {
		want *= 1 + m
	}
	want -= 1
	got := path.AnnualCPIRate[15] // 第二个四月，完整 12 个月窗口
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("annual CPI rate = %v, want %v", got, want)
	}
	if path.AnnualCPIRate[20] != got {
		t.Error("annual rate must hold constant between Aprils")
	}
}

func TestGenerateInvalidHorizon(t *testing.T) {
	history := testHistory([]float64{0.0}, []float64{0.0}, []float64{0.0})
	gen := NewPathGenerator(history, testPathConfig())
	if _, err := gen.Generate(1, 0); !errors.Is(err, ErrInvalidHorizon) {
		t.Fatalf("got %v, want ErrInvalidHorizon", err)
	}
}
