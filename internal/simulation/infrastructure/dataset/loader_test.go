package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadParsesSeries(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		PropertyCSV: writeCSV(t, dir, "property.csv",
			"date,monthly_change\n2020-01,0.012\n2020-02,-0.004\n2020-03,0.007\n"),
		CPICSV: writeCSV(t, dir, "cpi.csv",
			"2020-01,0.002\n2020-02,0.003\n"),
		MortgageRateCSV: writeCSV(t, dir, "rate.csv",
			"date,monthly_change\n2020-01-01,0.0005\n2020-02-01,-0.001\n"),
	}

	history, err := Load(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if history.Property.Len() != 3 {
		t.Errorf("property points = %d, want 3", history.Property.Len())
	}
	if history.CPI.Len() != 2 {
		t.Errorf("cpi points = %d, want 2 (headerless file)", history.CPI.Len())
	}
	if history.MortgageRate.Len() != 2 {
		t.Errorf("rate points = %d, want 2", history.MortgageRate.Len())
	}

	if got := history.Property.Points[1].Change; got != -0.004 {
		t.Errorf("property change[1] = %v, want -0.004", got)
	}
	if history.Property.Points[0].Date.Month() != 1 || history.Property.Points[0].Date.Year() != 2020 {
		t.Errorf("property date[0] = %v", history.Property.Points[0].Date)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		PropertyCSV:     filepath.Join(dir, "missing.csv"),
		CPICSV:          writeCSV(t, dir, "cpi.csv", "2020-01,0.002\n"),
		MortgageRateCSV: writeCSV(t, dir, "rate.csv", "2020-01,0.0005\n"),
	}
	if _, err := Load(context.Background(), cfg); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestLoadRejectsBadRows(t *testing.T) {
	dir := t.TempDir()

	bad := Config{
		PropertyCSV:     writeCSV(t, dir, "p1.csv", "2020-01,not-a-number\n"),
		CPICSV:          writeCSV(t, dir, "c1.csv", "2020-01,0.002\n"),
		MortgageRateCSV: writeCSV(t, dir, "r1.csv", "2020-01,0.0005\n"),
	}
	if _, err := Load(context.Background(), bad); err == nil {
		t.Fatal("invalid change value accepted")
	}

	badDate := Config{
		PropertyCSV:     writeCSV(t, dir, "p2.csv", "not-a-date,0.01\nalso-bad,0.02\n"),
		CPICSV:          writeCSV(t, dir, "c2.csv", "2020-01,0.002\n"),
		MortgageRateCSV: writeCSV(t, dir, "r2.csv", "2020-01,0.0005\n"),
	}
	if _, err := Load(context.Background(), badDate); err == nil {
		t.Fatal("invalid date accepted")
	}
}
