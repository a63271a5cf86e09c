package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/equitysim/internal/simulation/domain"
)

type fakeRepo struct {
	runs map[string]*domain.SimulationRun
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{runs: make(map[string]*domain.SimulationRun)}
}

func (f *fakeRepo) SaveRun(ctx context.Context, run *domain.SimulationRun) error {
	copied := *run
	f.runs[run.RunID] = &copied
	return nil
}

func (f *fakeRepo) FindRunByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	return f.runs[runID], nil
}

func (f *fakeRepo) SaveStatistics(ctx context.Context, runID string, years []domain.YearStatistics) error {
	return nil
}

func (f *fakeRepo) FindStatisticsByRunID(ctx context.Context, runID string) ([]domain.YearStatistics, error) {
	return nil, nil
}

func testService(repo domain.SimulationRepository) *SimulationApplicationService {
	return &SimulationApplicationService{
		defaults: domain.DefaultParameters(),
		workers:  1,
		repo:     repo,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestBuildParametersMergesOverrides(t *testing.T) {
	svc := testService(newFakeRepo())

	merged := svc.buildParameters(RunSimulationCommand{
		NumScenariosPerYear:  50,
		InitialPropertyValue: decimal.NewFromInt(400000),
		SchemeMargin:         0.01,
	})

	if merged.NumScenariosPerYear != 50 {
		t.Errorf("scenarios = %d, want override 50", merged.NumScenariosPerYear)
	}
	if !merged.InitialPropertyValue.Equal(decimal.NewFromInt(400000)) {
		t.Errorf("property value = %s, want override 400000", merged.InitialPropertyValue)
	}
	if merged.SchemeMargin != 0.01 {
		t.Errorf("margin = %v, want override 0.01", merged.SchemeMargin)
	}

	defaults := domain.DefaultParameters()
	if merged.MaxRepaymentYear != defaults.MaxRepaymentYear {
		t.Errorf("max year = %d, want default %d", merged.MaxRepaymentYear, defaults.MaxRepaymentYear)
	}
	if !merged.AdminFee.Equal(defaults.AdminFee) {
		t.Errorf("admin fee = %s, want default %s", merged.AdminFee, defaults.AdminFee)
	}
}

func TestGetRunNotFound(t *testing.T) {
	svc := testService(newFakeRepo())

	if _, err := svc.GetRun(context.Background(), "SIM-404"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("got %v, want ErrRunNotFound", err)
	}
}

func TestGetRunReturnsSaved(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(repo)

	run := &domain.SimulationRun{
		RunID:  "SIM-1",
		Params: domain.DefaultParameters(),
		Status: domain.RunStatusCompleted,
	}
	if err := repo.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := svc.GetRun(context.Background(), "SIM-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != domain.RunStatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
}
