package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/equitysim/internal/simulation/domain"
	"github.com/wyfcoding/equitysim/pkg/cache"
	"github.com/wyfcoding/equitysim/pkg/metrics"
)

// ErrRunNotFound 批次不存在
var ErrRunNotFound = errors.New("simulation run not found")

// RunSimulationCommand 提交模拟批次命令
// 零值字段回落到服务配置的默认参数
type RunSimulationCommand struct {
	NumScenariosPerYear         int
	MaxRepaymentYear            int
	LookbackYears               int
	InitialPropertyValue        decimal.Decimal
	InitialLoanShare            float64
	InitialMortgageRate         float64
	SchemeMargin                float64
	PartialRepaymentProbability float64
	PartialRepaymentFraction    float64
}

// SimulationApplicationService 模拟应用服务
// 批次执行是异步的：提交即返回 run_id，进度通过状态查询
type SimulationApplicationService struct {
	defaults  domain.Parameters
	history   domain.MarketHistory
	workers   int
	repo      domain.SimulationRepository
	publisher domain.EventPublisher
	cache     *cache.RedisCache
	resultTTL time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSimulationApplicationService 创建模拟应用服务
func NewSimulationApplicationService(
	defaults domain.Parameters,
	history domain.MarketHistory,
	workers int,
	repo domain.SimulationRepository,
	publisher domain.EventPublisher,
	redisCache *cache.RedisCache,
	resultTTL time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SimulationApplicationService {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &SimulationApplicationService{
		defaults:  defaults,
		history:   history,
		workers:   workers,
		repo:      repo,
		publisher: publisher,
		cache:     redisCache,
		resultTTL: resultTTL,
		metrics:   m,
		logger:    logger,
	}
}

// RunSimulation 提交一个模拟批次并异步执行
func (s *SimulationApplicationService) RunSimulation(ctx context.Context, cmd RunSimulationCommand) (string, error) {
	params := s.buildParameters(cmd)
	if err := params.Validate(); err != nil {
		return "", err
	}

	// 回看窗口以提交时刻为基准，重放时沿用同一基准
	submittedAt := time.Now()
	history := s.history.Lookback(params.LookbackYears, submittedAt)
	if err := history.Validate(); err != nil {
		return "", err
	}

	runID := fmt.Sprintf("SIM-%d", submittedAt.UnixNano())
	run := &domain.SimulationRun{
		RunID:       runID,
		Params:      params,
		Status:      domain.RunStatusPending,
		SubmittedAt: submittedAt,
	}
	if err := s.repo.SaveRun(ctx, run); err != nil {
		return "", err
	}

	s.metrics.RunsTotal.Inc()
	s.logger.Info("simulation run submitted",
		"run_id", runID,
		"scenarios_per_year", params.NumScenariosPerYear,
		"max_repayment_year", params.MaxRepaymentYear,
		"workers", s.workers,
	)

	// 异步执行，生命周期脱离请求 context
	go s.execute(run, history)

	return runID, nil
}

// execute 运行批次并持久化聚合结果
func (s *SimulationApplicationService) execute(run *domain.SimulationRun, history domain.MarketHistory) {
	ctx := context.Background()
	start := time.Now()

	run.Status = domain.RunStatusRunning
	if err := s.repo.SaveRun(ctx, run); err != nil {
		s.logger.Error("failed to mark run as running", "run_id", run.RunID, "error", err)
	}
	s.metrics.RunsActive.Inc()
	defer s.metrics.RunsActive.Dec()

	orchestrator, err := domain.NewMonteCarloOrchestrator(run.Params, history, s.workers, s.logger)
	if err != nil {
		s.fail(ctx, run, err)
		return
	}

	result, err := orchestrator.Run(ctx)
	if err != nil {
		s.fail(ctx, run, err)
		return
	}

	for _, y := range result.Years {
		s.metrics.ScenariosTotal.Add(float64(y.Scenarios))
		s.metrics.ScenariosExcluded.Add(float64(y.Excluded))
	}
	s.metrics.RunDuration.Observe(time.Since(start).Seconds())

	if err := s.repo.SaveStatistics(ctx, run.RunID, result.Years); err != nil {
		s.fail(ctx, run, err)
		return
	}

	run.Status = domain.RunStatusCompleted
	if result.Aborted {
		run.Status = domain.RunStatusAborted
		run.Message = "batch cancelled, partial results only"
	}
	run.FinishedAt = time.Now()
	if err := s.repo.SaveRun(ctx, run); err != nil {
		s.logger.Error("failed to finalize run", "run_id", run.RunID, "error", err)
	}

	if err := s.cache.SetJSON(ctx, statisticsCacheKey(run.RunID), result.Years, s.resultTTL); err != nil {
		s.logger.Warn("failed to cache run statistics", "run_id", run.RunID, "error", err)
	}

	event := &domain.SimulationCompletedEvent{
		RunID:      run.RunID,
		Status:     run.Status,
		Years:      len(result.Years),
		FinishedAt: run.FinishedAt,
	}
	if len(result.Years) > 0 {
		event.BestYear = result.Years[0].TargetYear
		event.BestP50 = result.Years[0].P50
	}
	if err := s.publisher.PublishSimulationCompleted(ctx, event); err != nil {
		s.logger.Error("failed to publish completion event", "run_id", run.RunID, "error", err)
	}

	s.logger.Info("simulation run finished",
		"run_id", run.RunID,
		"status", run.Status,
		"years", len(result.Years),
		"duration", time.Since(start),
	)
}

// fail 将批次标记为失败
func (s *SimulationApplicationService) fail(ctx context.Context, run *domain.SimulationRun, cause error) {
	s.metrics.RunsFailed.Inc()
	s.logger.Error("simulation run failed", "run_id", run.RunID, "error", cause)

	run.Status = domain.RunStatusFailed
	run.Message = cause.Error()
	run.FinishedAt = time.Now()
	if err := s.repo.SaveRun(ctx, run); err != nil {
		s.logger.Error("failed to mark run as failed", "run_id", run.RunID, "error", err)
	}
}

// GetRun 查询批次状态
func (s *SimulationApplicationService) GetRun(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	run, err := s.repo.FindRunByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// GetStatistics 查询批次的年度统计，优先读缓存
func (s *SimulationApplicationService) GetStatistics(ctx context.Context, runID string) ([]domain.YearStatistics, error) {
	var cached []domain.YearStatistics
	if hit, err := s.cache.GetJSON(ctx, statisticsCacheKey(runID), &cached); err == nil && hit {
		return cached, nil
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.RunStatusCompleted && run.Status != domain.RunStatusAborted {
		return nil, fmt.Errorf("run %s is %s, statistics not available", runID, run.Status)
	}

	years, err := s.repo.FindStatisticsByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, statisticsCacheKey(runID), years, s.resultTTL); err != nil {
		s.logger.Warn("failed to cache run statistics", "run_id", runID, "error", err)
	}
	return years, nil
}

// ReplayPath 按 (年份, 种子) 重放一个场景的完整轨迹，用于图表渲染
// 重放使用该批次的原始参数，保证与批次内的场景逐位一致
func (s *SimulationApplicationService) ReplayPath(ctx context.Context, runID string, targetYear int, seed int64) (*domain.ScenarioResult, []domain.MonthlyRecord, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if targetYear < 0 || targetYear > run.Params.MaxRepaymentYear {
		return nil, nil, fmt.Errorf("target year %d outside [0,%d]", targetYear, run.Params.MaxRepaymentYear)
	}

	history := s.history.Lookback(run.Params.LookbackYears, run.SubmittedAt)
	if err := history.Validate(); err != nil {
		return nil, nil, err
	}

	runner := domain.NewScenarioRunner(run.Params, history)
	return runner.Replay(targetYear, seed)
}

// buildParameters 合并请求覆盖项与服务默认参数
func (s *SimulationApplicationService) buildParameters(cmd RunSimulationCommand) domain.Parameters {
	params := s.defaults
	if cmd.NumScenariosPerYear > 0 {
		params.NumScenariosPerYear = cmd.NumScenariosPerYear
	}
	if cmd.MaxRepaymentYear > 0 {
		params.MaxRepaymentYear = cmd.MaxRepaymentYear
	}
	if cmd.LookbackYears > 0 {
		params.LookbackYears = cmd.LookbackYears
	}
	if cmd.InitialPropertyValue.IsPositive() {
		params.InitialPropertyValue = cmd.InitialPropertyValue
	}
	if cmd.InitialLoanShare > 0 {
		params.InitialLoanShare = cmd.InitialLoanShare
	}
	if cmd.InitialMortgageRate > 0 {
		params.InitialMortgageRate = cmd.InitialMortgageRate
	}
	if cmd.SchemeMargin > 0 {
		params.SchemeMargin = cmd.SchemeMargin
	}
	if cmd.PartialRepaymentProbability > 0 {
		params.PartialRepaymentProbability = cmd.PartialRepaymentProbability
	}
	if cmd.PartialRepaymentFraction > 0 {
		params.PartialRepaymentFraction = cmd.PartialRepaymentFraction
	}
	return params
}

func statisticsCacheKey(runID string) string {
	return "equitysim:statistics:" + runID
}
