package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// YearStatistics 单个目标清偿年份的聚合统计
type YearStatistics struct {
	// 目标清偿年份
	TargetYear int `json:"target_year"`
	// 参与归约的场景数
	Scenarios int `json:"scenarios"`
	// 因数值退化被剔除的场景数
	Excluded int `json:"excluded"`
	// 净损益分位数
	P5  float64 `json:"p5"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	// 净损益最接近中位数的场景种子，用于按需重放路径
	MedianSeed int64 `json:"median_seed"`
	// 按中位数净损益降序的名次，从 1 起计
	Rank int `json:"rank"`
}

// BatchResult 一次完整批次的输出，年份已按中位数净损益降序排列
type BatchResult struct {
	Years []YearStatistics `json:"years"`
	// 批次是否被外部取消，取消时 Years 仅包含已完成归约的年份
	Aborted bool `json:"aborted"`
}

// MonteCarloOrchestrator 蒙特卡洛编排器
// 每个目标年份是一个独立任务，任务间无共享可变状态
// 聚合结果与调度顺序及 worker 数量无关：种子只由 (年份, 序号) 决定
type MonteCarloOrchestrator struct {
	params  Parameters
	runner  *ScenarioRunner
	workers int
	logger  *slog.Logger
}

// NewMonteCarloOrchestrator 创建编排器
// workers 非正时退化为单 worker
func NewMonteCarloOrchestrator(params Parameters, history MarketHistory, workers int, logger *slog.Logger) (*MonteCarloOrchestrator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := history.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	return &MonteCarloOrchestrator{
		params:  params,
		runner:  NewScenarioRunner(params, history),
		workers: workers,
		logger:  logger,
	}, nil
}

// Run 对每个候选年份运行全部场景并归约
// 单场景的数值退化只剔除该场景；取消时返回已完成年份的部分结果
func (o *MonteCarloOrchestrator) Run(ctx context.Context) (*BatchResult, error) {
	perYear := make([]*YearStatistics, o.params.MaxRepaymentYear+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	// 年份 0 表示完成当月立即清偿，也是合法的候选策略
	for year := 0; year <= o.params.MaxRepaymentYear; year++ {
		year := year
		g.Go(func() error {
			st, err := o.runYear(gctx, year)
			if err != nil {
				return err
			}
			perYear[year] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	result := &BatchResult{Aborted: ctx.Err() != nil}
	for _, st := range perYear {
		if st != nil {
			result.Years = append(result.Years, *st)
		}
	}
	sort.Slice(result.Years, func(i, j int) bool {
		return result.Years[i].P50 > result.Years[j].P50
	})
	for i := range result.Years {
		result.Years[i].Rank = i + 1
	}
	return result, nil
}

// runYear 运行一个目标年份的全部场景并计算分位数
func (o *MonteCarloOrchestrator) runYear(ctx context.Context, year int) (*YearStatistics, error) {
	pnls := make([]float64, 0, o.params.NumScenariosPerYear)
	seeds := make([]int64, 0, o.params.NumScenariosPerYear)
	excluded := 0

	for i := 0; i < o.params.NumScenariosPerYear; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := o.runner.Run(year, i)
		if err != nil {
			// 数值退化只剔除当前场景，其余错误终止整个批次
			if !errors.Is(err, ErrNumericDegeneracy) {
				return nil, err
			}
			excluded++
			o.logger.Warn("scenario excluded",
				"year", year, "index", i, "seed", ScenarioSeed(year, i), "error", err)
			continue
		}
		pnls = append(pnls, res.NetPnL)
		seeds = append(seeds, res.Seed)
	}

	if len(pnls) == 0 {
		return nil, fmt.Errorf("year %d: all %d scenarios excluded: %w",
			year, o.params.NumScenariosPerYear, ErrNumericDegeneracy)
	}

	return reduceYear(year, pnls, seeds, excluded)
}

// reduceYear 将一个年份的场景净损益归约为分位数统计
// 最近秩分位数对任意非空样本均有定义，小样本或剔除后收缩的年份同样可归约
// 归约只依赖样本的值集合，与结果收集顺序无关
func reduceYear(year int, pnls []float64, seeds []int64, excluded int) (*YearStatistics, error) {
	p5, err := stats.PercentileNearestRank(pnls, 5)
	if err != nil {
		return nil, fmt.Errorf("year %d percentile: %w", year, err)
	}
	p50, err := stats.Median(pnls)
	if err != nil {
		return nil, fmt.Errorf("year %d median: %w", year, err)
	}
	p95, err := stats.PercentileNearestRank(pnls, 95)
	if err != nil {
		return nil, fmt.Errorf("year %d percentile: %w", year, err)
	}

	return &YearStatistics{
		TargetYear: year,
		Scenarios:  len(pnls),
		Excluded:   excluded,
		P5:         p5,
		P50:        p50,
		P95:        p95,
		MedianSeed: closestSeed(pnls, seeds, p50),
	}, nil
}

// closestSeed 返回净损益最接近中位数的场景种子
func closestSeed(pnls []float64, seeds []int64, median float64) int64 {
	best := seeds[0]
	bestDist := math.Abs(pnls[0] - median)
	for i := 1; i < len(pnls); i++ {
		if d := math.Abs(pnls[i] - median); d < bestDist {
			bestDist = d
			best = seeds[i]
		}
	}
	return best
}
