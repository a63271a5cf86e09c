package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/equitysim/internal/simulation/domain"
	"github.com/wyfcoding/equitysim/pkg/db"
	"github.com/wyfcoding/equitysim/pkg/logger"
	"gorm.io/gorm"
)

// SimulationRunModel 模拟批次数据库模型
type SimulationRunModel struct {
	gorm.Model
	// 批次标识
	RunID string `gorm:"column:run_id;type:varchar(64);uniqueIndex;not null" json:"run_id"`
	// 批次状态
	Status string `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 失败或中止原因
	Message string `gorm:"column:message;type:varchar(500)" json:"message"`
	// 每个目标年份的场景数
	ScenariosPerYear int `gorm:"column:scenarios_per_year;not null" json:"scenarios_per_year"`
	// 候选目标年份上限
	MaxRepaymentYear int `gorm:"column:max_repayment_year;not null" json:"max_repayment_year"`
	// 历史回看窗口（年）
	LookbackYears int `gorm:"column:lookback_years;not null" json:"lookback_years"`
	// 初始房产价值
	InitialPropertyValue string `gorm:"column:initial_property_value;type:decimal(20,2);not null" json:"initial_property_value"`
	// 股权贷款初始占比
	InitialLoanShare float64 `gorm:"column:initial_loan_share;not null" json:"initial_loan_share"`
	// 按揭总期限（年）
	MortgageTermYears int `gorm:"column:mortgage_term_years;not null" json:"mortgage_term_years"`
	// 初始按揭年利率
	InitialMortgageRate float64 `gorm:"column:initial_mortgage_rate;not null" json:"initial_mortgage_rate"`
	// 方案利差
	SchemeMargin float64 `gorm:"column:scheme_margin;not null" json:"scheme_margin"`
	// 免息期月数
	InterestFreeMonths int `gorm:"column:interest_free_months;not null" json:"interest_free_months"`
	// 免息期月度管理费
	ManagementFee string `gorm:"column:management_fee;type:decimal(20,2);not null" json:"management_fee"`
	// 行政费
	AdminFee string `gorm:"column:admin_fee;type:decimal(20,2);not null" json:"admin_fee"`
	// 部分还款事件概率
	PartialRepaymentProbability float64 `gorm:"column:partial_repayment_probability;not null" json:"partial_repayment_probability"`
	// 部分还款比例
	PartialRepaymentFraction float64 `gorm:"column:partial_repayment_fraction;not null" json:"partial_repayment_fraction"`
	// 提交时间
	SubmittedAt time.Time `gorm:"column:submitted_at;not null" json:"submitted_at"`
	// 完成时间
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at"`
}

// TableName 指定表名
func (SimulationRunModel) TableName() string {
	return "simulation_runs"
}

// YearStatisticModel 年度聚合统计数据库模型
type YearStatisticModel struct {
	gorm.Model
	// 所属批次
	RunID string `gorm:"column:run_id;type:varchar(64);index;not null" json:"run_id"`
	// 目标清偿年份
	TargetYear int `gorm:"column:target_year;not null" json:"target_year"`
	// 参与归约的场景数
	Scenarios int `gorm:"column:scenarios;not null" json:"scenarios"`
	// 被剔除的场景数
	Excluded int `gorm:"column:excluded;not null" json:"excluded"`
	// 净损益分位数
	P5  string `gorm:"column:p5;type:decimal(20,2);not null" json:"p5"`
	P50 string `gorm:"column:p50;type:decimal(20,2);not null" json:"p50"`
	P95 string `gorm:"column:p95;type:decimal(20,2);not null" json:"p95"`
	// 中位场景种子
	MedianSeed int64 `gorm:"column:median_seed;not null" json:"median_seed"`
	// 按中位数净损益的名次
	Rank int `gorm:"column:ranking;not null" json:"rank"`
}

// TableName 指定表名
func (YearStatisticModel) TableName() string {
	return "simulation_year_statistics"
}

// SimulationRepositoryImpl 模拟批次仓储实现
type SimulationRepositoryImpl struct {
	db *db.DB
}

// NewSimulationRepository 创建模拟批次仓储
func NewSimulationRepository(database *db.DB) domain.SimulationRepository {
	return &SimulationRepositoryImpl{
		db: database,
	}
}

// SaveRun 保存或更新批次（按 run_id 幂等）
func (sr *SimulationRepositoryImpl) SaveRun(ctx context.Context, run *domain.SimulationRun) error {
	model := runToModel(run)

	var existing SimulationRunModel
	err := sr.db.WithContext(ctx).Where("run_id = ?", run.RunID).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		err = sr.db.WithContext(ctx).Create(model).Error
	case err == nil:
		err = sr.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"status":      model.Status,
			"message":     model.Message,
			"finished_at": model.FinishedAt,
		}).Error
	}
	if err != nil {
		logger.Error(ctx, "Failed to save simulation run",
			"run_id", run.RunID,
			"error", err,
		)
		return fmt.Errorf("failed to save simulation run: %w", err)
	}
	return nil
}

// FindRunByID 按批次标识查询
func (sr *SimulationRepositoryImpl) FindRunByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	var model SimulationRunModel

	if err := sr.db.WithContext(ctx).Where("run_id = ?", runID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.Error(ctx, "Failed to find simulation run",
			"run_id", runID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to find simulation run: %w", err)
	}

	return modelToRun(&model), nil
}

// SaveStatistics 批量保存年度统计
func (sr *SimulationRepositoryImpl) SaveStatistics(ctx context.Context, runID string, years []domain.YearStatistics) error {
	models := make([]YearStatisticModel, 0, len(years))
	for _, y := range years {
		models = append(models, YearStatisticModel{
			RunID:      runID,
			TargetYear: y.TargetYear,
			Scenarios:  y.Scenarios,
			Excluded:   y.Excluded,
			P5:         decimal.NewFromFloat(y.P5).StringFixed(2),
			P50:        decimal.NewFromFloat(y.P50).StringFixed(2),
			P95:        decimal.NewFromFloat(y.P95).StringFixed(2),
			MedianSeed: y.MedianSeed,
			Rank:       y.Rank,
		})
	}
	if len(models) == 0 {
		return nil
	}

	if err := sr.db.BatchInsert(ctx, models, 100); err != nil {
		logger.Error(ctx, "Failed to save year statistics",
			"run_id", runID,
			"years", len(models),
			"error", err,
		)
		return fmt.Errorf("failed to save year statistics: %w", err)
	}
	return nil
}

// FindStatisticsByRunID 查询一个批次的全部年度统计，按名次升序
func (sr *SimulationRepositoryImpl) FindStatisticsByRunID(ctx context.Context, runID string) ([]domain.YearStatistics, error) {
	var models []YearStatisticModel

	if err := sr.db.WithContext(ctx).Where("run_id = ?", runID).
		Order("ranking ASC").
		Find(&models).Error; err != nil {
		logger.Error(ctx, "Failed to find year statistics",
			"run_id", runID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to find year statistics: %w", err)
	}

	years := make([]domain.YearStatistics, 0, len(models))
	for _, m := range models {
		years = append(years, domain.YearStatistics{
			TargetYear: m.TargetYear,
			Scenarios:  m.Scenarios,
			Excluded:   m.Excluded,
			P5:         mustFloat(m.P5),
			P50:        mustFloat(m.P50),
			P95:        mustFloat(m.P95),
			MedianSeed: m.MedianSeed,
			Rank:       m.Rank,
		})
	}
	return years, nil
}

func runToModel(run *domain.SimulationRun) *SimulationRunModel {
	model := &SimulationRunModel{
		RunID:                       run.RunID,
		Status:                      run.Status,
		Message:                     run.Message,
		ScenariosPerYear:            run.Params.NumScenariosPerYear,
		MaxRepaymentYear:            run.Params.MaxRepaymentYear,
		LookbackYears:               run.Params.LookbackYears,
		InitialPropertyValue:        run.Params.InitialPropertyValue.StringFixed(2),
		InitialLoanShare:            run.Params.InitialLoanShare,
		MortgageTermYears:           run.Params.MortgageTermYears,
		InitialMortgageRate:         run.Params.InitialMortgageRate,
		SchemeMargin:                run.Params.SchemeMargin,
		InterestFreeMonths:          run.Params.InterestFreeMonths,
		ManagementFee:               run.Params.ManagementFee.StringFixed(2),
		AdminFee:                    run.Params.AdminFee.StringFixed(2),
		PartialRepaymentProbability: run.Params.PartialRepaymentProbability,
		PartialRepaymentFraction:    run.Params.PartialRepaymentFraction,
		SubmittedAt:                 run.SubmittedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		model.FinishedAt = &finished
	}
	return model
}

func modelToRun(m *SimulationRunModel) *domain.SimulationRun {
	run := &domain.SimulationRun{
		RunID:   m.RunID,
		Status:  m.Status,
		Message: m.Message,
		Params: domain.Parameters{
			NumScenariosPerYear:         m.ScenariosPerYear,
			MaxRepaymentYear:            m.MaxRepaymentYear,
			LookbackYears:               m.LookbackYears,
			InitialPropertyValue:        mustDecimal(m.InitialPropertyValue),
			InitialLoanShare:            m.InitialLoanShare,
			MortgageTermYears:           m.MortgageTermYears,
			InitialMortgageRate:         m.InitialMortgageRate,
			SchemeMargin:                m.SchemeMargin,
			InterestFreeMonths:          m.InterestFreeMonths,
			ManagementFee:               mustDecimal(m.ManagementFee),
			AdminFee:                    mustDecimal(m.AdminFee),
			PartialRepaymentProbability: m.PartialRepaymentProbability,
			PartialRepaymentFraction:    m.PartialRepaymentFraction,
		},
		SubmittedAt: m.SubmittedAt,
	}
	if m.FinishedAt != nil {
		run.FinishedAt = *m.FinishedAt
	}
	return run
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func mustFloat(s string) float64 {
	return mustDecimal(s).InexactFloat64()
}
