package domain

import (
	"math/rand"
)

// ScenarioSeed 场景种子的确定性派生规则
// 种子只依赖 (目标年份, 场景序号)，与调度顺序无关
func ScenarioSeed(targetYear, index int) int64 {
	return int64(targetYear)*10000 + int64(index)
}

// ScenarioResult 单场景的终值快照，归约后仅保留该结构
type ScenarioResult struct {
	// 目标清偿年份
	TargetYear int `json:"target_year"`
	// 场景序号
	Index int `json:"index"`
	// 场景种子，用于按需重放完整路径
	Seed int64 `json:"seed"`
	// 终值净损益
	NetPnL float64 `json:"net_pnl"`
	// 累计现金流出（费用、利息与按揭月供）
	TotalOutflow float64 `json:"total_outflow"`
	// 时域末的房产价值
	FinalPropertyValue float64 `json:"final_property_value"`
	// 股权贷款累计还款额
	TotalEquityRepaid float64 `json:"total_equity_repaid"`
	// 全额清偿发生的月份
	RepaymentMonth int `json:"repayment_month"`
	// 是否在目标期限内完成全额清偿
	OnSchedule bool `json:"on_schedule"`
}

// MonthlyRecord 重放模式下的单月完整记录，仅供可视化使用
type MonthlyRecord struct {
	Month              int       `json:"month"`
	PropertyValue      float64   `json:"property_value"`
	CPIIndex           float64   `json:"cpi_index"`
	MortgageRate       float64   `json:"mortgage_rate"`
	LoanPhase          LoanPhase `json:"loan_phase"`
	LoanRate           float64   `json:"loan_rate"`
	EquityShare        float64   `json:"equity_share"`
	LoanValue          float64   `json:"loan_value"`
	MortgageBalance    float64   `json:"mortgage_balance"`
	MonthlyPayment     float64   `json:"monthly_payment"`
	CumulativeFees     float64   `json:"cumulative_fees"`
	CumulativeInterest float64   `json:"cumulative_interest"`
}

// ScenarioRunner 单场景执行器
// 按 调息 → 还款事件 → 计提 → 按揭推进 的固定顺序逐月驱动两个引擎
type ScenarioRunner struct {
	params   Parameters
	paths    *PathGenerator
	loan     *EquityLoanEngine
	mortgage *MortgageEngine
}

// NewScenarioRunner 创建场景执行器
// history 应当已按回看窗口过滤并通过 Validate
func NewScenarioRunner(params Parameters, history MarketHistory) *ScenarioRunner {
	return &ScenarioRunner{
		params:   params,
		paths:    NewPathGenerator(history, params.PathConfig()),
		loan:     NewEquityLoanEngine(params.LoanConfig()),
		mortgage: NewMortgageEngine(params.MortgageConfig()),
	}
}

// Run 执行一个场景并归约为终值结果，完整时序在返回前丢弃
func (r *ScenarioRunner) Run(targetYear, index int) (*ScenarioResult, error) {
	result, _, err := r.run(targetYear, ScenarioSeed(targetYear, index), false)
	if err != nil {
		return nil, err
	}
	result.Index = index
	return result, nil
}

// Replay 按种子重放一个场景，返回终值结果与逐月完整记录
// 同一种子的重放与原始执行逐位一致
func (r *ScenarioRunner) Replay(targetYear int, seed int64) (*ScenarioResult, []MonthlyRecord, error) {
	return r.run(targetYear, seed, true)
}

func (r *ScenarioRunner) run(targetYear int, seed int64, trace bool) (*ScenarioResult, []MonthlyRecord, error) {
	horizon := r.params.HorizonMonths(targetYear)
	forcedMonth := r.params.ForcedRepaymentMonth(targetYear)

	path, err := r.paths.Generate(seed, horizon)
	if err != nil {
		return nil, nil, err
	}

	loanState := r.loan.NewState()
	mortgageState, err := r.mortgage.NewState(path.MortgageRate[0])
	if err != nil {
		return nil, nil, err
	}
	eventsRng := rand.New(rand.NewSource(seed + seedOffsetEvents))

	var records []MonthlyRecord
	if trace {
		records = make([]MonthlyRecord, 0, horizon+1)
	}

	// 第 0 个月：目标年份为 0 时在完成当月立即全额清偿，否则只计提首月管理费
	if forcedMonth == 0 {
		amount := r.loan.FullRepay(loanState, 0, path.PropertyValue[0])
		r.mortgage.AddToBalance(mortgageState, amount)
	}
	r.loan.AccrueCharges(loanState, path.PropertyValue[0])
	if trace {
		records = append(records, snapshot(0, path, loanState, mortgageState, r.loan))
	}

	for t := 1; t <= horizon; t++ {
		r.loan.AdvanceRate(loanState, t, path.AnnualCPIRate[t])

		// 还款事件：到达强制清偿月份时全额清偿，否则按配置概率触发部分还款
		// 还款额并入按揭余额，由按揭引擎在后续月份摊销
		if loanState.Phase != PhaseRepaid {
			if t >= forcedMonth {
				amount := r.loan.FullRepay(loanState, t, path.PropertyValue[t])
				r.mortgage.AddToBalance(mortgageState, amount)
			} else if r.params.PartialRepaymentProbability > 0 &&
				eventsRng.Float64() < r.params.PartialRepaymentProbability {
				amount := r.loan.PartialRepay(loanState, t, path.PropertyValue[t], r.params.PartialRepaymentFraction)
				r.mortgage.AddToBalance(mortgageState, amount)
			}
		}

		r.loan.AccrueCharges(loanState, path.PropertyValue[t])

		if err := r.mortgage.Step(mortgageState, t, path.MortgageRate[t-1]); err != nil {
			return nil, nil, err
		}

		if trace {
			records = append(records, snapshot(t, path, loanState, mortgageState, r.loan))
		}
	}

	outflow := loanState.CumulativeFees + loanState.CumulativeInterest + mortgageState.TotalPayments
	result := &ScenarioResult{
		TargetYear:         targetYear,
		Seed:               seed,
		NetPnL:             path.PropertyValue[horizon] - mortgageState.Balance - outflow,
		TotalOutflow:       outflow,
		FinalPropertyValue: path.PropertyValue[horizon],
		TotalEquityRepaid:  loanState.TotalRepaid,
		RepaymentMonth:     loanState.RepaymentMonth,
		OnSchedule:         loanState.Phase == PhaseRepaid && loanState.RepaymentMonth <= forcedMonth,
	}
	return result, records, nil
}

func snapshot(t int, path *EconomicPath, ls *LoanState, ms *MortgageState, loan *EquityLoanEngine) MonthlyRecord {
	return MonthlyRecord{
		Month:              t,
		PropertyValue:      path.PropertyValue[t],
		CPIIndex:           path.CPIIndex[t],
		MortgageRate:       path.MortgageRate[t],
		LoanPhase:          ls.Phase,
		LoanRate:           ls.InterestRate,
		EquityShare:        ls.EquityShare,
		LoanValue:          loan.LoanValue(ls, path.PropertyValue[t]),
		MortgageBalance:    ms.Balance,
		MonthlyPayment:     ms.MonthlyPayment,
		CumulativeFees:     ls.CumulativeFees,
		CumulativeInterest: ls.CumulativeInterest,
	}
}
