package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 方案常量：当前 Help-to-Buy 规则下不可配置的部分
const (
	// 强制全额清偿的最晚月份（25 年）
	maxForcedRepaymentMonth = 300
	// 部分还款最小幅度：当前房产价值的 10%
	minPartialShareOfProperty = 0.10
)

// Parameters 一次模拟批次的全部输入参数
// 金额字段使用 decimal 承接外部输入，进入数值计算前统一转为 float64
type Parameters struct {
	// 每个目标清偿年份的场景数量
	NumScenariosPerYear int
	// 候选目标清偿年份上限（1 至 30）
	MaxRepaymentYear int
	// 历史回看窗口（年），0 表示使用全部历史
	LookbackYears int

	// 初始房产价值
	InitialPropertyValue decimal.Decimal
	// 股权贷款初始占比（如 0.20）
	InitialLoanShare float64
	// 按揭总期限（年）
	MortgageTermYears int
	// 初始按揭年利率
	InitialMortgageRate float64

	// 方案利差（RPI+1% 方案为 0.01，CPI+2% 方案为 0.02）
	SchemeMargin float64
	// 免息期月数
	InterestFreeMonths int
	// 免息期月度管理费
	ManagementFee decimal.Decimal
	// 每次还款的固定行政费
	AdminFee decimal.Decimal

	// 每月触发随机部分还款事件的概率，0 表示关闭
	PartialRepaymentProbability float64
	// 部分还款事件偿还当前贷款余额的比例
	PartialRepaymentFraction float64
}

// DefaultParameters 方案默认参数
func DefaultParameters() Parameters {
	return Parameters{
		NumScenariosPerYear:         1000,
		MaxRepaymentYear:            25,
		LookbackYears:               0,
		InitialPropertyValue:        decimal.NewFromInt(250000),
		InitialLoanShare:            0.20,
		MortgageTermYears:           35,
		InitialMortgageRate:         0.045,
		SchemeMargin:                0.02,
		InterestFreeMonths:          60,
		ManagementFee:               decimal.NewFromInt(1),
		AdminFee:                    decimal.NewFromInt(200),
		PartialRepaymentProbability: 0,
		PartialRepaymentFraction:    0.5,
	}
}

// Validate 校验参数范围，任何一项越界都在批次开始前报错
func (p Parameters) Validate() error {
	if p.NumScenariosPerYear <= 0 {
		return fmt.Errorf("num_scenarios_per_year must be positive, got %d", p.NumScenariosPerYear)
	}
	if p.MaxRepaymentYear < 1 || p.MaxRepaymentYear > 30 {
		return fmt.Errorf("max_repayment_year must be in [1,30], got %d", p.MaxRepaymentYear)
	}
	if p.LookbackYears < 0 || p.LookbackYears > 100 {
		return fmt.Errorf("lookback_years must be in [0,100], got %d", p.LookbackYears)
	}
	if !p.InitialPropertyValue.IsPositive() {
		return fmt.Errorf("initial_property_value must be positive, got %s", p.InitialPropertyValue)
	}
	if p.InitialLoanShare <= 0 || p.InitialLoanShare >= 1 {
		return fmt.Errorf("initial_loan_share must be in (0,1), got %f", p.InitialLoanShare)
	}
	if p.MortgageTermYears <= 0 {
		return fmt.Errorf("mortgage_term_years must be positive, got %d", p.MortgageTermYears)
	}
	if p.InitialMortgageRate <= 0 {
		return fmt.Errorf("initial_mortgage_rate must be positive, got %f", p.InitialMortgageRate)
	}
	if p.SchemeMargin < 0 {
		return fmt.Errorf("scheme_margin must be non-negative, got %f", p.SchemeMargin)
	}
	if p.InterestFreeMonths <= 0 {
		return fmt.Errorf("interest_free_months must be positive, got %d", p.InterestFreeMonths)
	}
	if p.ManagementFee.IsNegative() {
		return fmt.Errorf("management_fee must be non-negative, got %s", p.ManagementFee)
	}
	if p.AdminFee.IsNegative() {
		return fmt.Errorf("admin_fee must be non-negative, got %s", p.AdminFee)
	}
	if p.PartialRepaymentProbability < 0 || p.PartialRepaymentProbability > 1 {
		return fmt.Errorf("partial_repayment_probability must be in [0,1], got %f", p.PartialRepaymentProbability)
	}
	if p.PartialRepaymentFraction < 0 || p.PartialRepaymentFraction > 1 {
		return fmt.Errorf("partial_repayment_fraction must be in [0,1], got %f", p.PartialRepaymentFraction)
	}
	return nil
}

// PathConfig 推导经济路径生成参数
func (p Parameters) PathConfig() PathConfig {
	return PathConfig{
		InitialPropertyValue:  p.InitialPropertyValue.InexactFloat64(),
		InitialCPIIndex:       100,
		InitialMortgageRate:   p.InitialMortgageRate,
		PropertyFloorFraction: 0.30,
		MortgageRateFloor:     0.005,
		RateLockMonths:        60,
	}
}

// LoanConfig 推导股权贷款方案参数
func (p Parameters) LoanConfig() LoanConfig {
	return LoanConfig{
		InitialEquityShare:        p.InitialLoanShare,
		InterestFreeMonths:        p.InterestFreeMonths,
		InitialInterestRate:       0.0175,
		SchemeMargin:              p.SchemeMargin,
		MonthlyManagementFee:      p.ManagementFee.InexactFloat64(),
		AdminFee:                  p.AdminFee.InexactFloat64(),
		MinPartialShareOfProperty: minPartialShareOfProperty,
	}
}

// MortgageConfig 推导按揭参数
// 按揭本金为房产价值扣除股权贷款与购房者首付之外的部分，这里按
// 价值 *(1-股权占比) 的 90% 估算（10% 现金首付）
func (p Parameters) MortgageConfig() MortgageConfig {
	value := p.InitialPropertyValue.InexactFloat64()
	return MortgageConfig{
		Principal:       value * (1 - p.InitialLoanShare) * 0.90,
		TermMonths:      p.MortgageTermYears * 12,
		RepricingMonths: 60,
	}
}

// HorizonMonths 某个目标清偿年份对应的模拟时域
// 至少覆盖按揭全期，保证终值结算时按揭轨迹完整
func (p Parameters) HorizonMonths(targetYear int) int {
	years := p.MortgageTermYears
	if targetYear+1 > years {
		years = targetYear + 1
	}
	return years * 12
}

// ForcedRepaymentMonth 某个目标清偿年份对应的强制全额清偿月份
// 不得晚于方案规定的 25 年上限
func (p Parameters) ForcedRepaymentMonth(targetYear int) int {
	month := targetYear * 12
	if month > maxForcedRepaymentMonth {
		month = maxForcedRepaymentMonth
	}
	return month
}
