package domain

import (
	"fmt"
)

// 场景种子到三个子过程的固定偏移
// 每个随机过程使用独立的子流，保证路径之间互不干扰且可单独复现
const (
	seedOffsetCPI      = 0
	seedOffsetMortgage = 1000
	seedOffsetProperty = 2000
	seedOffsetEvents   = 3000
)

// 日历约定：月份 0 对应贷款完成当月（一月），四月为年内第 3 个月
const aprilMonthIndex = 3

// PathConfig 经济路径生成参数
type PathConfig struct {
	// 初始房产价值
	InitialPropertyValue float64
	// 初始 CPI 指数
	InitialCPIIndex float64
	// 初始按揭年利率
	InitialMortgageRate float64
	// 房价下限系数：value[t] >= floor * 初始价值，模拟崩盘深度的结构性下界
	PropertyFloorFraction float64
	// 按揭利率下限，利率永不非正
	MortgageRateFloor float64
	// 固定利率锁定期（月），锁定期内生效利率不变
	RateLockMonths int
}

// EconomicPath 单个场景的经济轨迹，三组对齐序列，长度均为 horizonMonths+1
// 归属于创建它的场景，归约为终值结果后即被丢弃；可视化时按种子重新生成
type EconomicPath struct {
	// 时域月数（序列长度为 Months+1）
	Months int
	// 房产价值轨迹
	PropertyValue []float64
	// CPI 指数轨迹（乘性累积，无下限）
	CPIIndex []float64
	// 年度 CPI 变化率：每年四月按照过去 12 个月复合变化重定，用于 HTB 利率步进
	AnnualCPIRate []float64
	// 月度漂移的即期按揭利率
	SpotMortgageRate []float64
	// 生效按揭利率：每个锁定块首月的即期利率，块内保持不变
	MortgageRate []float64
}

// PathGenerator 经济路径生成器
// 消费抽样器输出，逐月构建房价、CPI 指数与按揭利率轨迹
type PathGenerator struct {
	history MarketHistory
	cfg     PathConfig
}

// NewPathGenerator 创建路径生成器
func NewPathGenerator(history MarketHistory, cfg PathConfig) *PathGenerator {
	return &PathGenerator{history: history, cfg: cfg}
}

// Generate 为一个场景生成完整经济路径
// 同一 (seed, horizonMonths) 必然产生逐位相同的路径
func (g *PathGenerator) Generate(seed int64, horizonMonths int) (*EconomicPath, error) {
	if horizonMonths <= 0 {
		return nil, fmt.Errorf("horizon %d months: %w", horizonMonths, ErrInvalidHorizon)
	}

	propertySampler, err := NewBootstrapSampler(g.history.Property, seed+seedOffsetProperty)
	if err != nil {
		return nil, err
	}
	cpiSampler, err := NewBootstrapSampler(g.history.CPI, seed+seedOffsetCPI)
	if err != nil {
		return nil, err
	}
	mortgageSampler, err := NewBootstrapSampler(g.history.MortgageRate, seed+seedOffsetMortgage)
	if err != nil {
		return nil, err
	}

	n := horizonMonths + 1
	path := &EconomicPath{
		Months:           horizonMonths,
		PropertyValue:    make([]float64, n),
		CPIIndex:         make([]float64, n),
		AnnualCPIRate:    make([]float64, n),
		SpotMortgageRate: make([]float64, n),
		MortgageRate:     make([]float64, n),
	}

	path.PropertyValue[0] = g.cfg.InitialPropertyValue
	path.CPIIndex[0] = g.cfg.InitialCPIIndex
	path.SpotMortgageRate[0] = g.cfg.InitialMortgageRate
	path.MortgageRate[0] = g.cfg.InitialMortgageRate

	propertyFloor := g.cfg.PropertyFloorFraction * g.cfg.InitialPropertyValue
	lockedRate := g.cfg.InitialMortgageRate

	for t := 1; t <= horizonMonths; t++ {
		// 房价：环比应用后立即施加下限，下限优先于同月的任何其他调整
		value := path.PropertyValue[t-1] * (1 + propertySampler.Sample())
		if value < propertyFloor {
			value = propertyFloor
		}
		path.PropertyValue[t] = value

		// CPI 指数：乘性累积，无下限
		path.CPIIndex[t] = path.CPIIndex[t-1] * (1 + cpiSampler.Sample())

		// 按揭利率：即期利率逐月漂移，不得低于下限
		spot := path.SpotMortgageRate[t-1] + mortgageSampler.Sample()
		if spot < g.cfg.MortgageRateFloor {
			spot = g.cfg.MortgageRateFloor
		}
		path.SpotMortgageRate[t] = spot

		// 锁定利率：仅在锁定块首月重新取即期值，块内恒定
		if t%g.cfg.RateLockMonths == 0 {
			lockedRate = spot
		}
		path.MortgageRate[t] = lockedRate

		// 年度 CPI：每年四月按过去 12 个月的复合变化重定，其余月份沿用上月值
		if t%12 == aprilMonthIndex {
			base := path.CPIIndex[0]
			if t >= 12 {
				base = path.CPIIndex[t-12]
			}
			path.AnnualCPIRate[t] = path.CPIIndex[t]/base - 1
		} else {
			path.AnnualCPIRate[t] = path.AnnualCPIRate[t-1]
		}
	}

	return path, nil
}
