package domain

// LoanPhase 股权贷款生命周期阶段
type LoanPhase string

const (
	// PhaseInterestFree 免息期（第 0 至 59 个月），仅收取固定月度管理费
	PhaseInterestFree LoanPhase = "INTEREST_FREE"
	// PhaseAccruing 计息期（第 60 个月起），利率每年四月阶梯上调
	PhaseAccruing LoanPhase = "ACCRUING"
	// PhaseRepaid 已全额清偿，终态
	PhaseRepaid LoanPhase = "REPAID"
)

// LoanConfig 股权贷款方案参数
type LoanConfig struct {
	// 初始股权占比（如 0.20 表示政府持有 20% 股权）
	InitialEquityShare float64
	// 免息期月数
	InterestFreeMonths int
	// 计息期起始年利率（方案规定 1.75%）
	InitialInterestRate float64
	// 方案利差：四月调息时叠加在通胀指数上的固定溢价
	SchemeMargin float64
	// 免息期内每月固定管理费
	MonthlyManagementFee float64
	// 每次还款（部分或全额）收取的固定行政费
	AdminFee float64
	// 部分还款的最小幅度：单次至少偿还当前房产价值的该比例
	MinPartialShareOfProperty float64
}

// LoanState 单场景内的股权贷款可变状态
// 贷款余额与当前房产价值挂钩（equityShare * propertyValue），不是固定现金额
type LoanState struct {
	Phase LoanPhase
	// 当前股权占比，只减不增
	EquityShare float64
	// 当前年利率，免息期内为 0
	InterestRate float64
	// 累计已付费用（管理费与行政费）
	CumulativeFees float64
	// 累计已付利息（体外支付，不资本化进贷款余额）
	CumulativeInterest float64
	// 全额清偿发生的月份，未清偿时为 -1
	RepaymentMonth int
	// 累计还款金额（部分加全额）
	TotalRepaid float64
}

// EquityLoanEngine 股权贷款状态机
// 月度推进顺序固定：调息 → 还款事件 → 计提费用与利息
type EquityLoanEngine struct {
	cfg LoanConfig
}

// NewEquityLoanEngine 创建股权贷款引擎
func NewEquityLoanEngine(cfg LoanConfig) *EquityLoanEngine {
	return &EquityLoanEngine{cfg: cfg}
}

// NewState 初始化贷款状态
func (e *EquityLoanEngine) NewState() *LoanState {
	return &LoanState{
		Phase:          PhaseInterestFree,
		EquityShare:    e.cfg.InitialEquityShare,
		RepaymentMonth: -1,
	}
}

// LoanValue 当前贷款余额：股权占比乘以当前房产价值
func (e *EquityLoanEngine) LoanValue(st *LoanState, propertyValue float64) float64 {
	return st.EquityShare * propertyValue
}

// AdvanceRate 月初推进利率
// 免息期结束当月利率置为初始计息利率；此后每年四月按 rate = rate*(1+指数+利差) 上调
// 四月判定沿用路径生成的日历约定：月份 0 为贷款完成当月（一月），四月即年内第 3 个月
func (e *EquityLoanEngine) AdvanceRate(st *LoanState, month int, annualCPIRate float64) {
	if st.Phase == PhaseRepaid {
		return
	}
	if month == e.cfg.InterestFreeMonths {
		st.Phase = PhaseAccruing
		st.InterestRate = e.cfg.InitialInterestRate
		return
	}
	if st.Phase == PhaseAccruing && month%12 == aprilMonthIndex {
		st.InterestRate *= 1 + annualCPIRate + e.cfg.SchemeMargin
	}
}

// AccrueCharges 月末计提当月费用与利息
// 免息期收固定管理费，计息期按 年利率/12 对当前贷款余额计息
func (e *EquityLoanEngine) AccrueCharges(st *LoanState, propertyValue float64) {
	switch st.Phase {
	case PhaseInterestFree:
		st.CumulativeFees += e.cfg.MonthlyManagementFee
	case PhaseAccruing:
		st.CumulativeInterest += st.InterestRate / 12 * e.LoanValue(st, propertyValue)
	}
}

// PartialRepay 部分还款（staircasing）
// 还款额不得低于当前房产价值的最小比例；若计算后股权占比将被清零则转为全额还款
// 返回实际还款金额，已清偿状态下返回 0
func (e *EquityLoanEngine) PartialRepay(st *LoanState, month int, propertyValue, fraction float64) float64 {
	if st.Phase == PhaseRepaid {
		return 0
	}
	amount := fraction * e.LoanValue(st, propertyValue)
	if minAmount := e.cfg.MinPartialShareOfProperty * propertyValue; amount < minAmount {
		amount = minAmount
	}
	if amount >= e.LoanValue(st, propertyValue) {
		return e.FullRepay(st, month, propertyValue)
	}
	st.EquityShare -= amount / propertyValue
	st.TotalRepaid += amount
	st.CumulativeFees += e.cfg.AdminFee
	return amount
}

// FullRepay 全额清偿，转入终态
// 清偿后股权占比冻结为零，后续月份不再产生任何费用或利息
func (e *EquityLoanEngine) FullRepay(st *LoanState, month int, propertyValue float64) float64 {
	if st.Phase == PhaseRepaid {
		return 0
	}
	amount := e.LoanValue(st, propertyValue)
	st.EquityShare = 0
	st.TotalRepaid += amount
	st.CumulativeFees += e.cfg.AdminFee
	st.Phase = PhaseRepaid
	st.RepaymentMonth = month
	return amount
}
