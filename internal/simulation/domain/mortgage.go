package domain

import (
	"fmt"
	"math"
)

// MortgageConfig 常规按揭参数
type MortgageConfig struct {
	// 初始按揭本金
	Principal float64
	// 总还款期限（月）
	TermMonths int
	// 重定价周期（月），与利率锁定周期一致
	RepricingMonths int
}

// MortgageState 单场景内的按揭可变状态
type MortgageState struct {
	// 未偿余额，负摊销时可高于上月
	Balance float64
	// 当前生效年利率（锁定块内恒定）
	CurrentRate float64
	// 当前等额月供
	MonthlyPayment float64
	// 累计已付月供
	TotalPayments float64
}

// MortgageEngine 减额余额摊销引擎
// 每个重定价边界按当时锁定利率与剩余期限重算等额月供，块内月供不变
type MortgageEngine struct {
	cfg MortgageConfig
}

// NewMortgageEngine 创建按揭引擎
func NewMortgageEngine(cfg MortgageConfig) *MortgageEngine {
	return &MortgageEngine{cfg: cfg}
}

// NewState 初始化按揭状态
func (e *MortgageEngine) NewState(initialRate float64) (*MortgageState, error) {
	st := &MortgageState{
		Balance:     e.cfg.Principal,
		CurrentRate: initialRate,
	}
	payment, err := annuityPayment(st.Balance, initialRate, e.cfg.TermMonths)
	if err != nil {
		return nil, err
	}
	st.MonthlyPayment = payment
	return st, nil
}

// Step 推进一个月
// month 从 1 起计；lockedRate 为上月末的生效锁定利率，即本月月供所属锁定块的利率
// 月供不足以覆盖利息时余额上升（负摊销），这是合法的不利经济结果而非错误
func (e *MortgageEngine) Step(st *MortgageState, month int, lockedRate float64) error {
	if st.Balance <= 0 {
		return nil
	}

	// 重定价边界：块首月按当前锁定利率与剩余期限重算月供
	if (month-1)%e.cfg.RepricingMonths == 0 {
		remaining := e.cfg.TermMonths - (month - 1)
		payment, err := annuityPayment(st.Balance, lockedRate, remaining)
		if err != nil {
			return err
		}
		st.CurrentRate = lockedRate
		st.MonthlyPayment = payment
	}

	interest := st.Balance * st.CurrentRate / 12
	if !isFinite(interest) {
		return fmt.Errorf("month %d interest: %w", month, ErrNumericDegeneracy)
	}

	payment := st.MonthlyPayment
	if payment >= st.Balance+interest {
		// 末期：按实际清偿额支付
		payment = st.Balance + interest
		st.Balance = 0
	} else {
		st.Balance += interest - payment
	}
	st.TotalPayments += payment
	return nil
}

// AddToBalance 将股权贷款还款额并入按揭余额
// 月供在下一个重定价边界才会重算，边界之前维持原月供
func (e *MortgageEngine) AddToBalance(st *MortgageState, amount float64) {
	st.Balance += amount
}

// annuityPayment 等额本息月供
// 剩余期限非正或计算结果非有限时返回 ErrNumericDegeneracy
func annuityPayment(balance, annualRate float64, remainingMonths int) (float64, error) {
	if remainingMonths <= 0 {
		return 0, fmt.Errorf("remaining term %d months: %w", remainingMonths, ErrNumericDegeneracy)
	}
	monthly := annualRate / 12
	var payment float64
	if monthly == 0 {
		payment = balance / float64(remainingMonths)
	} else {
		payment = balance * monthly / (1 - math.Pow(1+monthly, -float64(remainingMonths)))
	}
	if !isFinite(payment) || payment < 0 {
		return 0, fmt.Errorf("annuity payment for rate %.6f over %d months: %w", annualRate, remainingMonths, ErrNumericDegeneracy)
	}
	return payment, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
