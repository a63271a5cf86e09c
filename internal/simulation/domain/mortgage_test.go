package domain

import (
	"errors"
	"math"
	"testing"
)

func testMortgageEngine() *MortgageEngine {
	return NewMortgageEngine(MortgageConfig{
		Principal:       180000,
		TermMonths:      300,
		RepricingMonths: 60,
	})
}

func TestAnnuityPayment(t *testing.T) {
	// 标准等额本息：180000 本金、年利率 4.8%、300 期
	got, err := annuityPayment(180000, 0.048, 300)
	if err != nil {
		t.Fatalf("annuityPayment: %v", err)
	}
	monthly := 0.048 / 12
	want := 180000 * monthly / (1 - math.Pow(1+monthly, -300))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("payment = %v, want %v", got, want)
	}

	// 零利率退化为等额本金
	got, err = annuityPayment(120000, 0, 240)
	if err != nil {
		t.Fatalf("annuityPayment: %v", err)
	}
	if got != 500 {
		t.Fatalf("zero-rate payment = %v, want 500", got)
	}
}

func TestAnnuityPaymentDegeneracy(t *testing.T) {
	if _, err := annuityPayment(100000, 0.05, 0); !errors.Is(err, ErrNumericDegeneracy) {
		t.Fatalf("zero term: got %v, want ErrNumericDegeneracy", err)
	}
	if _, err := annuityPayment(100000, math.NaN(), 120); !errors.Is(err, ErrNumericDegeneracy) {
		t.Fatalf("NaN rate: got %v, want ErrNumericDegeneracy", err)
	}
}

func TestMortgageAmortizes(t *testing.T) {
	engine := testMortgageEngine()
	st, err := engine.NewState(0.045)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	prev := st.Balance
	for m := 1; m <= 300; m++ {
		if err := engine.Step(st, m, 0.045); err != nil {
			t.Fatalf("month %d: %v", m, err)
		}
		if st.Balance >= prev && st.Balance > 0 {
			t.Fatalf("month %d: balance %v did not decrease from %v", m, st.Balance, prev)
		}
		prev = st.Balance
	}
	if st.Balance > 1e-6 {
		t.Fatalf("balance after full term = %v, want 0", st.Balance)
	}
	if st.TotalPayments <= 180000 {
		t.Fatalf("total payments %v must exceed principal", st.TotalPayments)
	}
}

func TestMortgageRepricesAtBlockBoundary(t *testing.T) {
	engine := testMortgageEngine()
	st, err := engine.NewState(0.04)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	for m := 1; m <= 60; m++ {
		if err := engine.Step(st, m, 0.04); err != nil {
			t.Fatalf("month %d: %v", m, err)
		}
	}
	before := st.MonthlyPayment

	// 第 61 个月进入新锁定块，按新利率与剩余 240 期重算月供
	if err := engine.Step(st, 61, 0.07); err != nil {
		t.Fatalf("month 61: %v", err)
	}
	if st.CurrentRate != 0.07 {
		t.Fatalf("rate after repricing = %v, want 0.07", st.CurrentRate)
	}
	if st.MonthlyPayment <= before {
		t.Fatalf("payment %v did not rise after repricing to a higher rate", st.MonthlyPayment)
	}

	// 块内不重算
	payment := st.MonthlyPayment
	if err := engine.Step(st, 62, 0.09); err != nil {
		t.Fatalf("month 62: %v", err)
	}
	if st.MonthlyPayment != payment || st.CurrentRate != 0.07 {
		t.Fatal("payment recomputed inside a lock block")
	}
}

func TestMortgageNegativeAmortization(t *testing.T) {
	engine := testMortgageEngine()
	st := &MortgageState{
		Balance:        150000,
		CurrentRate:    0.20,
		MonthlyPayment: 400,
	}

	// 月供低于利息：余额必须上升而不是报错
	if err := engine.Step(st, 2, 0.20); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if st.Balance <= 150000 {
		t.Fatalf("balance %v did not grow under negative amortization", st.Balance)
	}
}

func TestMortgageAddToBalance(t *testing.T) {
	engine := testMortgageEngine()
	st, err := engine.NewState(0.045)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	for m := 1; m <= 10; m++ {
		if err := engine.Step(st, m, 0.045); err != nil {
			t.Fatalf("month %d: %v", m, err)
		}
	}
	payment := st.MonthlyPayment
	before := st.Balance

	engine.AddToBalance(st, 50000)
	if st.Balance != before+50000 {
		t.Fatalf("balance = %v, want %v", st.Balance, before+50000)
	}
	// 月供维持到下一个重定价边界
	if err := engine.Step(st, 11, 0.045); err != nil {
		t.Fatalf("month 11: %v", err)
	}
	if st.MonthlyPayment != payment {
		t.Fatal("payment recomputed before the next repricing boundary")
	}
}
