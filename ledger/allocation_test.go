package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vyjcapital/vyj_backend/models"
)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestAllocateWaterfallOrder(t *testing.T) {
	loan := &models.Loan{
		Arrears:         300,
		InterestPending: 200,
		Principal:       1000,
		Method:          models.MethodPrincipalReducing,
	}

	a := Allocate(loan, dec(350), false)

	assert.True(t, a.ArrearsPaid.Equal(dec(300)), "arrears absorb first")
	assert.True(t, a.InterestPaid.Equal(dec(50)), "interest absorbs next")
	assert.True(t, a.PrincipalPaid.IsZero(), "principal untouched until interest clears")
	assert.True(t, a.NewArrears.IsZero())
	assert.True(t, a.NewInterest.Equal(dec(150)))
	assert.True(t, a.NewPrincipal.Equal(dec(1000)))
	assert.Equal(t, models.LoanStatusActive, a.Status)
}

func TestAllocateFullSettlement(t *testing.T) {
	loan := &models.Loan{
		Arrears:         300,
		InterestPending: 200,
		Principal:       1000,
		Method:          models.MethodPrincipalReducing,
	}

	a := Allocate(loan, dec(1500), false)

	assert.True(t, a.ArrearsPaid.Equal(dec(300)))
	assert.True(t, a.InterestPaid.Equal(dec(200)))
	assert.True(t, a.PrincipalPaid.Equal(dec(1000)))
	assert.True(t, a.Unapplied.IsZero())
	assert.Equal(t, models.LoanStatusPaidOff, a.Status)
}

func TestAllocateEveryCentAccountedFor(t *testing.T) {
	loan := &models.Loan{
		Arrears:         123.45,
		InterestPending: 67.89,
		Principal:       500.10,
		Method:          models.MethodPrincipalReducing,
	}

	amount := dec(333.33)
	a := Allocate(loan, amount, false)

	total := a.ArrearsPaid.Add(a.InterestPaid).Add(a.PrincipalPaid).Add(a.Unapplied)
	assert.True(t, total.Equal(amount), "paid components plus unapplied must equal the amount received")
}

func TestAllocateInterestOnlyHoldsSurplus(t *testing.T) {
	loan := &models.Loan{
		InterestPending: 100,
		Principal:       1000,
		Method:          models.MethodInterestOnly,
	}

	a := Allocate(loan, dec(400), false)

	assert.True(t, a.InterestPaid.Equal(dec(100)))
	assert.True(t, a.PrincipalPaid.IsZero(), "surplus never reaches principal without the flag")
	assert.True(t, a.Unapplied.Equal(dec(300)))
	assert.True(t, a.NewPrincipal.Equal(dec(1000)))
}

func TestAllocateInterestOnlyAppliesSurplusWhenAsked(t *testing.T) {
	loan := &models.Loan{
		InterestPending: 100,
		Principal:       1000,
		Method:          models.MethodInterestOnly,
	}

	a := Allocate(loan, dec(400), true)

	assert.True(t, a.InterestPaid.Equal(dec(100)))
	assert.True(t, a.PrincipalPaid.Equal(dec(300)))
	assert.True(t, a.Unapplied.IsZero())
	assert.True(t, a.NewPrincipal.Equal(dec(700)))
}

func TestAllocateOverpaymentClampsPrincipal(t *testing.T) {
	loan := &models.Loan{
		Principal: 100,
		Method:    models.MethodPrincipalReducing,
	}

	a := Allocate(loan, dec(500), false)

	assert.True(t, a.PrincipalPaid.Equal(dec(100)), "principal never goes negative")
	assert.True(t, a.Unapplied.Equal(dec(400)))
	assert.True(t, a.NewPrincipal.IsZero())
	assert.Equal(t, models.LoanStatusPaidOff, a.Status)
}

func TestAllocateSettledLoanIsPaidOffDespiteArrears(t *testing.T) {
	loan := &models.Loan{
		Arrears:   100,
		Principal: 0,
		Method:    models.MethodPrincipalReducing,
	}

	a := Allocate(loan, dec(10), false)

	assert.True(t, a.NewArrears.Equal(dec(90)))
	assert.Equal(t, models.LoanStatusPaidOff, a.Status, "zero principal wins over remaining arrears")
}

func TestAllocatePartialArrearsKeepsArrearsStatus(t *testing.T) {
	loan := &models.Loan{
		Arrears:   200,
		Principal: 1000,
		Method:    models.MethodPrincipalReducing,
	}

	a := Allocate(loan, dec(50), false)

	assert.True(t, a.NewArrears.Equal(dec(150)))
	assert.Equal(t, models.LoanStatusArrears, a.Status)
}

func TestMonthlyInterestCharge(t *testing.T) {
	assert.True(t, MonthlyInterestCharge(1000, 0.05).Equal(dec(50)))
	assert.True(t, MonthlyInterestCharge(1234.56, 0.035).Equal(dec(43.21)), "charges round to cents")
	assert.True(t, MonthlyInterestCharge(0, 0.05).IsZero())
}
