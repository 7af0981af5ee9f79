package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/vyjcapital/vyj_backend/models"
)

// Allocation is the outcome of running a payment through the waterfall.
// All amounts are rounded to cents.
type Allocation struct {
	ArrearsPaid   decimal.Decimal
	InterestPaid  decimal.Decimal
	PrincipalPaid decimal.Decimal
	// Unapplied is what no step absorbed. It is not credited to any
	// balance; the transaction record carries it so the received total
	// is always accounted for.
	Unapplied decimal.Decimal

	NewArrears   decimal.Decimal
	NewInterest  decimal.Decimal
	NewPrincipal decimal.Decimal
	Status       string
}

// Allocate runs the fixed waterfall: arrears first, then interest, then
// principal. Principal is clamped at the outstanding balance so no balance
// ever goes negative. On INTEREST_ONLY loans the surplus reaches principal
// only when applySurplus is set.
func Allocate(loan *models.Loan, amount decimal.Decimal, applySurplus bool) Allocation {
	arrears := decimal.NewFromFloat(loan.Arrears)
	interest := decimal.NewFromFloat(loan.InterestPending)
	principal := decimal.NewFromFloat(loan.Principal)

	remaining := amount.Round(2)

	arrearsPaid := decimal.Min(remaining, arrears)
	remaining = remaining.Sub(arrearsPaid)

	interestPaid := decimal.Min(remaining, interest)
	remaining = remaining.Sub(interestPaid)

	principalPaid := decimal.Zero
	if remaining.IsPositive() {
		if loan.Method != models.MethodInterestOnly || applySurplus {
			principalPaid = decimal.Min(remaining, principal)
		}
		remaining = remaining.Sub(principalPaid)
	}

	a := Allocation{
		ArrearsPaid:   arrearsPaid.Round(2),
		InterestPaid:  interestPaid.Round(2),
		PrincipalPaid: principalPaid.Round(2),
		Unapplied:     remaining.Round(2),
		NewArrears:    arrears.Sub(arrearsPaid).Round(2),
		NewInterest:   interest.Sub(interestPaid).Round(2),
		NewPrincipal:  principal.Sub(principalPaid).Round(2),
	}
	a.Status = statusFor(a.NewPrincipal, a.NewArrears)
	return a
}

// statusFor derives loan status from the balances. Zero principal wins over
// remaining arrears: a settled loan is PAID_OFF even if arrears were never
// cleared.
func statusFor(principal, arrears decimal.Decimal) string {
	switch {
	case !principal.IsPositive():
		return models.LoanStatusPaidOff
	case arrears.IsPositive():
		return models.LoanStatusArrears
	default:
		return models.LoanStatusActive
	}
}

// MonthlyInterestCharge is one period's interest on the outstanding
// principal at the loan's monthly rate, rounded to cents
func MonthlyInterestCharge(principal, monthlyRate float64) decimal.Decimal {
	return decimal.NewFromFloat(principal).
		Mul(decimal.NewFromFloat(monthlyRate)).
		Round(2)
}
