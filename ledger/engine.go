package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vyjcapital/vyj_backend/models"
)

const (
	// DailyArrearsCharge is the flat penalty added per overdue day
	DailyArrearsCharge = 100.0

	// maxCommitAttempts bounds the optimistic-concurrency retry loop on
	// payment allocation
	maxCommitAttempts = 5
)

// Engine owns all mutations of loan financial state: payment allocation,
// the accrual sweeps and referral commissions. Everything goes through the
// injected Store.
type Engine struct {
	store Store
}

// NewEngine creates an Engine over the given store
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ApplyPayment allocates a payment across arrears, interest and principal
// and appends the ledger entry in the same atomic unit as the balance
// update. A concurrent write against the same loan makes the commit fail;
// the engine re-reads the fresh state and retries, so no update is ever
// silently lost.
func (e *Engine) ApplyPayment(ctx context.Context, loanID primitive.ObjectID, amount float64, applySurplus bool, paymentType string) (*models.PaymentResult, error) {
	amt := decimal.NewFromFloat(amount)
	if !amt.IsPositive() {
		return nil, ErrInvalidAmount
	}

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		loan, err := e.store.GetLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}

		alloc := Allocate(loan, amt, applySurplus)
		now := time.Now()

		updated := *loan
		updated.Arrears, _ = alloc.NewArrears.Float64()
		updated.InterestPending, _ = alloc.NewInterest.Float64()
		updated.Principal, _ = alloc.NewPrincipal.Float64()
		updated.Status = alloc.Status
		updated.LastPaymentAt = &now

		entry := &models.Transaction{
			LoanID:    loan.ID,
			ReceiptNo: uuid.NewString(),
			Date:      now,
			Amount:    amount,
			Breakdown: models.Breakdown{
				Arrears:   toFloat(alloc.ArrearsPaid),
				Interest:  toFloat(alloc.InterestPaid),
				Principal: toFloat(alloc.PrincipalPaid),
			},
			Unapplied:   toFloat(alloc.Unapplied),
			NewBalance:  updated.Principal,
			PaymentType: paymentType,
		}

		err = e.store.CommitPayment(ctx, &updated, entry)
		if err == ErrConflict {
			log.Printf("payment commit conflict on loan %s (attempt %d), retrying", loanID.Hex(), attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to commit payment: %w", err)
		}

		return &models.PaymentResult{
			Success:       true,
			ReceiptNo:     entry.ReceiptNo,
			NewBalance:    updated.Principal,
			ArrearsPaid:   entry.Breakdown.Arrears,
			InterestPaid:  entry.Breakdown.Interest,
			PrincipalPaid: entry.Breakdown.Principal,
			Unapplied:     entry.Unapplied,
			Status:        updated.Status,
		}, nil
	}

	return nil, fmt.Errorf("payment on loan %s: %w after %d attempts", loanID.Hex(), ErrConflict, maxCommitAttempts)
}

// AccrueArrears is the daily sweep: every ACTIVE or ARREARS loan whose due
// date is strictly in the past gets the flat daily charge, is forced into
// ARREARS and has its arrears balance opened for operator adjustment.
// Loans without a due date are skipped. Re-running within the same day
// re-adds the charge; that is the accepted per-invocation semantic.
func (e *Engine) AccrueArrears(ctx context.Context, now time.Time) (int, error) {
	loans, err := e.store.ListAccruable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list loans for arrears sweep: %w", err)
	}

	var updates []AccrualUpdate
	for _, loan := range loans {
		if loan.NextDueDate == nil || !now.After(*loan.NextDueDate) {
			continue
		}
		updates = append(updates, AccrualUpdate{
			LoanID:             loan.ID,
			AddArrears:         DailyArrearsCharge,
			SetStatus:          models.LoanStatusArrears,
			SetArrearsEditable: true,
		})
	}

	if len(updates) == 0 {
		return 0, nil
	}

	count, err := e.store.BulkUpdateLoans(ctx, updates)
	if err != nil {
		return count, fmt.Errorf("arrears sweep batch failed: %w", err)
	}
	log.Printf("arrears sweep: charged %d overdue loans", count)
	return count, nil
}

// AccrueInterest is the monthly sweep for INTEREST_ONLY loans: one period's
// interest on the outstanding principal is added to the pending balance and
// the due date advances by a month.
func (e *Engine) AccrueInterest(ctx context.Context, now time.Time) (int, error) {
	loans, err := e.store.ListAccruable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list loans for interest sweep: %w", err)
	}

	var updates []AccrualUpdate
	for _, loan := range loans {
		if loan.Method != models.MethodInterestOnly {
			continue
		}
		charge := MonthlyInterestCharge(loan.Principal, loan.MonthlyRate)
		u := AccrualUpdate{
			LoanID:      loan.ID,
			AddInterest: toFloat(charge),
		}
		if loan.NextDueDate != nil {
			next := loan.NextDueDate.AddDate(0, 1, 0)
			u.SetNextDueDate = &next
		}
		updates = append(updates, u)
	}

	if len(updates) == 0 {
		return 0, nil
	}

	count, err := e.store.BulkUpdateLoans(ctx, updates)
	if err != nil {
		return count, fmt.Errorf("interest sweep batch failed: %w", err)
	}
	log.Printf("interest sweep: accrued interest on %d loans", count)
	return count, nil
}

// ProcessReferralCommission records the commission owed for the interest
// portion of a payment. A missing loan or referrer is a no-op; a zero
// commission is never recorded. FLAT_ONE_TIME policies claim the loan's
// commissionPaid flag atomically so the flat fee is paid exactly once.
// Callers must never let a failure here affect the payment itself.
func (e *Engine) ProcessReferralCommission(ctx context.Context, loanID primitive.ObjectID, interestPaid float64) error {
	paid := decimal.NewFromFloat(interestPaid)
	if !paid.IsPositive() {
		return nil
	}

	loan, err := e.store.GetLoan(ctx, loanID)
	if err == ErrLoanNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commission lookup of loan %s: %w", loanID.Hex(), err)
	}
	if loan.ReferrerID == nil {
		return nil
	}

	referrer, err := e.store.GetReferrer(ctx, *loan.ReferrerID)
	if err == ErrReferrerNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commission lookup of referrer %s: %w", loan.ReferrerID.Hex(), err)
	}

	commission := decimal.Zero
	switch referrer.CommissionType {
	case models.CommissionTypePercentage:
		commission = paid.Mul(decimal.NewFromFloat(referrer.CommissionValue)).Round(2)
	case models.CommissionTypeFlatOneTime:
		if loan.CommissionPaid {
			return nil
		}
		claimed, err := e.store.ClaimCommissionFlag(ctx, loan.ID)
		if err != nil {
			return fmt.Errorf("failed to claim commission flag on loan %s: %w", loan.ID.Hex(), err)
		}
		if !claimed {
			return nil
		}
		commission = decimal.NewFromFloat(referrer.CommissionValue)
	}

	if !commission.IsPositive() {
		return nil
	}

	return e.store.InsertCommission(ctx, &models.Commission{
		ReferrerID: referrer.ID,
		LoanID:     loan.ID,
		Amount:     toFloat(commission),
		Date:       time.Now(),
		Status:     models.CommissionStatusPending,
	})
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
