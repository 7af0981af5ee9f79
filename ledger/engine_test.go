package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vyjcapital/vyj_backend/models"
)

// fakeStore is an in-memory Store. GetLoan returns copies so the engine's
// retry loop observes fresh state like it would against the database.
type fakeStore struct {
	loans       map[primitive.ObjectID]*models.Loan
	referrers   map[primitive.ObjectID]*models.Referrer
	entries     []*models.Transaction
	commissions []*models.Commission

	// conflicts rejects this many commits before accepting
	conflicts   int
	commitCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		loans:     make(map[primitive.ObjectID]*models.Loan),
		referrers: make(map[primitive.ObjectID]*models.Referrer),
	}
}

func (s *fakeStore) GetLoan(ctx context.Context, id primitive.ObjectID) (*models.Loan, error) {
	loan, ok := s.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	copied := *loan
	return &copied, nil
}

func (s *fakeStore) ListAccruable(ctx context.Context) ([]*models.Loan, error) {
	var loans []*models.Loan
	for _, loan := range s.loans {
		if loan.Status == models.LoanStatusActive || loan.Status == models.LoanStatusArrears {
			copied := *loan
			loans = append(loans, &copied)
		}
	}
	return loans, nil
}

func (s *fakeStore) CommitPayment(ctx context.Context, loan *models.Loan, entry *models.Transaction) error {
	s.commitCalls++
	stored, ok := s.loans[loan.ID]
	if !ok {
		return ErrLoanNotFound
	}
	if s.conflicts > 0 {
		s.conflicts--
		stored.Version++
		return ErrConflict
	}
	if stored.Version != loan.Version {
		return ErrConflict
	}

	updated := *loan
	updated.Version++
	s.loans[loan.ID] = &updated
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) BulkUpdateLoans(ctx context.Context, updates []AccrualUpdate) (int, error) {
	count := 0
	for _, u := range updates {
		loan, ok := s.loans[u.LoanID]
		if !ok {
			continue
		}
		loan.Arrears += u.AddArrears
		loan.InterestPending += u.AddInterest
		if u.SetStatus != "" {
			loan.Status = u.SetStatus
		}
		if u.SetArrearsEditable {
			loan.ArrearsEditable = true
		}
		if u.SetNextDueDate != nil {
			due := *u.SetNextDueDate
			loan.NextDueDate = &due
		}
		loan.Version++
		count++
	}
	return count, nil
}

func (s *fakeStore) GetReferrer(ctx context.Context, id primitive.ObjectID) (*models.Referrer, error) {
	referrer, ok := s.referrers[id]
	if !ok {
		return nil, ErrReferrerNotFound
	}
	return referrer, nil
}

func (s *fakeStore) ClaimCommissionFlag(ctx context.Context, loanID primitive.ObjectID) (bool, error) {
	loan, ok := s.loans[loanID]
	if !ok || loan.CommissionPaid {
		return false, nil
	}
	loan.CommissionPaid = true
	return true, nil
}

func (s *fakeStore) InsertCommission(ctx context.Context, commission *models.Commission) error {
	s.commissions = append(s.commissions, commission)
	return nil
}

func (s *fakeStore) addLoan(loan *models.Loan) primitive.ObjectID {
	if loan.ID.IsZero() {
		loan.ID = primitive.NewObjectID()
	}
	s.loans[loan.ID] = loan
	return loan.ID
}

func (s *fakeStore) addReferrer(referrer *models.Referrer) primitive.ObjectID {
	if referrer.ID.IsZero() {
		referrer.ID = primitive.NewObjectID()
	}
	s.referrers[referrer.ID] = referrer
	return referrer.ID
}

func TestApplyPaymentAllocatesAndRecords(t *testing.T) {
	store := newFakeStore()
	id := store.addLoan(&models.Loan{
		Arrears:         300,
		InterestPending: 200,
		Principal:       1000,
		Method:          models.MethodPrincipalReducing,
		Status:          models.LoanStatusArrears,
	})
	engine := NewEngine(store)

	result, err := engine.ApplyPayment(context.Background(), id, 600, false, "cash")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ReceiptNo)
	assert.Equal(t, 300.0, result.ArrearsPaid)
	assert.Equal(t, 200.0, result.InterestPaid)
	assert.Equal(t, 100.0, result.PrincipalPaid)
	assert.Equal(t, 900.0, result.NewBalance)
	assert.Equal(t, models.LoanStatusActive, result.Status)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, id, entry.LoanID)
	assert.Equal(t, 600.0, entry.Amount)
	assert.Equal(t, "cash", entry.PaymentType)
	assert.Equal(t, result.ReceiptNo, entry.ReceiptNo)

	loan := store.loans[id]
	assert.Equal(t, 0.0, loan.Arrears)
	assert.Equal(t, 0.0, loan.InterestPending)
	assert.Equal(t, 900.0, loan.Principal)
	assert.NotNil(t, loan.LastPaymentAt)
}

func TestApplyPaymentRejectsNonPositiveAmounts(t *testing.T) {
	store := newFakeStore()
	id := store.addLoan(&models.Loan{Principal: 100, Status: models.LoanStatusActive})
	engine := NewEngine(store)

	_, err := engine.ApplyPayment(context.Background(), id, 0, false, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = engine.ApplyPayment(context.Background(), id, -5, false, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Empty(t, store.entries, "rejected payments leave no trace")
}

func TestApplyPaymentUnknownLoan(t *testing.T) {
	engine := NewEngine(newFakeStore())

	_, err := engine.ApplyPayment(context.Background(), primitive.NewObjectID(), 100, false, "")
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestApplyPaymentRetriesOnConflict(t *testing.T) {
	store := newFakeStore()
	id := store.addLoan(&models.Loan{
		Principal: 1000,
		Method:    models.MethodPrincipalReducing,
		Status:    models.LoanStatusActive,
	})
	store.conflicts = 2
	engine := NewEngine(store)

	result, err := engine.ApplyPayment(context.Background(), id, 100, false, "")
	require.NoError(t, err)

	assert.Equal(t, 3, store.commitCalls, "two conflicts then one success")
	assert.Equal(t, 900.0, result.NewBalance)
	assert.Len(t, store.entries, 1, "only the winning attempt records an entry")
}

func TestApplyPaymentGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newFakeStore()
	id := store.addLoan(&models.Loan{
		Principal: 1000,
		Method:    models.MethodPrincipalReducing,
		Status:    models.LoanStatusActive,
	})
	store.conflicts = 100
	engine := NewEngine(store)

	_, err := engine.ApplyPayment(context.Background(), id, 100, false, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, maxCommitAttempts, store.commitCalls)
	assert.Empty(t, store.entries)
}

func TestSequentialPaymentsBothRecorded(t *testing.T) {
	store := newFakeStore()
	id := store.addLoan(&models.Loan{
		Principal: 1000,
		Method:    models.MethodPrincipalReducing,
		Status:    models.LoanStatusActive,
	})
	engine := NewEngine(store)

	_, err := engine.ApplyPayment(context.Background(), id, 400, false, "")
	require.NoError(t, err)
	result, err := engine.ApplyPayment(context.Background(), id, 600, false, "")
	require.NoError(t, err)

	assert.Len(t, store.entries, 2)
	assert.Equal(t, 0.0, result.NewBalance)
	assert.Equal(t, models.LoanStatusPaidOff, result.Status)
}

func TestAccrueArrearsChargesOverdueLoans(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)

	overdue := store.addLoan(&models.Loan{
		Principal:   1000,
		NextDueDate: &past,
		Status:      models.LoanStatusActive,
	})
	current := store.addLoan(&models.Loan{
		Principal:   1000,
		NextDueDate: &future,
		Status:      models.LoanStatusActive,
	})
	undated := store.addLoan(&models.Loan{
		Principal: 1000,
		Status:    models.LoanStatusActive,
	})
	settled := store.addLoan(&models.Loan{
		Principal:   0,
		NextDueDate: &past,
		Status:      models.LoanStatusPaidOff,
	})

	engine := NewEngine(store)
	count, err := engine.AccrueArrears(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	charged := store.loans[overdue]
	assert.Equal(t, DailyArrearsCharge, charged.Arrears)
	assert.Equal(t, models.LoanStatusArrears, charged.Status)
	assert.True(t, charged.ArrearsEditable, "the sweep opens arrears for operator adjustment")

	assert.Equal(t, 0.0, store.loans[current].Arrears)
	assert.Equal(t, 0.0, store.loans[undated].Arrears, "loans without a due date are skipped")
	assert.Equal(t, 0.0, store.loans[settled].Arrears, "settled loans never accrue")
}

func TestAccrueArrearsRepeatRunChargesAgain(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	past := now.AddDate(0, 0, -1)
	id := store.addLoan(&models.Loan{
		Principal:   1000,
		NextDueDate: &past,
		Status:      models.LoanStatusActive,
	})
	engine := NewEngine(store)

	_, err := engine.AccrueArrears(context.Background(), now)
	require.NoError(t, err)
	_, err = engine.AccrueArrears(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2*DailyArrearsCharge, store.loans[id].Arrears, "each run charges once")
}

func TestAccrueInterestOnlyTouchesInterestOnlyLoans(t *testing.T) {
	store := newFakeStore()
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	interestOnly := store.addLoan(&models.Loan{
		Principal:   1000,
		MonthlyRate: 0.05,
		Method:      models.MethodInterestOnly,
		NextDueDate: &due,
		Status:      models.LoanStatusActive,
	})
	reducing := store.addLoan(&models.Loan{
		Principal:   1000,
		MonthlyRate: 0.05,
		Method:      models.MethodPrincipalReducing,
		NextDueDate: &due,
		Status:      models.LoanStatusActive,
	})
	undated := store.addLoan(&models.Loan{
		Principal:   2000,
		MonthlyRate: 0.03,
		Method:      models.MethodInterestOnly,
		Status:      models.LoanStatusActive,
	})

	engine := NewEngine(store)
	count, err := engine.AccrueInterest(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	charged := store.loans[interestOnly]
	assert.Equal(t, 50.0, charged.InterestPending)
	require.NotNil(t, charged.NextDueDate)
	assert.Equal(t, due.AddDate(0, 1, 0), *charged.NextDueDate, "due date advances one month")

	assert.Equal(t, 0.0, store.loans[reducing].InterestPending)

	assert.Equal(t, 60.0, store.loans[undated].InterestPending)
	assert.Nil(t, store.loans[undated].NextDueDate, "no due date stays unset")
}

func TestPercentageCommissionAccruesPerPayment(t *testing.T) {
	store := newFakeStore()
	referrerID := store.addReferrer(&models.Referrer{
		FullName:        "Maria",
		CommissionType:  models.CommissionTypePercentage,
		CommissionValue: 0.10,
	})
	loanID := store.addLoan(&models.Loan{
		Principal:  1000,
		ReferrerID: &referrerID,
		Status:     models.LoanStatusActive,
	})
	engine := NewEngine(store)

	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 50))
	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 30))

	require.Len(t, store.commissions, 2, "percentage commissions accrue on every payment")
	assert.Equal(t, 5.0, store.commissions[0].Amount)
	assert.Equal(t, 3.0, store.commissions[1].Amount)
	assert.Equal(t, models.CommissionStatusPending, store.commissions[0].Status)
	assert.Equal(t, referrerID, store.commissions[0].ReferrerID)
	assert.Equal(t, loanID, store.commissions[0].LoanID)
}

func TestFlatCommissionPaysExactlyOnce(t *testing.T) {
	store := newFakeStore()
	referrerID := store.addReferrer(&models.Referrer{
		FullName:        "Jorge",
		CommissionType:  models.CommissionTypeFlatOneTime,
		CommissionValue: 250,
	})
	loanID := store.addLoan(&models.Loan{
		Principal:  1000,
		ReferrerID: &referrerID,
		Status:     models.LoanStatusActive,
	})
	engine := NewEngine(store)

	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 50))
	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 50))

	require.Len(t, store.commissions, 1, "the flat fee is paid exactly once")
	assert.Equal(t, 250.0, store.commissions[0].Amount)
	assert.True(t, store.loans[loanID].CommissionPaid)
}

func TestCommissionSkipsZeroInterest(t *testing.T) {
	store := newFakeStore()
	referrerID := store.addReferrer(&models.Referrer{
		CommissionType:  models.CommissionTypePercentage,
		CommissionValue: 0.10,
	})
	loanID := store.addLoan(&models.Loan{
		Principal:  1000,
		ReferrerID: &referrerID,
		Status:     models.LoanStatusActive,
	})
	engine := NewEngine(store)

	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 0))
	assert.Empty(t, store.commissions, "a zero commission is never recorded")
}

func TestCommissionNoOpWithoutReferrer(t *testing.T) {
	store := newFakeStore()
	loanID := store.addLoan(&models.Loan{
		Principal: 1000,
		Status:    models.LoanStatusActive,
	})
	engine := NewEngine(store)

	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 50))
	assert.Empty(t, store.commissions)
}

func TestCommissionNoOpOnMissingRecords(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)

	// Missing loan
	require.NoError(t, engine.ProcessReferralCommission(context.Background(), primitive.NewObjectID(), 50))

	// Referrer deleted after origination
	ghost := primitive.NewObjectID()
	loanID := store.addLoan(&models.Loan{
		Principal:  1000,
		ReferrerID: &ghost,
		Status:     models.LoanStatusActive,
	})
	require.NoError(t, engine.ProcessReferralCommission(context.Background(), loanID, 50))
	assert.Empty(t, store.commissions)
}
