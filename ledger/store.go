package ledger

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vyjcapital/vyj_backend/models"
)

var (
	// ErrLoanNotFound means the referenced loan does not exist
	ErrLoanNotFound = errors.New("loan not found")
	// ErrReferrerNotFound means the loan's referrer does not exist
	ErrReferrerNotFound = errors.New("referrer not found")
	// ErrInvalidAmount rejects non-positive payment amounts
	ErrInvalidAmount = errors.New("payment amount must be greater than zero")
	// ErrConflict signals the loan changed between read and commit; the
	// caller must re-read and retry
	ErrConflict = errors.New("loan was modified concurrently")
)

// AccrualUpdate is one loan's share of a batched accrual sweep
type AccrualUpdate struct {
	LoanID             primitive.ObjectID
	AddArrears         float64
	AddInterest        float64
	SetStatus          string
	SetArrearsEditable bool
	SetNextDueDate     *time.Time
}

// Store is the storage access the accounting engine needs. The Mongo
// implementation lives in repositories; tests substitute an in-memory fake.
type Store interface {
	GetLoan(ctx context.Context, id primitive.ObjectID) (*models.Loan, error)
	// ListAccruable returns loans with status ACTIVE or ARREARS
	ListAccruable(ctx context.Context) ([]*models.Loan, error)
	// CommitPayment persists the loan's new balances and appends the
	// ledger entry as one atomic unit, guarded by the loan's version.
	// Returns ErrConflict when the stored version no longer matches.
	CommitPayment(ctx context.Context, loan *models.Loan, entry *models.Transaction) error
	// BulkUpdateLoans applies a sweep's updates as a single batched
	// write and returns the number of loans updated
	BulkUpdateLoans(ctx context.Context, updates []AccrualUpdate) (int, error)

	GetReferrer(ctx context.Context, id primitive.ObjectID) (*models.Referrer, error)
	// ClaimCommissionFlag sets the loan's commissionPaid flag if and only
	// if it is not yet set, returning whether this call claimed it
	ClaimCommissionFlag(ctx context.Context, loanID primitive.ObjectID) (bool, error)
	InsertCommission(ctx context.Context, commission *models.Commission) error
}
