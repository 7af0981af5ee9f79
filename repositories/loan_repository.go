package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vyjcapital/vyj_backend/config"
	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/models"
)

// LoanRepository is the Mongo-backed loan record store. It implements
// ledger.Store; all loan balance mutations go through it.
type LoanRepository struct {
	client       *mongo.Client
	loans        *mongo.Collection
	transactions *mongo.Collection
	referrers    *mongo.Collection
	commissions  *mongo.Collection
}

// NewLoanRepository creates the repository over the shared Mongo client
func NewLoanRepository(db *mongo.Client) *LoanRepository {
	return &LoanRepository{
		client:       db,
		loans:        config.GetCollection(db, "loans"),
		transactions: config.GetCollection(db, "transactions"),
		referrers:    config.GetCollection(db, "referrers"),
		commissions:  config.GetCollection(db, "referrerCommissions"),
	}
}

// GetLoan fetches one loan by id
func (r *LoanRepository) GetLoan(ctx context.Context, id primitive.ObjectID) (*models.Loan, error) {
	var loan models.Loan
	err := r.loans.FindOne(ctx, bson.M{"_id": id}).Decode(&loan)
	if err == mongo.ErrNoDocuments {
		return nil, ledger.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch loan: %w", err)
	}
	return &loan, nil
}

// ListAccruable returns every loan the accrual sweeps consider
func (r *LoanRepository) ListAccruable(ctx context.Context) ([]*models.Loan, error) {
	filter := bson.M{"status": bson.M{"$in": []string{models.LoanStatusActive, models.LoanStatusArrears}}}
	cursor, err := r.loans.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruable loans: %w", err)
	}
	defer cursor.Close(ctx)

	var loans []*models.Loan
	if err := cursor.All(ctx, &loans); err != nil {
		return nil, fmt.Errorf("failed to decode loans: %w", err)
	}
	return loans, nil
}

// CommitPayment writes the loan's post-allocation balances and the ledger
// entry in one Mongo transaction. The update is guarded by the version the
// balances were computed from; a concurrent writer bumps the version and
// the guard misses, so the whole unit aborts with ledger.ErrConflict and
// nothing is observable.
func (r *LoanRepository) CommitPayment(ctx context.Context, loan *models.Loan, entry *models.Transaction) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"_id": loan.ID, "version": loan.Version}
		update := bson.M{
			"$set": bson.M{
				"principal":       loan.Principal,
				"interestPending": loan.InterestPending,
				"arrears":         loan.Arrears,
				"status":          loan.Status,
				"lastPaymentAt":   loan.LastPaymentAt,
			},
			"$inc": bson.M{"version": 1},
		}

		res, err := r.loans.UpdateOne(sc, filter, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ledger.ErrConflict
		}

		if entry.ID.IsZero() {
			entry.ID = primitive.NewObjectID()
		}
		if _, err := r.transactions.InsertOne(sc, entry); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// BulkUpdateLoans applies an accrual sweep as a single ordered bulk write
func (r *LoanRepository) BulkUpdateLoans(ctx context.Context, updates []ledger.AccrualUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		set := bson.M{}
		inc := bson.M{}
		if u.AddArrears != 0 {
			inc["arrears"] = u.AddArrears
		}
		if u.AddInterest != 0 {
			inc["interestPending"] = u.AddInterest
		}
		if u.SetStatus != "" {
			set["status"] = u.SetStatus
		}
		if u.SetArrearsEditable {
			set["arrearsEditable"] = true
		}
		if u.SetNextDueDate != nil {
			set["nextDueDate"] = *u.SetNextDueDate
		}

		update := bson.M{"$inc": bson.M{"version": 1}}
		for k, v := range inc {
			update["$inc"].(bson.M)[k] = v
		}
		if len(set) > 0 {
			update["$set"] = set
		}

		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.LoanID}).
			SetUpdate(update))
	}

	res, err := r.loans.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("bulk loan update failed: %w", err)
	}
	return int(res.ModifiedCount), nil
}

// GetReferrer fetches one referrer by id
func (r *LoanRepository) GetReferrer(ctx context.Context, id primitive.ObjectID) (*models.Referrer, error) {
	var referrer models.Referrer
	err := r.referrers.FindOne(ctx, bson.M{"_id": id}).Decode(&referrer)
	if err == mongo.ErrNoDocuments {
		return nil, ledger.ErrReferrerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch referrer: %w", err)
	}
	return &referrer, nil
}

// ClaimCommissionFlag flips commissionPaid to true only if it is still
// false; the conditional update makes the claim atomic across concurrent
// payments
func (r *LoanRepository) ClaimCommissionFlag(ctx context.Context, loanID primitive.ObjectID) (bool, error) {
	res, err := r.loans.UpdateOne(ctx,
		bson.M{"_id": loanID, "commissionPaid": false},
		bson.M{"$set": bson.M{"commissionPaid": true}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim commission flag: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// InsertCommission appends one commission ledger entry
func (r *LoanRepository) InsertCommission(ctx context.Context, commission *models.Commission) error {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	if _, err := r.commissions.InsertOne(ctx, commission); err != nil {
		return fmt.Errorf("failed to insert commission: %w", err)
	}
	return nil
}

// CreateLoan stores a newly originated loan
func (r *LoanRepository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	if loan.ID.IsZero() {
		loan.ID = primitive.NewObjectID()
	}
	if _, err := r.loans.InsertOne(ctx, loan); err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

// ListLoansByClient returns all loans for one client, newest first
func (r *LoanRepository) ListLoansByClient(ctx context.Context, clientID primitive.ObjectID) ([]*models.Loan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.loans.Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list client loans: %w", err)
	}
	defer cursor.Close(ctx)

	var loans []*models.Loan
	if err := cursor.All(ctx, &loans); err != nil {
		return nil, fmt.Errorf("failed to decode loans: %w", err)
	}
	return loans, nil
}

// ListDueWithin returns open loans due before the cutoff, for the daily
// collections digest
func (r *LoanRepository) ListDueWithin(ctx context.Context, cutoff time.Time) ([]*models.Loan, error) {
	filter := bson.M{
		"status":      bson.M{"$in": []string{models.LoanStatusActive, models.LoanStatusArrears}},
		"nextDueDate": bson.M{"$lte": cutoff},
	}
	cursor, err := r.loans.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list due loans: %w", err)
	}
	defer cursor.Close(ctx)

	var loans []*models.Loan
	if err := cursor.All(ctx, &loans); err != nil {
		return nil, fmt.Errorf("failed to decode loans: %w", err)
	}
	return loans, nil
}

// UpdateArrears is the operator adjustment; only loans the arrears sweep
// flagged as editable accept it
func (r *LoanRepository) UpdateArrears(ctx context.Context, loanID primitive.ObjectID, arrears float64) error {
	loan, err := r.GetLoan(ctx, loanID)
	if err != nil {
		return err
	}
	if !loan.ArrearsEditable {
		return fmt.Errorf("arrears on loan %s are not editable", loanID.Hex())
	}

	status := loan.Status
	if loan.Principal > 0 {
		if arrears > 0 {
			status = models.LoanStatusArrears
		} else {
			status = models.LoanStatusActive
		}
	}

	res, err := r.loans.UpdateOne(ctx,
		bson.M{"_id": loanID, "version": loan.Version},
		bson.M{
			"$set": bson.M{"arrears": arrears, "status": status},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update arrears: %w", err)
	}
	if res.MatchedCount == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// GetTransactions returns a loan's ledger entries, newest first
func (r *LoanRepository) GetTransactions(ctx context.Context, loanID primitive.ObjectID) ([]*models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.transactions.Find(ctx, bson.M{"loanId": loanID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.Transaction
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return entries, nil
}

// GetTransactionByReceipt looks up one ledger entry by receipt number
func (r *LoanRepository) GetTransactionByReceipt(ctx context.Context, receiptNo string) (*models.Transaction, error) {
	var entry models.Transaction
	err := r.transactions.FindOne(ctx, bson.M{"receiptNo": receiptNo}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, mongo.ErrNoDocuments
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return &entry, nil
}

// PortfolioSummary aggregates the open-loan totals shown on the dashboard
func (r *LoanRepository) PortfolioSummary(ctx context.Context) (*models.PortfolioSummary, []*models.Loan, error) {
	loans, err := r.ListAccruable(ctx)
	if err != nil {
		return nil, nil, err
	}

	summary := &models.PortfolioSummary{}
	var arrearsLoans []*models.Loan
	for _, loan := range loans {
		summary.TotalPrincipal += loan.Principal
		summary.TotalInterest += loan.InterestPending
		summary.TotalArrears += loan.Arrears
		if loan.Status == models.LoanStatusArrears {
			summary.ArrearsLoans++
			arrearsLoans = append(arrearsLoans, loan)
		} else {
			summary.ActiveLoans++
		}
	}
	return summary, arrearsLoans, nil
}
