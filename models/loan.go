package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Loan status values. Status is always derived from the balances:
// principal <= 0 means PAID_OFF regardless of arrears, otherwise
// arrears > 0 means ARREARS.
const (
	LoanStatusActive  = "ACTIVE"
	LoanStatusArrears = "ARREARS"
	LoanStatusPaidOff = "PAID_OFF"
)

// Amortization methods. INTEREST_ONLY keeps the principal fixed until the
// borrower explicitly pays it down; PRINCIPAL_REDUCING sends every surplus
// payment to principal.
const (
	MethodInterestOnly      = "INTEREST_ONLY"
	MethodPrincipalReducing = "PRINCIPAL_REDUCING"
)

// Payment frequencies supported at origination
const (
	FrequencyMonthly  = "monthly"
	FrequencyBiweekly = "biweekly"
	FrequencyWeekly   = "weekly"
)

// Loan represents one extended credit. Balances intentionally omit
// "omitempty" so zero values are written explicitly; legacy records missing
// a balance decode to zero, which is the documented default.
type Loan struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ClientID   primitive.ObjectID `json:"clientId" bson:"clientId"`
	ClientName string             `json:"clientName" bson:"clientName"`

	Principal       float64 `json:"principal" bson:"principal"`
	InterestPending float64 `json:"interestPending" bson:"interestPending"`
	Arrears         float64 `json:"arrears" bson:"arrears"`
	ArrearsEditable bool    `json:"arrearsEditable" bson:"arrearsEditable"`

	Method           string     `json:"method" bson:"method"`
	MonthlyRate      float64    `json:"monthlyRate" bson:"monthlyRate"`
	PaymentFrequency string     `json:"paymentFrequency" bson:"paymentFrequency"`
	TermMonths       int        `json:"termMonths" bson:"termMonths"`
	NextDueDate      *time.Time `json:"nextDueDate,omitempty" bson:"nextDueDate,omitempty"`

	Status string `json:"status" bson:"status"`

	Guarantee     *Guarantee `json:"guarantee,omitempty" bson:"guarantee,omitempty"`
	GuarantorName string     `json:"guarantorName,omitempty" bson:"guarantorName,omitempty"`

	ReferrerID     *primitive.ObjectID `json:"referrerId,omitempty" bson:"referrerId,omitempty"`
	CommissionPaid bool                `json:"commissionPaid" bson:"commissionPaid"`

	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	LastPaymentAt *time.Time `json:"lastPaymentAt,omitempty" bson:"lastPaymentAt,omitempty"`

	// Version guards the read-modify-write cycle of payment allocation.
	// Every committed balance change increments it.
	Version int64 `json:"-" bson:"version"`
}

// Guarantee holds the collateral declared for a loan
type Guarantee struct {
	Type           string   `json:"type" bson:"type"`
	Description    string   `json:"description" bson:"description"`
	EstimatedValue float64  `json:"estimatedValue,omitempty" bson:"estimatedValue,omitempty"`
	Photos         []string `json:"photos,omitempty" bson:"photos,omitempty"`
}

// TotalDue is the amount that settles the loan in full today
func (l *Loan) TotalDue() float64 {
	return l.Principal + l.InterestPending + l.Arrears
}

// CreateLoanRequest is the origination payload
type CreateLoanRequest struct {
	ClientID         string  `json:"clientId" validate:"required"`
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	Rate             float64 `json:"rate" validate:"required,gt=0"`
	RatePeriod       string  `json:"ratePeriod" validate:"omitempty,oneof=monthly annual"`
	Method           string  `json:"method" validate:"required,oneof=INTEREST_ONLY PRINCIPAL_REDUCING"`
	PaymentFrequency string  `json:"paymentFrequency" validate:"omitempty,oneof=monthly biweekly weekly"`
	TermMonths       int     `json:"termMonths"`
	Guarantee        string  `json:"guarantee"`
	GuarantorName    string  `json:"guarantorName"`
	ReferrerID       string  `json:"referrerId"`
}

// UpdateArrearsRequest is the operator adjustment payload. Only loans the
// arrears job has flagged as editable accept it.
type UpdateArrearsRequest struct {
	Arrears float64 `json:"arrears" validate:"gte=0"`
}

// PaymentRequest is the payload for processing a payment against a loan
type PaymentRequest struct {
	Amount             float64  `json:"amount" validate:"required,gt=0"`
	ApplySurplus       bool     `json:"applySurplusToPrincipal"`
	PaymentType        string   `json:"paymentType"`
	NotifyEmail        string   `json:"notifyEmail,omitempty" validate:"omitempty,email"`
	NotifyDeviceTokens []string `json:"notifyDeviceTokens,omitempty"`
}

// PaymentResult is returned to the caller after a successful allocation
type PaymentResult struct {
	Success       bool    `json:"success"`
	ReceiptNo     string  `json:"receiptNo"`
	NewBalance    float64 `json:"newBalance"`
	ArrearsPaid   float64 `json:"arrearsPaid"`
	InterestPaid  float64 `json:"interestPaid"`
	PrincipalPaid float64 `json:"principalPaid"`
	Unapplied     float64 `json:"unapplied"`
	Status        string  `json:"status"`
}

// PortfolioSummary backs the dashboard cards that used to be computed
// client-side from a realtime snapshot
type PortfolioSummary struct {
	TotalPrincipal float64 `json:"totalPrincipal"`
	TotalInterest  float64 `json:"totalInterest"`
	TotalArrears   float64 `json:"totalArrears"`
	ActiveLoans    int     `json:"activeLoans"`
	ArrearsLoans   int     `json:"arrearsLoans"`
}

// Statement is the structured account-statement payload; rendering it to
// PDF happens outside this service
type Statement struct {
	LoanID          string     `json:"loanId"`
	ClientName      string     `json:"clientName"`
	Method          string     `json:"method"`
	Principal       float64    `json:"principal"`
	InterestPending float64    `json:"interestPending"`
	Arrears         float64    `json:"arrears"`
	TotalDueToday   float64    `json:"totalDueToday"`
	NextDueDate     *time.Time `json:"nextDueDate,omitempty"`
	Status          string     `json:"status"`
	GeneratedAt     time.Time  `json:"generatedAt"`
}
