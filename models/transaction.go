package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Breakdown records how a payment was split across the waterfall
type Breakdown struct {
	Arrears   float64 `json:"arrears" bson:"arrears"`
	Interest  float64 `json:"interest" bson:"interest"`
	Principal float64 `json:"principal" bson:"principal"`
}

// Transaction is an immutable ledger entry, written exactly once per
// successful payment allocation in the same atomic unit as the loan update.
// Never updated or deleted.
type Transaction struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	LoanID    primitive.ObjectID `json:"loanId" bson:"loanId"`
	ReceiptNo string             `json:"receiptNo" bson:"receiptNo"`
	Date      time.Time          `json:"date" bson:"date"`
	Amount    float64            `json:"amount" bson:"amount"`
	Breakdown Breakdown          `json:"breakdown" bson:"breakdown"`
	// Unapplied is the part of the payment no waterfall step absorbed
	// (interest-only loan with surplus disallowed, or payment past full
	// payoff). It is not credited anywhere; recording it here keeps the
	// ledger honest about the full amount received.
	Unapplied   float64 `json:"unapplied" bson:"unapplied"`
	NewBalance  float64 `json:"newBalance" bson:"newBalance"`
	PaymentType string  `json:"paymentType,omitempty" bson:"paymentType,omitempty"`
}
