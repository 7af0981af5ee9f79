package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission policy types
const (
	CommissionTypePercentage  = "PERCENTAGE"
	CommissionTypeFlatOneTime = "FLAT_ONE_TIME"
)

// Commission record statuses
const (
	CommissionStatusPending = "PENDING"
	CommissionStatusPaid    = "PAID"
)

// Referrer is a third party who sourced loans and earns a commission on them
type Referrer struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FullName        string             `json:"fullName" bson:"fullName"`
	Phone           string             `json:"phone,omitempty" bson:"phone,omitempty"`
	CommissionType  string             `json:"commissionType" bson:"commissionType"`
	CommissionValue float64            `json:"commissionValue" bson:"commissionValue"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}

// Commission is an append-only commission ledger entry
type Commission struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ReferrerID primitive.ObjectID `json:"referrerId" bson:"referrerId"`
	LoanID     primitive.ObjectID `json:"loanId" bson:"loanId"`
	Amount     float64            `json:"amount" bson:"amount"`
	Date       time.Time          `json:"date" bson:"date"`
	Status     string             `json:"status" bson:"status"`
	PaidAt     *time.Time         `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// CreateReferrerRequest is the payload for registering a referrer
type CreateReferrerRequest struct {
	FullName        string  `json:"fullName" validate:"required"`
	Phone           string  `json:"phone"`
	CommissionType  string  `json:"commissionType" validate:"required,oneof=PERCENTAGE FLAT_ONE_TIME"`
	CommissionValue float64 `json:"commissionValue" validate:"required,gt=0"`
}
