package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client is a borrower's expediente: identity, work, co-signer, references
// and declared collateral
type Client struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FullName     string             `json:"fullName" bson:"fullName"`
	NationalID   string             `json:"nationalId" bson:"nationalId"`
	BirthDate    string             `json:"birthDate,omitempty" bson:"birthDate,omitempty"`
	BirthPlace   string             `json:"birthPlace,omitempty" bson:"birthPlace,omitempty"`
	Gender       string             `json:"gender,omitempty" bson:"gender,omitempty"`
	CivilStatus  string             `json:"civilStatus,omitempty" bson:"civilStatus,omitempty"`
	Phone        string             `json:"phone" bson:"phone"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	Address      string             `json:"address,omitempty" bson:"address,omitempty"`
	Nationality  string             `json:"nationality,omitempty" bson:"nationality,omitempty"`
	RegisteredAt time.Time          `json:"registeredAt" bson:"registeredAt"`

	Work       *WorkInfo       `json:"work,omitempty" bson:"work,omitempty"`
	CoSigner   *CoSigner       `json:"coSigner,omitempty" bson:"coSigner,omitempty"`
	References []Reference     `json:"references,omitempty" bson:"references,omitempty"`
	Guarantee  *Guarantee      `json:"guarantee,omitempty" bson:"guarantee,omitempty"`
	DigitalKYC *DigitalAudit   `json:"digitalAudit,omitempty" bson:"digitalAudit,omitempty"`
	Profiles   []LinkedProfile `json:"profiles,omitempty" bson:"profiles,omitempty"`
}

// WorkInfo is the client's employment section
type WorkInfo struct {
	Occupation string  `json:"occupation,omitempty" bson:"occupation,omitempty"`
	Company    string  `json:"company,omitempty" bson:"company,omitempty"`
	Salary     float64 `json:"salary,omitempty" bson:"salary,omitempty"`
	Phone      string  `json:"phone,omitempty" bson:"phone,omitempty"`
}

// CoSigner is the solidario co-signer on the expediente
type CoSigner struct {
	FullName      string `json:"fullName,omitempty" bson:"fullName,omitempty"`
	NationalID    string `json:"nationalId,omitempty" bson:"nationalId,omitempty"`
	Phone         string `json:"phone,omitempty" bson:"phone,omitempty"`
	WorkReference string `json:"workReference,omitempty" bson:"workReference,omitempty"`
}

// Reference is a personal reference contact
type Reference struct {
	FullName string `json:"fullName" bson:"fullName"`
	Phone    string `json:"phone" bson:"phone"`
}

// DigitalAudit stores the last username-presence search run for the client
type DigitalAudit struct {
	Username string       `json:"username" bson:"username"`
	Date     time.Time    `json:"date" bson:"date"`
	Total    int          `json:"total" bson:"total"`
	Profiles []ProfileHit `json:"profiles,omitempty" bson:"profiles,omitempty"`
}

// LinkedProfile is a social profile an operator linked to the expediente
type LinkedProfile struct {
	Platform string    `json:"platform" bson:"platform"`
	URL      string    `json:"url" bson:"url"`
	LinkedAt time.Time `json:"linkedAt" bson:"linkedAt"`
}

// ClientDocument is document metadata only; the binary lives in external
// storage and is referenced by Path
type ClientDocument struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ClientID   primitive.ObjectID `json:"clientId" bson:"clientId"`
	Name       string             `json:"name" bson:"name"`
	Type       string             `json:"type" bson:"type"`
	Path       string             `json:"path,omitempty" bson:"path,omitempty"`
	URL        string             `json:"url,omitempty" bson:"url,omitempty"`
	UploadedAt time.Time          `json:"uploadedAt" bson:"uploadedAt"`
}

// CreateClientRequest is the intake payload. An initial loan can be
// originated in the same request.
type CreateClientRequest struct {
	FullName    string      `json:"fullName" validate:"required"`
	NationalID  string      `json:"nationalId" validate:"required"`
	BirthDate   string      `json:"birthDate"`
	BirthPlace  string      `json:"birthPlace"`
	Gender      string      `json:"gender"`
	CivilStatus string      `json:"civilStatus"`
	Phone       string      `json:"phone" validate:"required"`
	Email       string      `json:"email" validate:"omitempty,email"`
	Address     string      `json:"address"`
	Nationality string      `json:"nationality"`
	Work        *WorkInfo   `json:"work"`
	CoSigner    *CoSigner   `json:"coSigner"`
	References  []Reference `json:"references"`
	Guarantee   *Guarantee  `json:"guarantee"`

	InitialLoan *InitialLoanRequest `json:"initialLoan"`
}

// InitialLoanRequest originates a first loan together with the expediente
type InitialLoanRequest struct {
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	Rate             float64 `json:"rate" validate:"required,gt=0"`
	RatePeriod       string  `json:"ratePeriod" validate:"omitempty,oneof=monthly annual"`
	Method           string  `json:"method" validate:"required,oneof=INTEREST_ONLY PRINCIPAL_REDUCING"`
	PaymentFrequency string  `json:"paymentFrequency" validate:"omitempty,oneof=monthly biweekly weekly"`
	Guarantee        string  `json:"guarantee"`
	ReferrerID       string  `json:"referrerId"`
}

// LinkProfileRequest attaches a social profile hit to the expediente
type LinkProfileRequest struct {
	Platform string `json:"platform" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
}
