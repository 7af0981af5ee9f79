package models

// Document types the OCR extraction accepts
const (
	DocTypeIdentity   = "identity"
	DocTypeCollateral = "collateral"
)

// Risk levels returned by the risk-profile generation
const (
	RiskLevelLow           = "LOW"
	RiskLevelMedium        = "MEDIUM"
	RiskLevelHigh          = "HIGH"
	RiskLevelIndeterminate = "INDETERMINATE"
)

// ScanDocumentRequest carries a base64 image to the OCR extraction
type ScanDocumentRequest struct {
	Image    string `json:"image" validate:"required"`
	DocType  string `json:"docType" validate:"required,oneof=identity collateral"`
	MimeType string `json:"mimeType" validate:"required"`
}

// ScanDocumentResult is the flat field mapping extracted from a document
type ScanDocumentResult struct {
	Fields map[string]interface{} `json:"fields"`
}

// RiskAuditRequest asks for a risk profile on a person
type RiskAuditRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	NationalID string `json:"nationalId"`
}

// ProfileGuess is a candidate social profile for the audited person
type ProfileGuess struct {
	Platform            string `json:"platform"`
	URL                 string `json:"url"`
	HighConfidenceMatch bool   `json:"highConfidenceMatch"`
}

// RiskProfile is the structured risk summary. On total generation failure
// the service returns RiskLevelIndeterminate with the raw text as summary
// rather than an error.
type RiskProfile struct {
	RiskSummary string         `json:"riskSummary"`
	RiskLevel   string         `json:"riskLevel"`
	Profiles    []ProfileGuess `json:"profiles,omitempty"`
	KeyFindings []string       `json:"keyFindings,omitempty"`
	Source      string         `json:"source,omitempty"`
}

// UsernameSearchRequest asks for a username-presence sweep
type UsernameSearchRequest struct {
	Username string `json:"username" validate:"required"`
}

// ProfileHit is one platform where the username was found
type ProfileHit struct {
	Platform     string  `json:"platform" bson:"platform"`
	URL          string  `json:"url" bson:"url"`
	ResponseTime float64 `json:"responseTime,omitempty" bson:"responseTime,omitempty"`
}

// UsernameSearchResult is the completed sweep
type UsernameSearchResult struct {
	Username string       `json:"username"`
	Total    int          `json:"total"`
	Profiles []ProfileHit `json:"profiles"`
}
