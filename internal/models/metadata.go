package models

// TokenConfidence grades how reliable a token estimate is.
type TokenConfidence string

const (
	ConfidenceHigh   TokenConfidence = "high"
	ConfidenceMedium TokenConfidence = "medium"
	ConfidenceLow    TokenConfidence = "low"
)

// TokenEstimate is a min/max token range for a prompt body.
type TokenEstimate struct {
	Min        int             `json:"min"`
	Max        int             `json:"max"`
	Confidence TokenConfidence `json:"confidence"`
}

// Metadata describes the model a prompt was written for.
// CreatedAt and UpdatedAt are ISO-8601 strings in UTC with millisecond precision.
type Metadata struct {
	Model         string        `json:"model"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
	TokenEstimate TokenEstimate `json:"tokenEstimate"`
}
