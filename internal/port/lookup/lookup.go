// Package lookup defines the port for the read-only case-data lookups backing
// the review tools. Implementations must be safe for concurrent use and free
// of side effects on transactions or sessions.
package lookup

import (
	"context"
	"time"
)

// TransactionSummary is one row of a user's recent transaction history.
type TransactionSummary struct {
	TransactionID   string    `json:"transaction_id"`
	Amount          float64   `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
	ReceiverAccount string    `json:"receiver_account"`
	Description     string    `json:"description,omitempty"`
}

// UserProfile is the account profile with its risk aggregates.
type UserProfile struct {
	AccountID        string   `json:"account_id"`
	AccountAgeDays   int      `json:"account_age_days"`
	AccountType      string   `json:"account_type"`
	RiskScore        float64  `json:"risk_score"`
	AverageAmount    float64  `json:"average_transaction_amount"`
	MonthlyFrequency float64  `json:"transaction_frequency"`
	PreviousFlags    int      `json:"previous_flags"`
	TypicalCountries []string `json:"typical_countries"`
	TypicalReceivers []string `json:"typical_receivers"`
}

// FraudCase is a historical case similar to the one under review.
type FraudCase struct {
	CaseID          string          `json:"case_id"`
	SimilarityScore float64         `json:"similarity_score"`
	Features        map[string]bool `json:"features"`
	Outcome         string          `json:"outcome"` // confirmed_fraud | false_positive
}

// Store is the read-only data source behind the review tools.
type Store interface {
	TransactionHistory(ctx context.Context, accountID string) ([]TransactionSummary, error)
	UserProfile(ctx context.Context, accountID string) (*UserProfile, error)
	SimilarFraudCases(ctx context.Context, featuresJSON string) ([]FraudCase, error)
}
