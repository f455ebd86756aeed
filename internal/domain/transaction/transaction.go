// Package transaction defines the bank transaction under review.
package transaction

import (
	"errors"
	"time"
)

// Transaction is the immutable record routed through the review pipeline.
// It is created by the caller and never mutated; the orchestrator invocation
// owns it for the lifetime of one workflow run.
type Transaction struct {
	ID              string    `json:"transaction_id"`
	SenderAccount   string    `json:"sender_account"`
	ReceiverAccount string    `json:"receiver_account"`
	Amount          float64   `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
	Description     string    `json:"description,omitempty"`
	IsRealtime      bool      `json:"is_realtime"`
}

// Validate checks the structural invariants callers must satisfy before
// a transaction enters the pipeline.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction_id is required")
	}
	if t.SenderAccount == "" {
		return errors.New("sender_account is required")
	}
	if t.ReceiverAccount == "" {
		return errors.New("receiver_account is required")
	}
	if t.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	return nil
}
