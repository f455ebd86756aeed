// Package resultstore defines the persistence port for workflow results,
// review sessions and reviewer accounts.
package resultstore

import (
	"context"
	"errors"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Reviewer is a human review-desk account authorized to drive sessions.
type Reviewer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	KeyHash   string    `json:"-"` // bcrypt hash of the API key
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists process results, closed review sessions and reviewers.
type Store interface {
	SaveResult(ctx context.Context, res *workflow.ProcessResult) error
	GetResult(ctx context.Context, id string) (*workflow.ProcessResult, error)

	SaveSession(ctx context.Context, s *review.Session) error
	GetSession(ctx context.Context, id string) (*review.Session, error)

	CreateReviewer(ctx context.Context, r *Reviewer) error
	GetReviewerByEmail(ctx context.Context, email string) (*Reviewer, error)
	ListReviewers(ctx context.Context) ([]Reviewer, error)
}
