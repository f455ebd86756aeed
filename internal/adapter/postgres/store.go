package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/lookup"
	"github.com/fraudgate/fraudgate/internal/port/resultstore"
)

// Store implements the lookup.Store and resultstore.Store ports on pgx.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// historyLimit bounds the transaction-history lookup; reviewers only need
// recent behavior.
const historyLimit = 20

// TransactionHistory returns the account's most recent transactions.
func (s *Store) TransactionHistory(ctx context.Context, accountID string) ([]lookup.TransactionSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transaction_id, amount, occurred_at, receiver_account, description
		FROM account_transactions
		WHERE account_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, accountID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("query transaction history: %w", err)
	}
	defer rows.Close()

	var out []lookup.TransactionSummary
	for rows.Next() {
		var ts lookup.TransactionSummary
		if err := rows.Scan(&ts.TransactionID, &ts.Amount, &ts.Timestamp, &ts.ReceiverAccount, &ts.Description); err != nil {
			return nil, fmt.Errorf("scan transaction history: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// UserProfile returns the account profile with its risk aggregates.
func (s *Store) UserProfile(ctx context.Context, accountID string) (*lookup.UserProfile, error) {
	var p lookup.UserProfile
	err := s.pool.QueryRow(ctx, `
		SELECT account_id, account_age_days, account_type, risk_score,
		       average_amount, monthly_frequency, previous_flags,
		       typical_countries, typical_receivers
		FROM user_profiles
		WHERE account_id = $1`, accountID).Scan(
		&p.AccountID, &p.AccountAgeDays, &p.AccountType, &p.RiskScore,
		&p.AverageAmount, &p.MonthlyFrequency, &p.PreviousFlags,
		&p.TypicalCountries, &p.TypicalReceivers,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", accountID, resultstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user profile: %w", err)
	}
	return &p, nil
}

// SimilarFraudCases ranks historical cases by feature overlap with the
// current case and returns them most-similar first.
func (s *Store) SimilarFraudCases(ctx context.Context, featuresJSON string) ([]lookup.FraudCase, error) {
	var features map[string]bool
	if err := json.Unmarshal([]byte(featuresJSON), &features); err != nil {
		return nil, fmt.Errorf("parse case features: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT case_id, features, outcome FROM fraud_cases`)
	if err != nil {
		return nil, fmt.Errorf("query fraud cases: %w", err)
	}
	defer rows.Close()

	var out []lookup.FraudCase
	for rows.Next() {
		var (
			fc  lookup.FraudCase
			doc []byte
		)
		if err := rows.Scan(&fc.CaseID, &doc, &fc.Outcome); err != nil {
			return nil, fmt.Errorf("scan fraud case: %w", err)
		}
		if err := json.Unmarshal(doc, &fc.Features); err != nil {
			return nil, fmt.Errorf("decode case %s features: %w", fc.CaseID, err)
		}
		fc.SimilarityScore = similarity(features, fc.Features)
		out = append(out, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore > out[j].SimilarityScore
	})
	return out, nil
}

// similarity is the fraction of feature keys on which both cases agree,
// over the union of their keys.
func similarity(a, b map[string]bool) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	agree := 0
	for k := range union {
		av, aok := a[k]
		bv, bok := b[k]
		if aok && bok && av == bv {
			agree++
		}
	}
	return float64(agree) / float64(len(union))
}

// SaveResult upserts a process result as a JSONB document.
func (s *Store) SaveResult(ctx context.Context, res *workflow.ProcessResult) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO process_results (id, document, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document`,
		res.ID, doc, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// GetResult loads a process result by ID.
func (s *Store) GetResult(ctx context.Context, id string) (*workflow.ProcessResult, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM process_results WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, resultstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	var res workflow.ProcessResult
	if err := json.Unmarshal(doc, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// SaveSession upserts a review session snapshot.
func (s *Store) SaveSession(ctx context.Context, sess *review.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO review_sessions (id, status, document, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status,
			document = EXCLUDED.document, updated_at = now()`,
		sess.ID, string(sess.Status), doc)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession loads a review session snapshot by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*review.Session, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM review_sessions WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, resultstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess review.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// CreateReviewer inserts a reviewer account.
func (s *Store) CreateReviewer(ctx context.Context, r *resultstore.Reviewer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviewers (id, email, name, key_hash, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.Email, r.Name, r.KeyHash, r.Enabled, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}
	return nil
}

// GetReviewerByEmail loads a reviewer account by email.
func (s *Store) GetReviewerByEmail(ctx context.Context, email string) (*resultstore.Reviewer, error) {
	var r resultstore.Reviewer
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, key_hash, enabled, created_at
		FROM reviewers WHERE email = $1`, email).Scan(
		&r.ID, &r.Email, &r.Name, &r.KeyHash, &r.Enabled, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reviewer %s: %w", email, resultstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reviewer: %w", err)
	}
	return &r, nil
}

// ListReviewers returns all reviewer accounts.
func (s *Store) ListReviewers(ctx context.Context) ([]resultstore.Reviewer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, name, key_hash, enabled, created_at
		FROM reviewers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	defer rows.Close()

	var out []resultstore.Reviewer
	for rows.Next() {
		var r resultstore.Reviewer
		if err := rows.Scan(&r.ID, &r.Email, &r.Name, &r.KeyHash, &r.Enabled, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reviewer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
