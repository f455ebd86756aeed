package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/capability"
	"github.com/fraudgate/fraudgate/internal/port/lookup"
	"github.com/fraudgate/fraudgate/internal/port/resultstore"
)

// stubScorer returns canned bytes, optionally after a delay so timeout paths
// can be exercised.
type stubScorer struct {
	name  string
	raw   []byte
	err   error
	delay time.Duration
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(ctx context.Context, _ capability.ScoreRequest) ([]byte, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.raw, s.err
}

type stubDecider struct {
	raw   []byte
	err   error
	calls int
}

func (s *stubDecider) Name() string { return "stub-decider" }

func (s *stubDecider) Decide(context.Context, capability.DecideRequest) ([]byte, error) {
	s.calls++
	return s.raw, s.err
}

type stubExplainer struct {
	text  string
	err   error
	calls int
}

func (s *stubExplainer) Name() string { return "stub-explainer" }

func (s *stubExplainer) Explain(context.Context, capability.DecideRequest) (string, error) {
	s.calls++
	return s.text, s.err
}

// stubDialogue pops one canned reply per Converse call and repeats the last
// one when the script runs out.
type stubDialogue struct {
	replies []*capability.Reply
	calls   int
}

func (s *stubDialogue) Name() string { return "stub-dialogue" }

func (s *stubDialogue) Converse(_ context.Context, _ []review.Message, _ []capability.ToolDescriptor) (*capability.Reply, error) {
	s.calls++
	if len(s.replies) == 0 {
		return &capability.Reply{Text: "noted"}, nil
	}
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r, nil
}

// memLookup serves fixed lookup data.
type memLookup struct {
	history  []lookup.TransactionSummary
	profiles map[string]*lookup.UserProfile
	cases    []lookup.FraudCase
	err      error
}

func (m *memLookup) TransactionHistory(_ context.Context, _ string) ([]lookup.TransactionSummary, error) {
	return m.history, m.err
}

func (m *memLookup) UserProfile(_ context.Context, id string) (*lookup.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, resultstore.ErrNotFound
}

func (m *memLookup) SimilarFraudCases(_ context.Context, _ string) ([]lookup.FraudCase, error) {
	return m.cases, m.err
}

// memStore is an in-memory resultstore.Store.
type memStore struct {
	mu        sync.Mutex
	results   map[string]*workflow.ProcessResult
	sessions  map[string]*review.Session
	reviewers map[string]*resultstore.Reviewer
}

func newMemStore() *memStore {
	return &memStore{
		results:   make(map[string]*workflow.ProcessResult),
		sessions:  make(map[string]*review.Session),
		reviewers: make(map[string]*resultstore.Reviewer),
	}
}

func (m *memStore) SaveResult(_ context.Context, res *workflow.ProcessResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[res.ID] = res
	return nil
}

func (m *memStore) GetResult(_ context.Context, id string) (*workflow.ProcessResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.results[id]; ok {
		return res, nil
	}
	return nil, resultstore.ErrNotFound
}

func (m *memStore) SaveSession(_ context.Context, s *review.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*review.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, resultstore.ErrNotFound
}

func (m *memStore) CreateReviewer(_ context.Context, r *resultstore.Reviewer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviewers[r.Email] = r
	return nil
}

func (m *memStore) GetReviewerByEmail(_ context.Context, email string) (*resultstore.Reviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reviewers[email]; ok {
		return r, nil
	}
	return nil, resultstore.ErrNotFound
}

func (m *memStore) ListReviewers(_ context.Context) ([]resultstore.Reviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]resultstore.Reviewer, 0, len(m.reviewers))
	for _, r := range m.reviewers {
		out = append(out, *r)
	}
	return out, nil
}

// testTransaction builds a valid transaction for tests.
func testTransaction(realtime bool) *transaction.Transaction {
	return &transaction.Transaction{
		ID:              "t123456",
		SenderAccount:   "DE55500105173984217489",
		ReceiverAccount: "GB29NWBK60161331926819",
		Amount:          2500.00,
		Timestamp:       time.Date(2026, 3, 14, 2, 30, 0, 0, time.UTC),
		Description:     "urgent transfer",
		IsRealtime:      realtime,
	}
}

// mlJSON and ruleJSON build well-formed scorer payloads.
func mlJSON(prob, threshold float64) []byte {
	isFraud := "false"
	if prob >= threshold {
		isFraud = "true"
	}
	return []byte(`{"probability":` + ftoa(prob) + `,"threshold":` + ftoa(threshold) +
		`,"is_fraud":` + isFraud + `,"features":{"large_amount":true},"model_version":"v3"}`)
}

func ruleJSON(flagged bool) []byte {
	if flagged {
		return []byte(`{"is_flagged":true,"rules_triggered":["large_amount"],"version":"2026.1"}`)
	}
	return []byte(`{"is_flagged":false,"rules_triggered":[],"version":"2026.1"}`)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
