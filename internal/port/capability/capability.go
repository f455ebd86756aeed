// Package capability defines the ports for the opaque model-backed
// collaborators the pipeline calls: scorers, decision maker, explainer and
// the dialogue partner driving the interactive review.
package capability

import (
	"context"

	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
)

// ScoreRequest is the serialized input handed to a scorer.
type ScoreRequest struct {
	Transaction *transaction.Transaction
}

// Scorer produces a raw JSON assessment for a transaction. The caller owns
// schema validation; the scorer is an opaque collaborator.
type Scorer interface {
	// Name identifies the collaborator in faults and logs.
	Name() string
	// Score returns the raw assessment document.
	Score(ctx context.Context, req ScoreRequest) ([]byte, error)
}

// DecideRequest carries the assessed transaction to the decision maker.
type DecideRequest struct {
	Transaction    *transaction.Transaction
	MLAssessment   []byte // validated assessment, re-serialized
	RuleAssessment []byte
}

// DecisionMaker returns the raw structured verdict for a realtime transfer.
type DecisionMaker interface {
	Name() string
	Decide(ctx context.Context, req DecideRequest) ([]byte, error)
}

// Explainer produces a free-form natural-language explanation of why the
// transaction looks suspicious.
type Explainer interface {
	Name() string
	Explain(ctx context.Context, req DecideRequest) (string, error)
}

// ToolDescriptor advertises one lookup tool to the dialogue collaborator.
type ToolDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Arguments   map[string]string `json:"arguments"` // arg name -> description
	Required    []string          `json:"required"`
}

// Reply is one dialogue turn from the collaborator side: free text, a batch
// of tool calls, or both when the collaborator narrates before looking data up.
type Reply struct {
	Text      string
	ToolCalls []review.ToolCall
}

// Dialogue drives the collaborator side of the interactive review session.
type Dialogue interface {
	Name() string
	// Converse takes the running transcript and the advertised tools and
	// returns the next collaborator turn.
	Converse(ctx context.Context, transcript []review.Message, tools []ToolDescriptor) (*Reply, error)
}
