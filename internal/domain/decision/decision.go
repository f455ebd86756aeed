// Package decision defines the auto-decision verdict for realtime transfers.
package decision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Outcome is the enumerated verdict of the decision collaborator.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDeclined Outcome = "declined"
)

// Decision is the structured verdict produced by the auto-decision stage.
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ErrParse wraps any deviation from the Decision schema. An unparseable
// decision must surface as an error, never default to an approval.
var ErrParse = errors.New("decision parse")

// Parse decodes and validates a collaborator response. The outcome is
// restricted to {approved, declined} and confidence to [0,1]; unknown fields
// and trailing content after the object are rejected so prose mixed into the
// payload cannot slip through.
func Parse(raw []byte) (*Decision, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var d Decision
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing content after decision object", ErrParse)
	}

	switch d.Outcome {
	case OutcomeApproved, OutcomeDeclined:
	default:
		return nil, fmt.Errorf("%w: outcome %q not in {approved, declined}", ErrParse, d.Outcome)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range [0,1]", ErrParse, d.Confidence)
	}
	return &d, nil
}
