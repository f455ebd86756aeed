package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/port/capability"
)

// scorer implements capability.Scorer for one model + prompt pair.
type scorer struct {
	name   string
	client *Client
	model  string
	prompt string
}

func (s *scorer) Name() string { return s.name }

func (s *scorer) Score(ctx context.Context, req capability.ScoreRequest) ([]byte, error) {
	tx, err := json.Marshal(req.Transaction)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}

	resp, err := s.client.complete(ctx, chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: s.prompt},
			{Role: "user", Content: "Assess the following transaction:\n" + string(tx)},
		},
		Format: jsonObjectFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return []byte(stripFences(resp.Choices[0].Message.Content)), nil
}

// decider implements capability.DecisionMaker.
type decider struct {
	client *Client
	model  string
}

func (d *decider) Name() string { return "decision_maker" }

func (d *decider) Decide(ctx context.Context, req capability.DecideRequest) ([]byte, error) {
	resp, err := d.client.complete(ctx, chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: decisionPrompt},
			{Role: "user", Content: caseDossier("Decide this realtime transfer:", req)},
		},
		Format: jsonObjectFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}
	return []byte(stripFences(resp.Choices[0].Message.Content)), nil
}

// explainer implements capability.Explainer.
type explainer struct {
	client *Client
	model  string
}

func (e *explainer) Name() string { return "explainer" }

func (e *explainer) Explain(ctx context.Context, req capability.DecideRequest) (string, error) {
	resp, err := e.client.complete(ctx, chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: explainPrompt},
			{Role: "user", Content: caseDossier("Explain why the following transaction looks suspicious:", req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", e.Name(), err)
	}
	return resp.Choices[0].Message.Content, nil
}

// dialogue implements capability.Dialogue with tool calling.
type dialogue struct {
	client *Client
	model  string
}

func (d *dialogue) Name() string { return "dialogue" }

func (d *dialogue) Converse(ctx context.Context, transcript []review.Message, tools []capability.ToolDescriptor) (*capability.Reply, error) {
	msgs := make([]chatMessage, 0, len(transcript)+1)
	msgs = append(msgs, chatMessage{Role: "system", Content: dialoguePrompt})
	for _, m := range transcript {
		msgs = append(msgs, toChatMessage(m))
	}

	resp, err := d.client.complete(ctx, chatRequest{
		Model:    d.model,
		Messages: msgs,
		Tools:    toToolDefs(tools),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return &capability.Reply{Text: msg.Content}, nil
	}

	calls := make([]review.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%s: tool call %s: %w", d.Name(), tc.Function.Name, err)
		}
		calls = append(calls, review.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	// Text accompanying a tool batch is reviewer-visible reasoning; carry it.
	return &capability.Reply{Text: msg.Content, ToolCalls: calls}, nil
}

// toChatMessage flattens a transcript entry into a chat role. Tool payloads
// are replayed as user-visible context; the session transcript does not keep
// per-provider tool call IDs.
func toChatMessage(m review.Message) chatMessage {
	switch m.Speaker {
	case review.SpeakerSystem:
		return chatMessage{Role: "system", Content: m.Content}
	case review.SpeakerAgent:
		return chatMessage{Role: "assistant", Content: m.Content}
	case review.SpeakerTool:
		return chatMessage{Role: "user", Content: "Tool result:\n" + m.Content}
	default:
		return chatMessage{Role: "user", Content: m.Content}
	}
}

func toToolDefs(tools []capability.ToolDescriptor) []toolDef {
	defs := make([]toolDef, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]any, len(t.Arguments))
		for arg, desc := range t.Arguments {
			props[arg] = map[string]any{"type": "string", "description": desc}
		}
		defs = append(defs, toolDef{
			Type: "function",
			Function: toolDefFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": props,
					"required":   t.Required,
				},
			},
		})
	}
	return defs
}

func parseArguments(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}
	var anyArgs map[string]any
	if err := json.Unmarshal([]byte(raw), &anyArgs); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	args := make(map[string]string, len(anyArgs))
	for k, v := range anyArgs {
		switch val := v.(type) {
		case string:
			args[k] = val
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("encode argument %s: %w", k, err)
			}
			args[k] = string(b)
		}
	}
	return args, nil
}

// caseDossier serializes the transaction and both assessments for a prompt.
func caseDossier(header string, req capability.DecideRequest) string {
	tx, _ := json.MarshalIndent(req.Transaction, "", "  ")
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\nTransaction:\n")
	b.Write(tx)
	b.WriteString("\n\nML assessment:\n")
	b.Write(req.MLAssessment)
	b.WriteString("\n\nRule assessment:\n")
	b.Write(req.RuleAssessment)
	return b.String()
}

// stripFences removes a markdown code fence if the model wrapped its JSON in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
