package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fraudgate/fraudgate/internal/adapter/otel"
	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/workflow"
	"github.com/fraudgate/fraudgate/internal/port/cache"
	"github.com/fraudgate/fraudgate/internal/port/capability"
	"github.com/fraudgate/fraudgate/internal/port/lookup"
)

// Review tool names. The set is fixed at construction; the dialogue
// collaborator may only call what Descriptors advertises.
const (
	ToolTransactionHistory = "get_user_transaction_history"
	ToolUserProfile        = "get_user_profile"
	ToolSimilarFraudCases  = "get_similar_fraud_cases"
)

// toolSpec is one registered tool: its descriptor plus the dispatch function.
type toolSpec struct {
	descriptor capability.ToolDescriptor
	dispatch   func(ctx context.Context, args map[string]string) (any, error)
}

// ToolsService validates and dispatches the read-only lookups available to a
// review session. Lookups are side-effect free, so payloads are cached in
// front of the store. The registry holds no mutable state after construction
// and is safe for concurrent dispatch.
type ToolsService struct {
	tools    map[string]toolSpec
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *otel.Metrics
}

// NewToolsService builds the registry over the given lookup store.
func NewToolsService(store lookup.Store, c cache.Cache, cacheTTL time.Duration, metrics *otel.Metrics) *ToolsService {
	s := &ToolsService{
		tools:    make(map[string]toolSpec),
		cache:    c,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}

	s.tools[ToolTransactionHistory] = toolSpec{
		descriptor: capability.ToolDescriptor{
			Name:        ToolTransactionHistory,
			Description: "Recent transaction history for an account, newest first.",
			Arguments:   map[string]string{"account_id": "Account identifier (IBAN or internal ID)."},
			Required:    []string{"account_id"},
		},
		dispatch: func(ctx context.Context, args map[string]string) (any, error) {
			return store.TransactionHistory(ctx, args["account_id"])
		},
	}
	s.tools[ToolUserProfile] = toolSpec{
		descriptor: capability.ToolDescriptor{
			Name:        ToolUserProfile,
			Description: "Account profile with risk aggregates and typical behavior.",
			Arguments:   map[string]string{"account_id": "Account identifier (IBAN or internal ID)."},
			Required:    []string{"account_id"},
		},
		dispatch: func(ctx context.Context, args map[string]string) (any, error) {
			return store.UserProfile(ctx, args["account_id"])
		},
	}
	s.tools[ToolSimilarFraudCases] = toolSpec{
		descriptor: capability.ToolDescriptor{
			Name:        ToolSimilarFraudCases,
			Description: "Historical fraud cases ranked by feature similarity to the current case.",
			Arguments:   map[string]string{"case_features": "JSON object of boolean case features."},
			Required:    []string{"case_features"},
		},
		dispatch: func(ctx context.Context, args map[string]string) (any, error) {
			return store.SimilarFraudCases(ctx, args["case_features"])
		},
	}
	return s
}

// Descriptors lists the advertised tools in stable name order.
func (s *ToolsService) Descriptors() []capability.ToolDescriptor {
	out := make([]capability.ToolDescriptor, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates and dispatches one tool call, returning the serialized
// payload. Unknown names and argument-schema violations come back as tagged
// faults the session reports to the collaborator without aborting.
func (s *ToolsService) Invoke(ctx context.Context, call review.ToolCall) (string, error) {
	ctx, span := otel.StartToolCallSpan(ctx, call.ID, call.Name)
	defer span.End()

	if s.metrics != nil {
		s.metrics.ToolCalls.Add(ctx, 1)
	}

	tool, ok := s.tools[call.Name]
	if !ok {
		return "", workflow.NewFault(workflow.KindUnknownTool, call.Name,
			fmt.Errorf("tool %q is not registered", call.Name))
	}
	if err := validateArguments(tool.descriptor, call.Arguments); err != nil {
		return "", workflow.NewFault(workflow.KindInvalidArguments, call.Name, err)
	}

	key := cacheKey(call.Name, call.Arguments)
	if s.cache != nil {
		if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
			return string(data), nil
		}
	}

	val, err := tool.dispatch(ctx, call.Arguments)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", call.Name, err)
	}
	payload, err := json.Marshal(val)
	if err != nil {
		return "", fmt.Errorf("tool %s: encode payload: %w", call.Name, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			slog.Warn("lookup cache set failed", "tool", call.Name, "error", err)
		}
	}
	return string(payload), nil
}

// Execute wraps Invoke into the ToolResult handed back to the session. Tool
// failures are data for the collaborator, not workflow aborts.
func (s *ToolsService) Execute(ctx context.Context, call review.ToolCall) review.ToolResult {
	payload, err := s.Invoke(ctx, call)
	if err != nil {
		return review.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Payload: fmt.Sprintf("tool call failed: %v", err),
			IsError: true,
		}
	}
	return review.ToolResult{CallID: call.ID, Name: call.Name, Payload: payload}
}

// validateArguments enforces presence of required arguments and rejects
// arguments outside the declared schema.
func validateArguments(desc capability.ToolDescriptor, args map[string]string) error {
	for _, req := range desc.Required {
		if v, ok := args[req]; !ok || v == "" {
			return fmt.Errorf("missing required argument %q", req)
		}
	}
	for name := range args {
		if _, ok := desc.Arguments[name]; !ok {
			return fmt.Errorf("unexpected argument %q", name)
		}
	}
	return nil
}

// cacheKey builds a deterministic key from the tool name and its arguments.
func cacheKey(name string, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("tool:")
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(args[k])
	}
	return b.String()
}
