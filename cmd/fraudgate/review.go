package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fraudgate/fraudgate/internal/adapter/litellm"
	"github.com/fraudgate/fraudgate/internal/adapter/postgres"
	"github.com/fraudgate/fraudgate/internal/config"
	"github.com/fraudgate/fraudgate/internal/domain/review"
	"github.com/fraudgate/fraudgate/internal/domain/transaction"
	"github.com/fraudgate/fraudgate/internal/logger"
	"github.com/fraudgate/fraudgate/internal/port/capability"
	"github.com/fraudgate/fraudgate/internal/service"
)

// runReview drives a review session from the terminal: the transaction comes
// from a JSON file, reviewer messages from stdin, and the session transcript
// is echoed as it grows.
func runReview(args []string) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	file := fs.String("file", "", "path to the transaction JSON (default: read from stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tx, err := readTransaction(*file)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	litellm.Register()
	caps, err := capability.New(cfg.Capabilities.Backend, capabilityConfig(cfg))
	if err != nil {
		return fmt.Errorf("capabilities: %w", err)
	}

	store := postgres.NewStore(pool)
	gateway := service.NewGatewayService(caps.MLScorer, caps.RuleScorer, cfg.Capabilities.AssessTimeout, nil)
	tools := service.NewToolsService(store, nil, 0, nil)
	decider := service.NewDecisionService(caps.Decider, cfg.Capabilities.DecideTimeout)
	explainer := service.NewExplanationService(caps.Explainer, cfg.Capabilities.ExplainTimeout)
	sessions := service.NewSessionService(caps.Dialogue, tools, store, &terminalEcho{}, nil)
	orch := service.NewOrchestrator(gateway, decider, explainer, sessions, store, nil, nil)

	fmt.Fprintf(os.Stderr, "Opening review for transaction %s...\n", tx.ID)

	res, err := orch.InteractiveReview(ctx, tx, &stdinInput{scanner: bufio.NewScanner(os.Stdin)})
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nFinal decision: %s (result id %s)\n", res.FinalDecision, res.ID)
	return nil
}

func readTransaction(path string) (*transaction.Transaction, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction: %w", err)
	}

	var tx transaction.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("parse transaction: %w", err)
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}
	return &tx, nil
}

// stdinInput feeds reviewer messages from the terminal. An empty line is
// skipped; EOF (Ctrl-D) ends the review.
type stdinInput struct {
	scanner *bufio.Scanner
}

func (in *stdinInput) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprint(os.Stderr, "reviewer> ")
		}
		if !in.scanner.Scan() {
			if err := in.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		line := strings.TrimSpace(in.scanner.Text())
		if line != "" {
			return line, nil
		}
	}
}

// terminalEcho implements the broadcast port by printing session events to
// the terminal as they happen.
type terminalEcho struct{}

func (terminalEcho) BroadcastEvent(_ context.Context, eventType string, payload any) {
	switch eventType {
	case service.EventSessionMessage:
		if msg, ok := payload.(review.Message); ok {
			if msg.Speaker == review.SpeakerReviewer {
				return // already visible, the reviewer just typed it
			}
			fmt.Printf("%s: %s\n", msg.Speaker, msg.Content)
		}
	case service.EventSessionClosed:
		if sess, ok := payload.(*review.Session); ok {
			fmt.Fprintf(os.Stderr, "session closed: %s\n", sess.Status)
		}
	}
}
