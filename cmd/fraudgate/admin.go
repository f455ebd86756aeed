package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fraudgate/fraudgate/internal/adapter/postgres"
	"github.com/fraudgate/fraudgate/internal/config"
	"github.com/fraudgate/fraudgate/internal/service"
)

// runAdmin dispatches admin subcommands (create-reviewer, list-reviewers).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-reviewer":
		return runAdminCreateReviewer(args[1:])
	case "list-reviewers":
		return runAdminListReviewers(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: fraudgate admin <command> [options]

Commands:
  create-reviewer   Create a reviewer account and print its API key
  list-reviewers    List all reviewer accounts
  help              Show this help message

Examples:
  fraudgate admin create-reviewer --email jane@reviewdesk.example --name "Jane Doe"
  fraudgate admin list-reviewers
`)
}

func loadAdminDeps() (*service.AuthService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store)

	cleanup := func() {
		pool.Close()
	}
	return authSvc, cleanup, nil
}

func runAdminCreateReviewer(args []string) error {
	fs := flag.NewFlagSet("create-reviewer", flag.ContinueOnError)
	email := fs.String("email", "", "reviewer email address (required)")
	name := fs.String("name", "", "reviewer display name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	reviewer, key, err := authSvc.CreateReviewer(ctx, *email, *name)
	if err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reviewer created: %s (id=%s)\n", reviewer.Email, reviewer.ID)
	fmt.Fprintf(os.Stderr, "API key (shown once, store it now): %s\n", key)
	return nil
}

func runAdminListReviewers(args []string) error {
	fs := flag.NewFlagSet("list-reviewers", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	reviewers, err := authSvc.ListReviewers(ctx)
	if err != nil {
		return fmt.Errorf("list reviewers: %w", err)
	}

	if len(reviewers) == 0 {
		fmt.Println("No reviewers found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tENABLED\tCREATED")
	for i := range reviewers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			reviewers[i].ID, reviewers[i].Email, reviewers[i].Name,
			reviewers[i].Enabled, reviewers[i].CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
