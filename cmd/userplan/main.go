package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gateway/internal/adapter/repo"
	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/internal/quota"
)

func main() {
	_, _ = infra.LoadEnvFiles()

	var (
		idFlag    string
		emailFlag string
		planFlag  string
		resetFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (free, standard, premium, deluxe)")
	flag.BoolVar(&resetFlag, "reset", false, "clear today's counters along with the plan change")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	plan, err := parsePlan(planFlag)
	if err != nil {
		exitWithError(err)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	if userID == "" {
		found, err := users.FindByEmail(ctx, email)
		if err != nil {
			exitWithError(describe("failed to load user", err))
		}
		userID = found.ID
	}

	updated, err := users.SetPlanReturning(ctx, userID, string(plan), resetFlag)
	if err != nil {
		exitWithError(describe("failed to update user plan", err))
	}

	policy := quota.DefaultPolicy()
	if table := os.Getenv("PLAN_LIMITS"); table != "" {
		if policy, err = quota.ParsePolicy(table); err != nil {
			exitWithError(fmt.Errorf("PLAN_LIMITS: %w", err))
		}
	}
	caps := policy.LimitsFor(updated.Plan)
	today := updated.Limits.Rollover(quota.Day(time.Now()))

	fmt.Printf("User %s (%s) updated to plan %s\n", updated.ID, updated.Email, updated.Plan)
	fmt.Printf("mail=%d/%d\n", today.MailsToday, caps.Mails)
	fmt.Printf("profileChange=%d/%d\n", today.ProfileChangesToday, caps.ProfileChanges)
}

func parsePlan(raw string) (quota.Plan, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", errors.New("-plan is required")
	}
	for _, p := range quota.Plans {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", quota.ErrUnsupportedPlan, name)
}

func describe(msg string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: user not found", msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
