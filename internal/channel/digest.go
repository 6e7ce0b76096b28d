package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finsage/finsage/internal/store"
	"github.com/robfig/cron/v3"
)

// DigestJob sends the scheduled financial digest to every opted-in user.
// Sends are spaced by a fixed delay to respect the transport's rate limits,
// and one failed recipient never aborts the remaining sends.
type DigestJob struct {
	repo      store.Repository
	profiles  ContextProvider
	sender    Sender
	sendDelay time.Duration
}

// NewDigestJob creates the digest job.
func NewDigestJob(repo store.Repository, profiles ContextProvider, sender Sender, sendDelay time.Duration) *DigestJob {
	return &DigestJob{
		repo:      repo,
		profiles:  profiles,
		sender:    sender,
		sendDelay: sendDelay,
	}
}

// Run sends the digest to all recipients. A repository failure skips the run.
func (j *DigestJob) Run(ctx context.Context) {
	recipients, err := j.repo.ListDigestRecipients(ctx)
	if err != nil {
		slog.Warn("failed to list digest recipients, skipping run", "error", err)
		return
	}

	slog.Info("digest run started", "recipients", len(recipients))
	sent := 0
	for i, userID := range recipients {
		if i > 0 {
			select {
			case <-ctx.Done():
				slog.Warn("digest run cancelled", "sent", sent, "remaining", len(recipients)-i)
				return
			case <-time.After(j.sendDelay):
			}
		}

		if j.sender.Send(ctx, userID, j.digestText(ctx, userID)) {
			sent++
		} else {
			slog.Warn("digest delivery failed", "user_id", userID)
		}
	}
	slog.Info("digest run complete", "sent", sent, "recipients", len(recipients))
}

func (j *DigestJob) digestText(ctx context.Context, userID string) string {
	uc := j.profiles.Snapshot(ctx, userID)

	var total float64
	var count int
	since := time.Now().AddDate(0, 0, -1)
	expenses, err := j.repo.ListExpenses(ctx, userID, since)
	if err != nil {
		slog.Warn("failed to list expenses for digest", "user_id", userID, "error", err)
	}
	for _, exp := range expenses {
		total += exp.Amount
		count++
	}

	name := uc.FirstName()
	if name == "" {
		name = "there"
	}
	return strings.Join([]string{
		fmt.Sprintf("Good morning, %s! Here's your daily digest:", name),
		fmt.Sprintf("Yesterday you logged %d expenses totaling %.2f.", count, total),
		fmt.Sprintf("Savings progress: %.0f%% — expenses ratio: %.0f%% of income.", uc.SavingsProgressPct, uc.ExpensesRatioPct),
		"Reply \"report\" for the full monthly picture.",
	}, "\n")
}

// Schedule registers the job with a cron engine using a standard 5-field
// cron expression.
func (j *DigestJob) Schedule(c *cron.Cron, spec string) error {
	if _, err := c.AddFunc(spec, func() { j.Run(context.Background()) }); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	return nil
}
