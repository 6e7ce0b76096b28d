package channel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/finsage/finsage/internal/domain"
)

// recordingSender captures sends and fails for the recipients it is told to.
type recordingSender struct {
	sent []string
	text map[string]string
	fail map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{text: make(map[string]string), fail: make(map[string]bool)}
}

func (s *recordingSender) Send(_ context.Context, recipient, text string) bool {
	s.sent = append(s.sent, recipient)
	s.text[recipient] = text
	return !s.fail[recipient]
}

func TestDigestRunSendsToAllRecipients(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{recipients: []string{"user-1", "user-2", "user-3"}}
	sender := newRecordingSender()
	j := NewDigestJob(repo, stubProvider{uc: domain.UserContext{Name: "Ana Souza", SavingsProgressPct: 40, ExpensesRatioPct: 55}}, sender, 0)

	j.Run(context.Background())

	if len(sender.sent) != 3 {
		t.Fatalf("sends = %d, want 3", len(sender.sent))
	}
	if !strings.Contains(sender.text["user-1"], "Good morning, Ana!") {
		t.Errorf("digest should greet by first name: %q", sender.text["user-1"])
	}
}

func TestDigestRunFailureIsolation(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{recipients: []string{"user-1", "user-2", "user-3"}}
	sender := newRecordingSender()
	sender.fail["user-1"] = true
	j := NewDigestJob(repo, stubProvider{}, sender, 0)

	j.Run(context.Background())

	// A failed recipient never aborts the rest of the run.
	if len(sender.sent) != 3 {
		t.Fatalf("sends attempted = %d, want 3", len(sender.sent))
	}
}

func TestDigestRunCancellation(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{recipients: []string{"user-1", "user-2"}}
	sender := newRecordingSender()
	j := NewDigestJob(repo, stubProvider{}, sender, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j.Run(ctx)

	// The first send happens before the inter-send delay checks the context.
	if len(sender.sent) != 1 {
		t.Fatalf("sends = %d, want 1 before cancellation stops the run", len(sender.sent))
	}
}
