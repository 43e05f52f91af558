package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-publishing/internal/versions"
)

type promoteDraft struct {
	BasePath string
	Locale   string
}

func (promoteDraft) Type() string { return "publishing.test.promote_draft" }

func (m promoteDraft) Validate() error {
	if m.BasePath == "" {
		return errors.New("base_path required")
	}
	return nil
}

type withdrawLive struct {
	BasePath string
}

func (withdrawLive) Type() string { return "publishing.test.withdraw_live" }

func (withdrawLive) Validate() error { return nil }

type rejectInvalid struct{}

func (rejectInvalid) Type() string { return "publishing.test.reject_invalid" }

func (rejectInvalid) Validate() error { return errors.New("locale required") }

func TestDispatchedPublishRetriesAfterStoreHiccup(t *testing.T) {
	t.Parallel()

	var promoted []string
	attempts := 0
	handler := NewHandler(func(ctx context.Context, msg promoteDraft) error {
		attempts++
		if attempts == 1 {
			return errors.New("draft store unavailable")
		}
		promoted = append(promoted, msg.BasePath+"@"+msg.Locale)
		return nil
	}, WithTimeout[promoteDraft](time.Second), WithOperation[promoteDraft]("publish"))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), promoteDraft{BasePath: "/vat-rates", Locale: "cy"}); err != nil {
		t.Fatalf("dispatch: expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(promoted) != 1 || promoted[0] != "/vat-rates@cy" {
		t.Fatalf("unexpected promotions %v", promoted)
	}
}

func TestDispatchedUnpublishSurfacesVersionConflict(t *testing.T) {
	t.Parallel()

	attempts := 0
	handler := NewHandler(func(ctx context.Context, msg withdrawLive) error {
		attempts++
		return fmt.Errorf("withdraw %s: %w", msg.BasePath, versions.ErrVersionConflict)
	}, WithTimeout[withdrawLive](time.Second))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(2))
	t.Cleanup(sub.Unsubscribe)

	err := dispatcher.Dispatch(context.Background(), withdrawLive{BasePath: "/bank-holidays"})
	if err == nil {
		t.Fatal("expected the conflict to reach the caller")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (initial + 2 retries), got %d", attempts)
	}

	direct := handler.Execute(context.Background(), withdrawLive{BasePath: "/bank-holidays"})
	if !errors.Is(direct, versions.ErrVersionConflict) {
		t.Fatalf("expected version conflict in chain, got %v", direct)
	}
	if code := TextCode(direct); code != CodeVersionConflict {
		t.Fatalf("expected %s, got %q", CodeVersionConflict, code)
	}
}

func TestDispatchRejectsInvalidMessageBeforeHandler(t *testing.T) {
	t.Parallel()

	called := false
	handler := NewHandler(func(ctx context.Context, _ rejectInvalid) error {
		called = true
		return nil
	})

	sub := dispatcher.SubscribeCommand(handler)
	t.Cleanup(sub.Unsubscribe)

	err := dispatcher.Dispatch(context.Background(), rejectInvalid{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if called {
		t.Fatal("handler must not run for an invalid message")
	}
}
