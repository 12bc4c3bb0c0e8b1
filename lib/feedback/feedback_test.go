package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/xtruelegend/keymint/lib/codec"
	"github.com/xtruelegend/keymint/lib/kv"
)

func newTestStore() *Store {
	return New(kv.NewMemoryStore(), codec.NewJSONSerializer())
}

func TestReviewModeration(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	review, err := s.SubmitReview(ctx, "Alice", 5, "works great")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if review.Approved {
		t.Error("fresh reviews must start unapproved")
	}

	// invisible until approved
	visible, err := s.ApprovedReviews(ctx)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("unapproved review is public: %+v", visible)
	}

	if _, err := s.SetReviewApproval(ctx, review.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	visible, _ = s.ApprovedReviews(ctx)
	if len(visible) != 1 || visible[0].ID != review.ID {
		t.Errorf("approved review not public: %+v", visible)
	}

	// reject hides it again
	if _, err := s.SetReviewApproval(ctx, review.ID, false); err != nil {
		t.Fatalf("reject: %v", err)
	}
	visible, _ = s.ApprovedReviews(ctx)
	if len(visible) != 0 {
		t.Error("rejected review still public")
	}
}

func TestReviewValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	review, err := s.SubmitReview(ctx, "  ", 99, "fine")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if review.Name != "Anonymous" {
		t.Errorf("got name %q, want Anonymous", review.Name)
	}
	if review.Rating != 5 {
		t.Errorf("got rating %d, want clamped 5", review.Rating)
	}

	review, err = s.SubmitReview(ctx, "Bob", -3, "meh")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if review.Rating != 1 {
		t.Errorf("got rating %d, want clamped 1", review.Rating)
	}
}

func TestDeleteReview(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	review, _ := s.SubmitReview(ctx, "Alice", 4, "ok")

	if err := s.DeleteReview(ctx, review.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ := s.AllReviews(ctx)
	if len(all) != 0 {
		t.Errorf("review survived deletion: %+v", all)
	}

	if err := s.DeleteReview(ctx, review.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := s.SetReviewApproval(ctx, "absent", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestIssues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.ReportIssue(ctx, "a@example.com", "   "); err == nil {
		t.Error("expected an error for an empty message")
	}

	issue, err := s.ReportIssue(ctx, " A@Example.com ", "key does not activate")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if issue.Email != "a@example.com" {
		t.Errorf("got email %q", issue.Email)
	}

	issues, err := s.Issues(ctx)
	if err != nil {
		t.Fatalf("issues: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != issue.ID {
		t.Errorf("got %+v", issues)
	}
}

func TestResolveIssue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if err := s.ResolveIssue(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	keep, err := s.ReportIssue(ctx, "a@example.com", "download link is dead")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	gone, err := s.ReportIssue(ctx, "b@example.com", "key rejected by installer")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := s.ResolveIssue(ctx, gone.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	issues, err := s.Issues(ctx)
	if err != nil {
		t.Fatalf("issues: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != keep.ID {
		t.Errorf("got %+v, want only %s", issues, keep.ID)
	}

	if err := s.ResolveIssue(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second resolve: got %v, want ErrNotFound", err)
	}
}

func TestUpdateReview(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.UpdateReview(ctx, "missing", "x", 3, "y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	review, err := s.SubmitReview(ctx, "Bob", 4, "works fine")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := s.SetReviewApproval(ctx, review.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	updated, err := s.UpdateReview(ctx, review.ID, "  ", 9, "even better")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Anonymous" || updated.Rating != 5 || updated.Text != "even better" {
		t.Errorf("normalization: %+v", updated)
	}
	if !updated.Approved {
		t.Error("update must not clear approval")
	}
}
