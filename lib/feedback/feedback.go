package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xtruelegend/keymint/lib/codec"
	"github.com/xtruelegend/keymint/lib/kv"
	"github.com/xtruelegend/keymint/lib/logging"
)

var feedbackLogger = logging.GetLogger("feedback")

const (
	reviewsKey = "reviews"
	issuesKey  = "issues"

	maxTextLen = 2000
)

// ErrNotFound is returned when a review or issue id matches nothing.
var ErrNotFound = errors.New("no such entry")

// Review is a customer review. Reviews start unapproved and only show up
// publicly after moderation.
type Review struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"date"`
}

// Issue is a customer problem report.
type Issue struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"date"`
}

// Store persists reviews and issue reports in the key-value backend, one
// JSON list per concern.
type Store struct {
	store kv.IKVStore
	codec codec.ISerializer
}

// New creates a feedback store.
func New(store kv.IKVStore, serializer codec.ISerializer) *Store {
	return &Store{store: store, codec: serializer}
}

// --------------------------------------------------------------------------
// Reviews
// --------------------------------------------------------------------------

// SubmitReview stores a new unapproved review. Ratings are clamped to the
// 1 to 5 range and overlong text is truncated.
func (s *Store) SubmitReview(ctx context.Context, name string, rating int, text string) (Review, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" {
		name = "Anonymous"
	}
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	review := Review{
		ID:        uuid.NewString(),
		Name:      name,
		Rating:    rating,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	reviews, err := s.reviews(ctx)
	if err != nil {
		return Review{}, err
	}
	if err := s.write(ctx, reviewsKey, append(reviews, review)); err != nil {
		return Review{}, err
	}

	feedbackLogger.Infof("review %s submitted by %s", review.ID, review.Name)
	return review, nil
}

// ApprovedReviews returns the moderated, publicly visible reviews.
func (s *Store) ApprovedReviews(ctx context.Context) ([]Review, error) {
	reviews, err := s.reviews(ctx)
	if err != nil {
		return nil, err
	}

	approved := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Approved {
			approved = append(approved, r)
		}
	}
	return approved, nil
}

// AllReviews returns every review including unapproved ones.
func (s *Store) AllReviews(ctx context.Context) ([]Review, error) {
	return s.reviews(ctx)
}

// SetReviewApproval flips the approval flag of a review.
func (s *Store) SetReviewApproval(ctx context.Context, id string, approved bool) (Review, error) {
	reviews, err := s.reviews(ctx)
	if err != nil {
		return Review{}, err
	}

	for i := range reviews {
		if reviews[i].ID == id {
			reviews[i].Approved = approved
			if err := s.write(ctx, reviewsKey, reviews); err != nil {
				return Review{}, err
			}
			return reviews[i], nil
		}
	}
	return Review{}, ErrNotFound
}

// UpdateReview rewrites the text fields of an existing review, with the
// same normalization as SubmitReview. Approval state is left untouched.
func (s *Store) UpdateReview(ctx context.Context, id, name string, rating int, text string) (Review, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" {
		name = "Anonymous"
	}
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	reviews, err := s.reviews(ctx)
	if err != nil {
		return Review{}, err
	}
	for i := range reviews {
		if reviews[i].ID == id {
			reviews[i].Name = name
			reviews[i].Rating = rating
			reviews[i].Text = text
			if err := s.write(ctx, reviewsKey, reviews); err != nil {
				return Review{}, err
			}
			return reviews[i], nil
		}
	}
	return Review{}, ErrNotFound
}

// DeleteReview removes a review.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	reviews, err := s.reviews(ctx)
	if err != nil {
		return err
	}

	kept := reviews[:0]
	for _, r := range reviews {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(reviews) {
		return ErrNotFound
	}
	return s.write(ctx, reviewsKey, kept)
}

// --------------------------------------------------------------------------
// Issues
// --------------------------------------------------------------------------

// ReportIssue stores a customer problem report.
func (s *Store) ReportIssue(ctx context.Context, email, message string) (Issue, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Issue{}, fmt.Errorf("empty message")
	}
	if len(message) > maxTextLen {
		message = message[:maxTextLen]
	}

	issue := Issue{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	var issues []Issue
	if err := s.read(ctx, issuesKey, &issues); err != nil {
		return Issue{}, err
	}
	if err := s.write(ctx, issuesKey, append(issues, issue)); err != nil {
		return Issue{}, err
	}

	feedbackLogger.Infof("issue %s reported", issue.ID)
	return issue, nil
}

// ResolveIssue removes a handled issue report.
func (s *Store) ResolveIssue(ctx context.Context, id string) error {
	var issues []Issue
	if err := s.read(ctx, issuesKey, &issues); err != nil {
		return err
	}

	kept := issues[:0]
	for _, issue := range issues {
		if issue.ID != id {
			kept = append(kept, issue)
		}
	}
	if len(kept) == len(issues) {
		return ErrNotFound
	}
	return s.write(ctx, issuesKey, kept)
}

// Issues returns every reported issue.
func (s *Store) Issues(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	if err := s.read(ctx, issuesKey, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// --------------------------------------------------------------------------
// Persistence helpers
// --------------------------------------------------------------------------

func (s *Store) reviews(ctx context.Context) ([]Review, error) {
	var reviews []Review
	if err := s.read(ctx, reviewsKey, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// read loads a JSON list from the backend. A missing key is an empty list;
// a malformed blob is logged and treated as empty rather than wedging the
// whole feedback surface.
func (s *Store) read(ctx context.Context, key string, out interface{}) error {
	value, found, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return nil
	}
	if err := s.codec.Deserialize([]byte(value), out); err != nil {
		feedbackLogger.Errorf("malformed %s blob, treating as empty: %v", key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v interface{}) error {
	raw, err := s.codec.Serialize(v)
	if err != nil {
		return err
	}
	ok, err := s.store.Set(ctx, key, string(raw))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if !ok {
		return kv.NewError(kv.RetCBackendUnavailable, "write not accepted")
	}
	return nil
}
