package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evcraddock/house-market/internal/account"
	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/realtime"
)

// Gateway is the subset of the API client the review store needs.
type Gateway interface {
	ListReviews(ctx context.Context, apn string) ([]Review, error)
	SendReview(ctx context.Context, apn string, rating int, comment string) error
	EditReview(ctx context.Context, apn string, rating int, comment string) error
}

// Channel is the push connection reviews are broadcast on.
type Channel interface {
	Subscribe(topic string, h realtime.Handler) error
	Unsubscribe(topic string) error
	Emit(event string, payload interface{}) error
}

// Identity reports who is signed in.
type Identity interface {
	User() (account.User, bool)
}

// Store holds the reviews of the listing currently open, plus the viewer's
// own review of it.
type Store struct {
	gw Gateway
	ch Channel
	id Identity

	mu      sync.Mutex
	apn     string
	reviews []Review
	own     *Review
	loading bool
	errMsg  string
	seq     uint64
	topics  []string

	onRemote []func(Review)
}

// NewStore creates a review store. ch may be nil, in which case writes are
// not broadcast and no remote events arrive.
func NewStore(gw Gateway, ch Channel, id Identity) *Store {
	return &Store{gw: gw, ch: ch, id: id}
}

// Open makes apn the current listing: it subscribes to the listing's review
// topics and fetches its reviews. A previously open listing is closed first.
func (s *Store) Open(ctx context.Context, apn string) error {
	s.Close()

	if s.ch != nil {
		topics := map[string]func(Review){
			realtime.ReviewCreatedTopic(apn): s.ApplyRemoteCreate,
			realtime.ReviewUpdatedTopic(apn): s.ApplyRemoteUpdate,
		}
		for topic, apply := range topics {
			if err := s.ch.Subscribe(topic, remoteHandler(topic, apply)); err != nil {
				slog.Warn("subscribing to reviews", "topic", topic, "error", err)
				continue
			}
			s.mu.Lock()
			s.topics = append(s.topics, topic)
			s.mu.Unlock()
		}
	}

	viewer := ""
	if u, ok := s.id.User(); ok {
		viewer = u.NormalizedID()
	}
	return s.FetchForProperty(ctx, apn, viewer)
}

func remoteHandler(topic string, apply func(Review)) realtime.Handler {
	return func(data json.RawMessage) {
		var r Review
		if err := json.Unmarshal(data, &r); err != nil {
			slog.Warn("decoding remote review", "topic", topic, "error", err)
			return
		}
		apply(r)
	}
}

// Close unsubscribes from the open listing's topics and clears the
// collection. Fetches still in flight are discarded when they return.
func (s *Store) Close() {
	s.mu.Lock()
	topics := s.topics
	s.topics = nil
	s.apn = ""
	s.reviews = nil
	s.own = nil
	s.errMsg = ""
	s.loading = false
	s.seq++
	s.mu.Unlock()

	for _, topic := range topics {
		if err := s.ch.Unsubscribe(topic); err != nil {
			slog.Warn("unsubscribing from reviews", "topic", topic, "error", err)
		}
	}
}

// FetchForProperty replaces the collection with the reviews of apn and
// caches viewerID's own review. A response that arrives after a newer fetch
// or a Close is dropped.
func (s *Store) FetchForProperty(ctx context.Context, apn, viewerID string) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.apn != apn {
		s.apn = apn
		s.reviews = nil
		s.own = nil
	}
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	reviews, err := s.gw.ListReviews(ctx, apn)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		slog.Debug("discarding stale review fetch", "apn", apn)
		return nil
	}
	s.loading = false
	if err != nil {
		s.errMsg = errMessage(err, "Error fetching reviews")
		return err
	}

	s.reviews = reviews
	s.own = nil
	for i := range reviews {
		if reviews[i].AuthoredBy(viewerID) {
			r := reviews[i]
			s.own = &r
			break
		}
	}
	return nil
}

// Submit writes the viewer's review of apn. If the viewer already reviewed
// apn this is an Edit. The entry is visible locally before the request
// completes and is removed again if the request fails.
func (s *Store) Submit(ctx context.Context, apn string, rating int, comment string) error {
	user, err := s.validate(rating)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.apn == apn && s.own != nil {
		s.mu.Unlock()
		return s.Edit(ctx, apn, rating, comment)
	}
	if s.apn != apn {
		s.apn = apn
		s.reviews = nil
		s.own = nil
		s.seq++
	}
	entry := newEntry(user, apn, rating, comment)
	s.reviews = append(s.reviews, entry)
	s.own = &entry
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.gw.SendReview(ctx, apn, rating, comment); err != nil {
		s.rollback(apn, entry.UserID, nil, errMessage(err, "Error sending review"))
		return err
	}

	s.broadcast(realtime.EventReviewCreated, entry)
	return nil
}

// Edit replaces the viewer's existing review of apn in place.
func (s *Store) Edit(ctx context.Context, apn string, rating int, comment string) error {
	user, err := s.validate(rating)
	if err != nil {
		return err
	}

	s.mu.Lock()
	idx := -1
	if s.apn == apn {
		idx = s.indexOf(user.NormalizedID())
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: no review of %s to edit", apperr.ErrNotFound, apn)
	}
	entry := newEntry(user, apn, rating, comment)
	prev := s.reviews[idx]
	s.reviews[idx] = entry
	s.own = &entry
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.gw.EditReview(ctx, apn, rating, comment); err != nil {
		s.rollback(apn, entry.UserID, &prev, errMessage(err, "Error editing review"))
		return err
	}

	s.broadcast(realtime.EventReviewUpdated, entry)
	return nil
}

// ApplyRemoteCreate adds a review written in another session. Events for
// other listings or written by the viewer are ignored.
func (s *Store) ApplyRemoteCreate(r Review) {
	s.mu.Lock()
	applied := s.acceptRemote(r)
	if applied {
		if i := s.indexOf(r.UserID); i >= 0 {
			s.reviews[i] = r
		} else {
			s.reviews = append(s.reviews, r)
		}
	}
	hooks := s.onRemote
	s.mu.Unlock()

	if applied {
		notify(hooks, r)
	}
}

// ApplyRemoteUpdate replaces a review edited in another session.
func (s *Store) ApplyRemoteUpdate(r Review) {
	s.mu.Lock()
	applied := false
	if s.acceptRemote(r) {
		if i := s.indexOf(r.UserID); i >= 0 {
			s.reviews[i] = r
			applied = true
		}
	}
	hooks := s.onRemote
	s.mu.Unlock()

	if applied {
		notify(hooks, r)
	}
}

// OnRemote registers fn to run after a remote event changed the collection.
// fn runs without the store lock held.
func (s *Store) OnRemote(fn func(Review)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemote = append(s.onRemote, fn)
}

func notify(hooks []func(Review), r Review) {
	for _, fn := range hooks {
		fn(r)
	}
}

// Reviews returns a copy of the current collection.
func (s *Store) Reviews() []Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Review(nil), s.reviews...)
}

// OwnReview returns the viewer's review of the open listing, if any.
func (s *Store) OwnReview() (Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.own == nil {
		return Review{}, false
	}
	return *s.own, true
}

// Property returns the apn of the open listing.
func (s *Store) Property() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apn
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the last failed operation, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// ClearError dismisses the current error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// validate checks the rating and returns the signed-in author. It does not
// touch the collection.
func (s *Store) validate(rating int) (account.User, error) {
	if !ValidRating(rating) {
		err := apperr.Validation("rating must be between %d and %d", MinRating, MaxRating)
		s.mu.Lock()
		s.errMsg = apperr.Message(err)
		s.mu.Unlock()
		return account.User{}, err
	}
	user, ok := s.id.User()
	if !ok {
		return account.User{}, apperr.Auth(fmt.Errorf("login to review"))
	}
	return user, nil
}

func (s *Store) acceptRemote(r Review) bool {
	if s.apn == "" || (r.PropertyID != "" && r.PropertyID != s.apn) {
		return false
	}
	if u, ok := s.id.User(); ok && r.AuthoredBy(u.NormalizedID()) {
		return false
	}
	return true
}

func (s *Store) indexOf(userID string) int {
	for i := range s.reviews {
		if s.reviews[i].AuthoredBy(userID) {
			return i
		}
	}
	return -1
}

// rollback puts the viewer's entry back to prev, removing it when prev is
// nil. Entries by other authors that arrived meanwhile are kept. Nothing is
// restored once the store has moved to another listing.
func (s *Store) rollback(apn, viewerID string, prev *Review, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	if s.apn != apn {
		return
	}
	i := s.indexOf(viewerID)
	switch {
	case prev == nil && i >= 0:
		s.reviews = append(s.reviews[:i:i], s.reviews[i+1:]...)
	case prev != nil && i >= 0:
		s.reviews[i] = *prev
	case prev != nil:
		s.reviews = append(s.reviews, *prev)
	}
	s.own = prev
}

// broadcast tells other sessions about a completed write. Emit failures are
// logged, not returned.
func (s *Store) broadcast(event string, r Review) {
	if s.ch == nil {
		return
	}
	if err := s.ch.Emit(event, r); err != nil {
		slog.Warn("broadcasting review", "event", event, "apn", r.PropertyID, "error", err)
	}
}

func newEntry(user account.User, apn string, rating int, comment string) Review {
	return Review{
		PropertyID: apn,
		UserID:     user.NormalizedID(),
		Ratings:    rating,
		Comments:   comment,
		Name:       user.Name,
	}
}

func errMessage(err error, fallback string) string {
	if msg := apperr.Message(err); msg != "" {
		return msg
	}
	return fallback
}
