// Package catalog keeps the client-side cache of marketplace listings: the
// full catalog as seen by the viewer, the viewer's own listings, and the
// wishlist derived from them.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evcraddock/house-market/internal/account"
	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/property"
)

// Gateway is the subset of the API client the catalog needs.
type Gateway interface {
	ListProperties(ctx context.Context) ([]property.Property, error)
	ListOwnedProperties(ctx context.Context) ([]property.Property, error)
	AddProperty(ctx context.Context, p property.Property) (string, error)
	UpdateProperty(ctx context.Context, apn string, patch property.Patch) error
	AddToWishlist(ctx context.Context, apn string) error
	RemoveFromWishlist(ctx context.Context, apn string) error
	ListAmenities(ctx context.Context) ([]string, error)
	Recommendations(ctx context.Context, apn string) ([]string, error)
}

// Session gates writes on the signed-in identity.
type Session interface {
	RequireUser() (account.User, error)
	RequireOwner(ownerID string) error
}

// Store caches listings. Reads return copies; only Store methods change the
// cached entities.
type Store struct {
	gw   Gateway
	sess Session

	mu         sync.Mutex
	properties []property.Property
	owned      []property.Property
	amenities  []string
	inflight   int
	errMsg     string
	allSeq     uint64
	ownedSeq   uint64

	// bumped each time a fetch replaces the list
	allGen   uint64
	ownedGen uint64
}

// New creates a catalog store.
func New(gw Gateway, sess Session) *Store {
	return &Store{gw: gw, sess: sess}
}

// FetchAll replaces the catalog with the server's. On failure the cache is
// left as it was. A response older than one already applied is dropped.
func (s *Store) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	s.allSeq++
	seq := s.allSeq
	s.begin()
	s.mu.Unlock()

	props, err := s.gw.ListProperties(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq != s.allSeq {
		slog.Debug("discarding stale catalog fetch", "seq", seq, "latest", s.allSeq)
		return err
	}
	if err != nil {
		s.errMsg = errMessage(err, "Failed to fetch properties")
		return err
	}
	s.properties = props
	s.allGen++
	return nil
}

// FetchOwned replaces the viewer's own listings.
func (s *Store) FetchOwned(ctx context.Context) error {
	if _, err := s.sess.RequireUser(); err != nil {
		return err
	}

	s.mu.Lock()
	s.ownedSeq++
	seq := s.ownedSeq
	s.begin()
	s.mu.Unlock()

	props, err := s.gw.ListOwnedProperties(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq != s.ownedSeq {
		slog.Debug("discarding stale owned fetch", "seq", seq, "latest", s.ownedSeq)
		return err
	}
	if err != nil {
		s.errMsg = errMessage(err, "Failed to fetch properties")
		return err
	}
	s.owned = props
	s.ownedGen++
	return nil
}

// FetchAmenities loads the amenity names a listing may offer.
func (s *Store) FetchAmenities(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.begin()
	s.mu.Unlock()

	amenities, err := s.gw.ListAmenities(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.errMsg = errMessage(err, "Failed to fetch amenities")
		return nil, err
	}
	s.amenities = amenities
	return append([]string(nil), amenities...), nil
}

// Add submits a new listing and returns the server-assigned apn. The listing
// is validated before anything is sent.
func (s *Store) Add(ctx context.Context, p property.Property) (string, error) {
	if err := property.Validate(p); err != nil {
		s.setError(apperr.Message(err))
		return "", err
	}
	if _, err := s.sess.RequireUser(); err != nil {
		return "", err
	}

	p = p.Clone()
	p.APN = ""
	p.IsWish = false

	s.mu.Lock()
	s.begin()
	s.mu.Unlock()

	apn, err := s.gw.AddProperty(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.errMsg = errMessage(err, "Failed to add property")
		return "", err
	}
	slog.Info("listing added", "apn", apn)
	return apn, nil
}

// Update applies patch to the listing apn. The merged listing must validate
// before anything is sent; the change shows in the cache immediately and is
// reverted if the server rejects it. A list refetched while the request was
// in flight keeps the fetched version.
func (s *Store) Update(ctx context.Context, apn string, patch property.Patch) error {
	if _, err := s.sess.RequireUser(); err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.lookup(apn)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: listing %s is not loaded", apperr.ErrNotFound, apn)
	}
	if err := s.sess.RequireOwner(current.OwnerID); err != nil {
		s.setError(apperr.Message(err))
		return err
	}

	merged, err := property.Merge(current, patch)
	if err != nil {
		s.setError(apperr.Message(err))
		return err
	}
	if err := property.Validate(merged); err != nil {
		s.setError(apperr.Message(err))
		return err
	}

	s.mu.Lock()
	prevAll, prevOwned, err := s.applyPatch(apn, patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	allGen, ownedGen := s.allGen, s.ownedGen
	s.begin()
	s.mu.Unlock()

	err = s.gw.UpdateProperty(ctx, apn, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.errMsg = errMessage(err, "Failed to update property")
		if allGen == s.allGen {
			restore(s.properties, prevAll)
		} else {
			slog.Debug("catalog refetched during update, keeping fetched listing", "apn", apn)
		}
		if ownedGen == s.ownedGen {
			restore(s.owned, prevOwned)
		}
		return err
	}
	return nil
}

// applyPatch merges patch into every cached copy of apn and returns the
// previous versions.
func (s *Store) applyPatch(apn string, patch property.Patch) (prevAll, prevOwned *property.Property, err error) {
	if prevAll, err = mergeInto(s.properties, apn, patch); err != nil {
		return nil, nil, err
	}
	if prevOwned, err = mergeInto(s.owned, apn, patch); err != nil {
		restore(s.properties, prevAll)
		return nil, nil, err
	}
	return prevAll, prevOwned, nil
}

func mergeInto(list []property.Property, apn string, patch property.Patch) (*property.Property, error) {
	i := indexOf(list, apn)
	if i < 0 {
		return nil, nil
	}
	merged, err := property.Merge(list[i], patch)
	if err != nil {
		return nil, err
	}
	prev := list[i]
	list[i] = merged
	return &prev, nil
}

// restore puts prev back in place of the entry with the same apn.
func restore(list []property.Property, prev *property.Property) {
	if prev == nil {
		return
	}
	if i := indexOf(list, prev.APN); i >= 0 {
		list[i] = *prev
	}
}

// ToggleWishlist flips apn's wishlist flag and returns the new value. The
// flag changes before the request is sent and flips back if it fails, unless
// the catalog was refetched in the meantime.
func (s *Store) ToggleWishlist(ctx context.Context, apn string) (bool, error) {
	if _, err := s.sess.RequireUser(); err != nil {
		return false, err
	}

	s.mu.Lock()
	i := indexOf(s.properties, apn)
	if i < 0 {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: listing %s is not loaded", apperr.ErrNotFound, apn)
	}
	wish := !s.properties[i].IsWish
	s.properties[i].IsWish = wish
	gen := s.allGen
	s.begin()
	s.mu.Unlock()

	var err error
	if wish {
		err = s.gw.AddToWishlist(ctx, apn)
	} else {
		err = s.gw.RemoveFromWishlist(ctx, apn)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err == nil {
		return wish, nil
	}
	if j := indexOf(s.properties, apn); gen == s.allGen && j >= 0 && s.properties[j].IsWish == wish {
		s.properties[j].IsWish = !wish
	}
	if wish {
		s.errMsg = errMessage(err, "Failed to add to wishlist")
	} else {
		s.errMsg = errMessage(err, "Failed to remove from wishlist")
	}
	return !wish, err
}

// Recommend returns the cached listings the recommender considers similar
// to apn, in catalog order. Recommended apns that are not cached are skipped.
func (s *Store) Recommend(ctx context.Context, apn string) ([]property.Property, error) {
	if apn == "" {
		return nil, nil
	}
	s.mu.Lock()
	s.begin()
	s.mu.Unlock()

	apns, err := s.gw.Recommendations(ctx, apn)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.errMsg = errMessage(err, "Error fetching recommendations")
		return nil, err
	}

	want := make(map[string]bool, len(apns))
	for _, a := range apns {
		want[a] = true
	}
	var out []property.Property
	for _, p := range s.properties {
		if want[p.APN] {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Properties returns the catalog.
func (s *Store) Properties() []property.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.properties, nil)
}

// Owned returns the viewer's own listings.
func (s *Store) Owned() []property.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.owned, nil)
}

// Wishlist returns the catalog entries the viewer has wishlisted.
func (s *Store) Wishlist() []property.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.properties, func(p property.Property) bool { return p.IsWish })
}

// Property returns the cached listing apn from the catalog or the owned
// listings.
func (s *Store) Property(apn string) (property.Property, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.lookup(apn)
	if !ok {
		return property.Property{}, false
	}
	return p.Clone(), true
}

// Amenities returns the last fetched amenity names.
func (s *Store) Amenities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.amenities...)
}

// Loading reports whether any request is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the message of the last failed request, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// ClearError dismisses the current error message.
func (s *Store) ClearError() {
	s.setError("")
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

// begin marks a request in flight. Caller holds mu.
func (s *Store) begin() {
	s.inflight++
	s.errMsg = ""
}

// lookup finds apn in the catalog, then in the owned listings. Caller holds mu.
func (s *Store) lookup(apn string) (property.Property, bool) {
	if i := indexOf(s.properties, apn); i >= 0 {
		return s.properties[i], true
	}
	if i := indexOf(s.owned, apn); i >= 0 {
		return s.owned[i], true
	}
	return property.Property{}, false
}

func indexOf(list []property.Property, apn string) int {
	for i := range list {
		if list[i].APN == apn {
			return i
		}
	}
	return -1
}

func cloneAll(list []property.Property, keep func(property.Property) bool) []property.Property {
	out := make([]property.Property, 0, len(list))
	for _, p := range list {
		if keep == nil || keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func errMessage(err error, fallback string) string {
	if msg := apperr.Message(err); msg != "" {
		return msg
	}
	return fallback
}
