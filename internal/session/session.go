// Package session holds the signed-in identity derived from a persisted
// credential token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evcraddock/house-market/internal/account"
	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/client"
)

const expiredMessage = "Session expired. Please login again."

// Gateway is the subset of the API client the session needs.
type Gateway interface {
	Register(ctx context.Context, profile account.Profile) (*client.AuthResponse, error)
	Login(ctx context.Context, creds account.Credentials) (*client.AuthResponse, error)
	Me(ctx context.Context) (*account.User, error)
	UpdateUser(ctx context.Context, profile account.Profile) (*account.User, error)
	SetToken(token string)
}

// CredentialStore persists the session token across runs.
type CredentialStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

// Store owns the authenticated identity. Other stores read it through
// User and RequireUser but never change it.
type Store struct {
	gw    Gateway
	creds CredentialStore
	now   func() time.Time

	mu       sync.RWMutex
	user     *account.User
	loading  bool
	errMsg   string
	onLogout []func()
}

// New creates a session store.
func New(gw Gateway, creds CredentialStore) *Store {
	return &Store{gw: gw, creds: creds, now: time.Now}
}

// OnLogout registers fn to run after every Logout.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Initialize restores the session from the persisted credential.
// With no credential the session is simply unauthenticated. A credential that
// is expired or rejected by the server is cleared and apperr.ErrSessionExpired
// is returned.
func (s *Store) Initialize(ctx context.Context) error {
	token, err := s.creds.LoadToken()
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}
	if token == "" {
		s.setUser(nil)
		return nil
	}

	if tokenExpired(token, s.now()) {
		slog.Info("persisted credential expired")
		return s.expire()
	}

	s.gw.SetToken(token)
	s.setLoading(true)
	user, err := s.gw.Me(ctx)
	s.setLoading(false)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			slog.Info("persisted credential rejected", "status", apiErr.StatusCode)
			return s.expire()
		}
		// The server was not reached; keep the credential for the next run.
		s.gw.SetToken("")
		s.setError(apperr.Message(err))
		return err
	}

	s.setUser(user)
	return nil
}

// expire clears the credential and identity after a stale token was found.
func (s *Store) expire() error {
	s.gw.SetToken("")
	clearErr := s.creds.ClearToken()

	s.mu.Lock()
	s.user = nil
	s.errMsg = expiredMessage
	s.mu.Unlock()

	if clearErr != nil {
		return fmt.Errorf("%w (also failed to clear credential: %v)", apperr.ErrSessionExpired, clearErr)
	}
	return apperr.ErrSessionExpired
}

// Login authenticates with credentials and persists the returned token.
// On failure the prior session is left as it was.
func (s *Store) Login(ctx context.Context, creds account.Credentials) (account.User, error) {
	s.beginRequest()
	resp, err := s.gw.Login(ctx, creds)
	return s.finishAuth(resp, err, "Login failed")
}

// Register creates an account and signs in as it.
func (s *Store) Register(ctx context.Context, profile account.Profile) (account.User, error) {
	s.beginRequest()
	resp, err := s.gw.Register(ctx, profile)
	return s.finishAuth(resp, err, "Registration failed")
}

func (s *Store) finishAuth(resp *client.AuthResponse, err error, fallback string) (account.User, error) {
	if err != nil {
		err = authError(err)
		msg := apperr.Message(err)
		if msg == "" {
			msg = fallback
		}
		s.mu.Lock()
		s.loading = false
		s.errMsg = msg
		s.mu.Unlock()
		return account.User{}, err
	}
	if resp.Token == "" {
		s.setLoading(false)
		s.setError(fallback)
		return account.User{}, apperr.Auth(errors.New("server returned no token"))
	}

	if err := s.creds.SaveToken(resp.Token); err != nil {
		s.setLoading(false)
		s.setError(fallback)
		return account.User{}, fmt.Errorf("saving credential: %w", err)
	}
	s.gw.SetToken(resp.Token)

	user := resp.User
	s.mu.Lock()
	s.user = &user
	s.loading = false
	s.mu.Unlock()
	slog.Debug("signed in", "user_id", user.NormalizedID())
	return user, nil
}

// UpdateProfile changes the signed-in user's profile.
func (s *Store) UpdateProfile(ctx context.Context, profile account.Profile) (account.User, error) {
	if _, err := s.RequireUser(); err != nil {
		return account.User{}, err
	}

	s.beginRequest()
	user, err := s.gw.UpdateUser(ctx, profile)
	if err != nil {
		s.setLoading(false)
		s.setError(apperr.Message(err))
		return account.User{}, err
	}

	s.mu.Lock()
	s.user = user
	s.loading = false
	s.mu.Unlock()
	return *user, nil
}

// Logout clears the credential and identity. It does not call the backend.
// Registered logout hooks run afterwards.
func (s *Store) Logout() error {
	s.gw.SetToken("")
	clearErr := s.creds.ClearToken()

	s.mu.Lock()
	s.user = nil
	s.errMsg = ""
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	if clearErr != nil {
		return fmt.Errorf("clearing credential: %w", clearErr)
	}
	return nil
}

// User returns the signed-in user, if any.
func (s *Store) User() (account.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return account.User{}, false
	}
	return *s.user, true
}

// Viewer returns the normalized id of the signed-in user, or "".
func (s *Store) Viewer() string {
	u, ok := s.User()
	if !ok {
		return ""
	}
	return u.NormalizedID()
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.User()
	return ok
}

// RequireUser returns the signed-in user or an apperr.ErrAuth error.
func (s *Store) RequireUser() (account.User, error) {
	u, ok := s.User()
	if !ok {
		return account.User{}, apperr.Auth(errors.New("not logged in"))
	}
	return u, nil
}

// RequireOwner checks that the signed-in user owns a resource.
// This is advisory; the server enforces ownership.
func (s *Store) RequireOwner(ownerID string) error {
	u, err := s.RequireUser()
	if err != nil {
		return err
	}
	if ownerID != "" && u.NormalizedID() != strings.TrimSpace(ownerID) {
		return apperr.Auth(errors.New("only the owner can change this listing"))
	}
	return nil
}

// Loading reports whether an auth request is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last error message, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// ClearError resets the error slot.
func (s *Store) ClearError() {
	s.setError("")
}

func (s *Store) beginRequest() {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) setUser(u *account.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

// authError marks a server rejection as an auth failure. Transport failures
// keep their network kind.
func authError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apperr.Auth(err)
	}
	return err
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired locally.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
