package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evcraddock/house-market/internal/account"
	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/client"
)

type memCreds struct {
	token string
}

func (m *memCreds) LoadToken() (string, error) { return m.token, nil }
func (m *memCreds) SaveToken(t string) error   { m.token = t; return nil }
func (m *memCreds) ClearToken() error          { m.token = ""; return nil }

type fakeGateway struct {
	token    string
	meUser   *account.User
	meErr    error
	meCalls  int
	authResp *client.AuthResponse
	authErr  error
}

func (g *fakeGateway) Register(ctx context.Context, p account.Profile) (*client.AuthResponse, error) {
	return g.authResp, g.authErr
}

func (g *fakeGateway) Login(ctx context.Context, c account.Credentials) (*client.AuthResponse, error) {
	return g.authResp, g.authErr
}

func (g *fakeGateway) Me(ctx context.Context) (*account.User, error) {
	g.meCalls++
	return g.meUser, g.meErr
}

func (g *fakeGateway) UpdateUser(ctx context.Context, p account.Profile) (*account.User, error) {
	return &account.User{ID: "u1", Name: p.Name}, nil
}

func (g *fakeGateway) SetToken(t string) { g.token = t }

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func TestInitializeWithoutCredential(t *testing.T) {
	gw := &fakeGateway{}
	s := New(gw, &memCreds{})

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if s.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
	if gw.meCalls != 0 {
		t.Error("expected no backend call without a credential")
	}
}

func TestInitializeValidCredential(t *testing.T) {
	gw := &fakeGateway{meUser: &account.User{ID: "u1", Name: "Ann"}}
	creds := &memCreds{token: signedToken(t, time.Now().Add(time.Hour))}
	s := New(gw, creds)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	u, ok := s.User()
	if !ok || u.Name != "Ann" {
		t.Errorf("user = %+v, ok = %v", u, ok)
	}
	if gw.token != creds.token {
		t.Error("expected gateway bearer set from credential")
	}
}

func TestInitializeExpiredCredential(t *testing.T) {
	gw := &fakeGateway{meUser: &account.User{ID: "u1"}}
	creds := &memCreds{token: signedToken(t, time.Now().Add(-time.Hour))}
	s := New(gw, creds)

	err := s.Initialize(context.Background())
	if !errors.Is(err, apperr.ErrSessionExpired) {
		t.Fatalf("err = %v, want session expired", err)
	}
	if s.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
	if creds.token != "" {
		t.Error("expected credential cleared")
	}
	if gw.meCalls != 0 {
		t.Error("expired token should not reach the backend")
	}
	if s.Err() == "" {
		t.Error("expected error message recorded")
	}
}

func TestInitializeRejectedCredential(t *testing.T) {
	gw := &fakeGateway{meErr: apperr.Auth(&client.APIError{StatusCode: 401, Message: "invalid token"})}
	creds := &memCreds{token: "opaque-token"}
	s := New(gw, creds)

	err := s.Initialize(context.Background())
	if !errors.Is(err, apperr.ErrSessionExpired) {
		t.Fatalf("err = %v, want session expired", err)
	}
	if s.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
	if creds.token != "" {
		t.Error("expected credential no longer persisted")
	}
	if gw.token != "" {
		t.Error("expected gateway bearer cleared")
	}
}

func TestInitializeUnreachableKeepsCredential(t *testing.T) {
	gw := &fakeGateway{meErr: apperr.Network(errors.New("connection refused"))}
	creds := &memCreds{token: "opaque-token"}
	s := New(gw, creds)

	err := s.Initialize(context.Background())
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v, want network error", err)
	}
	if s.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
	if creds.token != "opaque-token" {
		t.Error("credential should survive an unreachable server")
	}
}

func TestLoginPersistsCredential(t *testing.T) {
	gw := &fakeGateway{authResp: &client.AuthResponse{Token: "tok", User: account.User{ID: " u1 ", Name: "Ann"}}}
	creds := &memCreds{}
	s := New(gw, creds)

	u, err := s.Login(context.Background(), account.Credentials{Email: "a@b.c", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.NormalizedID() != "u1" {
		t.Errorf("id = %q", u.NormalizedID())
	}
	if creds.token != "tok" || gw.token != "tok" {
		t.Errorf("token persisted = %q, bearer = %q", creds.token, gw.token)
	}
	if !s.IsAuthenticated() {
		t.Error("expected authenticated")
	}
}

func TestLoginFailureLeavesPriorState(t *testing.T) {
	gw := &fakeGateway{authResp: &client.AuthResponse{Token: "tok", User: account.User{ID: "u1"}}}
	creds := &memCreds{}
	s := New(gw, creds)
	if _, err := s.Login(context.Background(), account.Credentials{}); err != nil {
		t.Fatalf("first login: %v", err)
	}

	gw.authResp = nil
	gw.authErr = apperr.Network(&client.APIError{StatusCode: 400, Message: "Invalid credentials"})
	_, err := s.Login(context.Background(), account.Credentials{})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("err = %v, want auth error", err)
	}
	if s.Err() != "Invalid credentials" {
		t.Errorf("error slot = %q", s.Err())
	}
	if u, ok := s.User(); !ok || u.ID != "u1" {
		t.Error("prior session should be untouched")
	}
	if creds.token != "tok" {
		t.Error("prior credential should be untouched")
	}
}

func TestRegister(t *testing.T) {
	gw := &fakeGateway{authResp: &client.AuthResponse{Token: "tok", User: account.User{ID: "u2"}}}
	s := New(gw, &memCreds{})

	if _, err := s.Register(context.Background(), account.Profile{Name: "Bo"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !s.IsAuthenticated() {
		t.Error("expected authenticated after register")
	}
}

func TestLogoutIsLocalAndRunsHooks(t *testing.T) {
	gw := &fakeGateway{authResp: &client.AuthResponse{Token: "tok", User: account.User{ID: "u1"}}}
	creds := &memCreds{}
	s := New(gw, creds)
	if _, err := s.Login(context.Background(), account.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}

	called := false
	s.OnLogout(func() { called = true })

	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.IsAuthenticated() || creds.token != "" || gw.token != "" {
		t.Error("expected all session state cleared")
	}
	if !called {
		t.Error("expected logout hook to run")
	}
}

func TestRequireOwner(t *testing.T) {
	gw := &fakeGateway{authResp: &client.AuthResponse{Token: "tok", User: account.User{ID: "u1"}}}
	s := New(gw, &memCreds{})

	if err := s.RequireOwner("u1"); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("logged out: err = %v", err)
	}

	if _, err := s.Login(context.Background(), account.Credentials{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.RequireOwner("u1 "); err != nil {
		t.Errorf("owner: %v", err)
	}
	if err := s.RequireOwner("u9"); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("non-owner: err = %v", err)
	}
}

func TestUpdateProfileRequiresLogin(t *testing.T) {
	s := New(&fakeGateway{}, &memCreds{})
	if _, err := s.UpdateProfile(context.Background(), account.Profile{Name: "x"}); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("err = %v, want auth error", err)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	if !tokenExpired(signedToken(t, now.Add(-time.Minute)), now) {
		t.Error("expected past exp to be expired")
	}
	if tokenExpired(signedToken(t, now.Add(time.Minute)), now) {
		t.Error("expected future exp to be valid")
	}
	if tokenExpired("not-a-jwt", now) {
		t.Error("opaque tokens are not judged locally")
	}
}
