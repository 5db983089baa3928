package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"habilitaciones/internal/config"
	"habilitaciones/internal/logging"
)

type fakeProvider struct {
	id  Identity
	err error
}

func (p fakeProvider) AuthCodeURL() (string, error) { return "https://accounts.example/auth", nil }

func (p fakeProvider) Exchange(context.Context, string, string) (Identity, error) {
	return p.id, p.err
}

func TestTokens_IssueVerifyRevoke(t *testing.T) {
	tokens, err := NewTokens("s3cret", time.Hour)
	require.NoError(t, err)

	signed, claims, err := tokens.Issue(Identity{Subject: "google:1", Email: "ana@muni.gob.ar"})
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	got, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "google:1", Email: "ana@muni.gob.ar"}, got.Identity())

	tokens.Revoke(got)
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrRevokedToken)

	_, _, err = tokens.Issue(Identity{})
	assert.Error(t, err)
}

func TestTokens_Rejects(t *testing.T) {
	tokens, err := NewTokens("s3cret", time.Hour)
	require.NoError(t, err)

	_, err = tokens.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, _ := NewTokens("other", time.Hour)
	signed, _, _ := other.Issue(Identity{Subject: "google:1"})
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return past }
	expired, _, _ := tokens.Issue(Identity{Subject: "google:1"})
	tokens.now = time.Now
	_, err = tokens.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "google:1"}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	_, err = tokens.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokens("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestGate_SignInAndOut(t *testing.T) {
	tokens, _ := NewTokens("s3cret", time.Hour)
	id := Identity{Subject: "google:42", Email: "revisor@muni.gob.ar"}
	gate := NewGate(fakeProvider{id: id}, tokens, logging.Nop(), nil)

	var events []Event
	unsubscribe := gate.Subscribe(func(ev Event) { events = append(events, ev) })

	token, got, err := gate.CompleteSignIn(context.Background(), "state", "code")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	claims, err := gate.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "revisor@muni.gob.ar", claims.Email)

	second, _, err := gate.CompleteSignIn(context.Background(), "state", "code")
	require.NoError(t, err)

	require.NoError(t, gate.SignOut(token))
	_, err = gate.Authenticate(token)
	assert.ErrorIs(t, err, ErrRevokedToken)
	assert.ErrorIs(t, gate.SignOut(token), ErrRevokedToken)

	_, err = gate.Authenticate(second)
	assert.NoError(t, err, "other sessions of the same administrator stay valid")

	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: SignedIn, SessionID: claims.ID, Identity: id}, events[0])
	assert.Equal(t, SignedIn, events[1].Kind)
	assert.NotEqual(t, claims.ID, events[1].SessionID)
	assert.Equal(t, Event{Kind: SignedOut, SessionID: claims.ID, Identity: id}, events[2])

	unsubscribe()
	_, _, err = gate.CompleteSignIn(context.Background(), "state", "code")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestGate_SignInFailure(t *testing.T) {
	tokens, _ := NewTokens("s3cret", time.Hour)
	gate := NewGate(fakeProvider{err: ErrInvalidState}, tokens, logging.Nop(), nil)

	called := false
	gate.Subscribe(func(Event) { called = true })

	_, _, err := gate.CompleteSignIn(context.Background(), "s", "c")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, called)
}

func TestGoogle_Exchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "123", "email": "ana@muni.gob.ar", "name": "Ana"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGoogle(config.AuthConfig{GoogleClientID: "id", GoogleClientSecret: "secret", GoogleRedirectURL: "http://localhost/cb"})
	g.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userInfoURL = srv.URL + "/userinfo"
	g.client = srv.Client()

	authURL, err := g.AuthCodeURL()
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	id, err := g.Exchange(context.Background(), state, "code")
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "google:123", Email: "ana@muni.gob.ar", Name: "Ana"}, id)

	_, err = g.Exchange(context.Background(), state, "code")
	assert.ErrorIs(t, err, ErrInvalidState, "state is single use")
}

func TestGoogle_NotConfigured(t *testing.T) {
	g := NewGoogle(config.AuthConfig{})
	_, err := g.AuthCodeURL()
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.Exchange(context.Background(), "s", "c")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestAppendToken(t *testing.T) {
	got, err := AppendToken("https://panel.example/admin?tab=1", "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://panel.example/admin?tab=1&token=abc", got)

	_, err = AppendToken("", "abc")
	assert.Error(t, err)
}
