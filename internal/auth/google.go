package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"habilitaciones/internal/config"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	ErrNotConfigured = errors.New("google auth not configured")
	ErrInvalidState  = errors.New("invalid or expired state")
)

// Provider is the federated sign-in used by the Gate.
type Provider interface {
	// AuthCodeURL starts a sign-in and returns where to send the browser.
	AuthCodeURL() (string, error)
	// Exchange completes a sign-in started by AuthCodeURL.
	Exchange(ctx context.Context, state, code string) (Identity, error)
}

// Google signs administrators in with Google OAuth2.
type Google struct {
	oauthConfig *oauth2.Config
	userInfoURL string
	client      *http.Client
	stateTTL    time.Duration
	states      *stateStore
}

func NewGoogle(cfg config.AuthConfig) *Google {
	return &Google{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: 15 * time.Second},
		stateTTL:    5 * time.Minute,
		states:      newStateStore(),
	}
}

func (g *Google) configured() bool {
	c := g.oauthConfig
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

func (g *Google) AuthCodeURL() (string, error) {
	if !g.configured() {
		return "", ErrNotConfigured
	}
	state := uuid.NewString()
	g.states.put(state, time.Now().Add(g.stateTTL))
	return g.oauthConfig.AuthCodeURL(state), nil
}

func (g *Google) Exchange(ctx context.Context, state, code string) (Identity, error) {
	if !g.configured() {
		return Identity{}, ErrNotConfigured
	}
	if state == "" || code == "" || !g.states.consume(state) {
		return Identity{}, ErrInvalidState
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	token, err := g.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	info, err := g.fetchUserInfo(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch user profile: %w", err)
	}
	if info.Sub == "" {
		return Identity{}, errors.New("invalid user profile")
	}
	return Identity{Subject: "google:" + info.Sub, Email: info.Email, Name: info.Name}, nil
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *Google) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	resp, err := g.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	// The v2 endpoint answers with "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

type stateStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, e := range s.items {
		if now.After(e) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}

// AppendToken adds ?token= to the UI redirect target.
func AppendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
