// Package auth signs administrators in through a single federated provider,
// issues session tokens and announces session changes to subscribers.
package auth

import (
	"context"
	"sync"

	"habilitaciones/internal/logging"
	"habilitaciones/internal/metrics"
)

// EventKind tells whether a session started or ended.
type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event is published on every session change. SessionID is the token id, so
// an administrator signed in from two browsers has two sessions.
type Event struct {
	Kind      EventKind
	SessionID string
	Identity  Identity
}

// Gate owns the session lifecycle. Subscribers are called synchronously in
// subscription order.
type Gate struct {
	provider Provider
	tokens   *Tokens
	log      *logging.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	order  []int
}

func NewGate(provider Provider, tokens *Tokens, log *logging.Logger, m *metrics.Metrics) *Gate {
	return &Gate{
		provider: provider,
		tokens:   tokens,
		log:      log.With("auth"),
		metrics:  m,
		subs:     make(map[int]func(Event)),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (g *Gate) Subscribe(fn func(Event)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.order = append(g.order, id)
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
		for i, o := range g.order {
			if o == id {
				g.order = append(g.order[:i:i], g.order[i+1:]...)
				break
			}
		}
	}
}

func (g *Gate) publish(ev Event) {
	g.mu.RLock()
	fns := make([]func(Event), 0, len(g.order))
	for _, id := range g.order {
		fns = append(fns, g.subs[id])
	}
	g.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// StartSignIn returns the provider URL the browser should visit.
func (g *Gate) StartSignIn() (string, error) {
	return g.provider.AuthCodeURL()
}

// CompleteSignIn finishes the provider round trip and issues a session token.
func (g *Gate) CompleteSignIn(ctx context.Context, state, code string) (string, Identity, error) {
	id, err := g.provider.Exchange(ctx, state, code)
	if err != nil {
		g.metrics.SignIn(metrics.ResultError)
		g.log.Error("sign_in", err, nil)
		return "", Identity{}, err
	}
	token, claims, err := g.tokens.Issue(id)
	if err != nil {
		g.metrics.SignIn(metrics.ResultError)
		g.log.Error("sign_in", err, map[string]any{"email": id.Email})
		return "", Identity{}, err
	}

	g.metrics.SignIn(metrics.ResultSuccess)
	g.log.Info("sign_in", map[string]any{"email": id.Email})
	g.publish(Event{Kind: SignedIn, SessionID: claims.ID, Identity: id})
	return token, id, nil
}

// Authenticate resolves a session token to its identity.
func (g *Gate) Authenticate(token string) (*Claims, error) {
	return g.tokens.Verify(token)
}

// SignOut revokes the token and announces the end of the session.
func (g *Gate) SignOut(token string) error {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return err
	}
	g.tokens.Revoke(claims)
	id := claims.Identity()
	g.log.Info("sign_out", map[string]any{"email": id.Email})
	g.publish(Event{Kind: SignedOut, SessionID: claims.ID, Identity: id})
	return nil
}
