// Package identity resolves the acting user of an operation.
package identity

import (
	"context"
	"crypto/subtle"

	"github.com/twiced-technology-gmbh/cadence/internal/config"
)

// Actor is the user performing an operation. A nil *Actor means the
// system.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName returns the name, falling back to the id.
func (a *Actor) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Resolver maps credentials to actors.
type Resolver interface {
	// ByToken returns the actor owning token, or nil.
	ByToken(ctx context.Context, token string) (*Actor, error)
	// ByID returns the actor with the given id, or nil.
	ByID(ctx context.Context, id string) (*Actor, error)
}

// Users resolves actors from the configured user list.
type Users struct {
	users []config.UserConfig
}

var _ Resolver = (*Users)(nil)

// FromConfig returns a resolver over cfg's users.
func FromConfig(cfg *config.Config) *Users {
	return &Users{users: append([]config.UserConfig(nil), cfg.Users...)}
}

// ByToken compares tokens in constant time and checks every user.
func (u *Users) ByToken(_ context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, nil
	}
	var found *Actor
	for _, user := range u.users {
		if user.Token == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(user.Token), []byte(token)) == 1 {
			found = &Actor{ID: user.ID, Name: user.Name}
		}
	}
	return found, nil
}

// ByID looks up a user by id. On a board with no users configured any id
// resolves, to an actor named after it.
func (u *Users) ByID(_ context.Context, id string) (*Actor, error) {
	if id == "" {
		return nil, nil
	}
	for _, user := range u.users {
		if user.ID == id {
			return &Actor{ID: user.ID, Name: user.Name}, nil
		}
	}
	if len(u.users) == 0 {
		return &Actor{ID: id, Name: id}, nil
	}
	return nil, nil
}

type ctxKey struct{}

// WithActor attaches a to ctx.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor attached to ctx, or nil.
func FromContext(ctx context.Context) *Actor {
	a, _ := ctx.Value(ctxKey{}).(*Actor)
	return a
}
