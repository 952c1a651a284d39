// Package authn authenticates bearer tokens and carries the caller through
// the request context.
package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/auth"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

type ctxKey struct{}

type UserGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Middleware struct {
	tokens *auth.Tokens
	users  UserGetter
}

func New(tokens *auth.Tokens, users UserGetter) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Authenticate rejects requests without a valid bearer token for an active
// user and stores the user in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r)
		if !ok {
			respond.Error(w, r, apperr.Unauthorized("missing bearer token"))
			return
		}

		id, err := m.tokens.Parse(raw)
		if err != nil {
			respond.Error(w, r, apperr.Unauthorized("could not validate credentials"))
			return
		}

		u, err := m.users.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respond.Error(w, r, apperr.Unauthorized("could not validate credentials"))
				return
			}

			respond.Error(w, r, err)

			return
		}

		if !u.IsActive {
			respond.Error(w, r, apperr.Forbidden("user is inactive"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// CurrentUser returns the authenticated user. It panics outside Authenticate.
func CurrentUser(ctx context.Context) *user.User {
	u, ok := ctx.Value(ctxKey{}).(*user.User)
	if !ok {
		panic("authn: no user in context")
	}

	return u
}

func Actor(ctx context.Context) policy.Actor {
	return CurrentUser(ctx).Actor()
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}
