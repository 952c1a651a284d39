package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeAccess = "access"
	purposeState  = "discord_state"

	stateExpiry = 10 * time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies HS256 bearer tokens whose subject is a user id.
type Tokens struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokens(secret string, expiry time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue returns a signed access token for userID and its expiry.
func (t *Tokens) Issue(userID uuid.UUID) (string, time.Time, error) {
	return t.sign(userID, purposeAccess, t.expiry)
}

// Parse verifies an access token and returns the user id it was issued for.
func (t *Tokens) Parse(token string) (uuid.UUID, error) {
	return t.verify(token, purposeAccess)
}

// IssueState returns a short lived token used as the OAuth state parameter
// while linking an external account to userID.
func (t *Tokens) IssueState(userID uuid.UUID) (string, error) {
	s, _, err := t.sign(userID, purposeState, stateExpiry)
	return s, err
}

func (t *Tokens) ParseState(token string) (uuid.UUID, error) {
	return t.verify(token, purposeState)
}

func (t *Tokens) sign(userID uuid.UUID, purpose string, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"typ": purpose,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, exp, nil
}

func (t *Tokens) verify(raw, purpose string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}

	if typ, _ := claims["typ"].(string); typ != purpose {
		return uuid.Nil, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return id, nil
}
