package login

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/auth"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
	httpuser "github.com/MrJamesThe3rd/treasury/internal/http/user"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

type Handler struct {
	users  *user.Service
	tokens *auth.Tokens
	authn  *authn.Middleware
}

func NewHandler(users *user.Service, tokens *auth.Tokens, mw *authn.Middleware) *Handler {
	return &Handler{users: users, tokens: tokens, authn: mw}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/access-token", h.accessToken)
	r.With(h.authn.Authenticate).Post("/test-token", h.testToken)
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// accessToken accepts the OAuth2 password form or a JSON body.
func (h *Handler) accessToken(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

func (h *Handler) testToken(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, httpuser.ToResponse(authn.CurrentUser(r.Context())))
}

func readCredentials(r *http.Request) (*credentials, error) {
	var creds credentials

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return nil, apperr.InvalidInput("invalid request body: %v", err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, apperr.InvalidInput("invalid form: %v", err)
		}

		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
	}

	if err := respond.Validate(&creds); err != nil {
		return nil, err
	}

	return &creds, nil
}
