package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/auth"
	"github.com/MrJamesThe3rd/treasury/internal/discord"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

type DiscordClient interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*discord.Account, error)
}

type Handler struct {
	svc     *user.Service
	tokens  *auth.Tokens
	discord DiscordClient
	authn   *authn.Middleware
}

func NewHandler(svc *user.Service, tokens *auth.Tokens, dc DiscordClient, mw *authn.Middleware) *Handler {
	return &Handler{svc: svc, tokens: tokens, discord: dc, authn: mw}
}

func (h *Handler) Routes(r chi.Router) {
	// Discord redirects the browser here without our bearer token; the
	// signed state names the user instead.
	r.Get("/link-discord/callback", h.discordCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.authn.Authenticate)

		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/me", h.me)
		r.Put("/me", h.updateMe)
		r.Get("/link-discord", h.linkDiscord)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Put("/{id}/rank/{rank}", h.promote)
	})
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,max=64"`
	Password    string `json:"password" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"max=64"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

type updateMeRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=1,max=64"`
	Password    *string `json:"password" validate:"omitempty,min=1,max=128"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=64"`
}

// updateUserRequest has no rank field; unknown fields are rejected.
type updateUserRequest struct {
	updateMeRequest
	IsActive    *bool `json:"is_active"`
	IsSuperuser *bool `json:"is_superuser"`
}

type linkResponse struct {
	URL string `json:"url"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := respond.Page(r, 100)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	users, err := h.svc.List(r.Context(), authn.Actor(r.Context()), user.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponseList(users))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, err := respond.Decode[createUserRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	u, err := h.svc.Create(r.Context(), authn.Actor(r.Context()), user.CreateParams{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		IsActive:    active,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(u))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, ToResponse(authn.CurrentUser(r.Context())))
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	req, err := respond.Decode[updateMeRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.UpdateMe(r.Context(), authn.Actor(r.Context()), user.UpdateMeParams{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.Get(r.Context(), authn.Actor(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := respond.Decode[updateUserRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.Update(r.Context(), authn.Actor(r.Context()), id, user.UpdateParams{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	target, err := rank.Parse(chi.URLParam(r, "rank"))
	if err != nil {
		respond.Error(w, r, apperr.InvalidInput("%v", err))
		return
	}

	u, err := h.svc.PromoteRank(r.Context(), authn.Actor(r.Context()), id, target)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func (h *Handler) linkDiscord(w http.ResponseWriter, r *http.Request) {
	state, err := h.tokens.IssueState(authn.CurrentUser(r.Context()).ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	url, err := h.discord.AuthCodeURL(state)
	if err != nil {
		respond.Error(w, r, discordError(err))
		return
	}

	respond.JSON(w, http.StatusOK, linkResponse{URL: url})
}

func (h *Handler) discordCallback(w http.ResponseWriter, r *http.Request) {
	code, state := r.URL.Query().Get("code"), r.URL.Query().Get("state")
	if code == "" || state == "" {
		respond.Error(w, r, apperr.InvalidInput("code and state are required"))
		return
	}

	userID, err := h.tokens.ParseState(state)
	if err != nil {
		respond.Error(w, r, apperr.Unauthorized("invalid state"))
		return
	}

	acc, err := h.discord.Exchange(r.Context(), code)
	if err != nil {
		respond.Error(w, r, discordError(err))
		return
	}

	u, err := h.svc.LinkDiscord(r.Context(), userID, acc.ID, acc.Username)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(u))
}

func discordError(err error) error {
	if errors.Is(err, discord.ErrNotConfigured) {
		return apperr.NotFound("discord linking is not enabled")
	}

	return apperr.Unauthorized("discord authorization failed: %v", err)
}
