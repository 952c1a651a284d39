package company

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/company"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
	httpuser "github.com/MrJamesThe3rd/treasury/internal/http/user"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
)

type Handler struct {
	svc *company.Service
}

func NewHandler(svc *company.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.mine)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/members", h.members)
	r.Post("/{id}/members/{user_id}/{rank}", h.addMember)
}

type companyRequest struct {
	Name   string     `json:"name" validate:"required,max=128"`
	LogoID *uuid.UUID `json:"logo_id"`
}

type updateCompanyRequest struct {
	Name   *string    `json:"name" validate:"omitempty,min=1,max=128"`
	LogoID *uuid.UUID `json:"logo_id"`
}

type companyResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	LogoID    *uuid.UUID `json:"logo_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toResponse(c *company.Company) companyResponse {
	return companyResponse{
		ID:        c.ID,
		Name:      c.Name,
		LogoID:    c.LogoID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Mine(r.Context(), authn.Actor(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, err := respond.Decode[companyRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.Create(r.Context(), authn.Actor(r.Context()), company.CreateParams{
		Name:   req.Name,
		LogoID: req.LogoID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := respond.Decode[updateCompanyRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.Update(r.Context(), authn.Actor(r.Context()), id, company.UpdateParams{
		Name:   req.Name,
		LogoID: req.LogoID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), authn.Actor(r.Context()), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	users, err := h.svc.Members(r.Context(), authn.Actor(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, httpuser.ToResponseList(users))
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	userID, err := respond.IDParam(r, "user_id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	target, err := rank.Parse(chi.URLParam(r, "rank"))
	if err != nil {
		respond.Error(w, r, apperr.InvalidInput("%v", err))
		return
	}

	u, err := h.svc.AddMember(r.Context(), authn.Actor(r.Context()), id, userID, target)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, httpuser.ToResponse(u))
}
