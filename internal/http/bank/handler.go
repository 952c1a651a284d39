package bank

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/bank"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
)

type Handler struct {
	svc *bank.Service
}

func NewHandler(svc *bank.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers bank endpoints. Transactions under /{id}/transactions are
// mounted separately by the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/balance", h.balance)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createBankRequest struct {
	Name   string      `json:"name" validate:"required,max=64"`
	Status bank.Status `json:"status" validate:"omitempty,oneof=ACTIVE CLOSED PENDING DELETED"`
}

type updateBankRequest struct {
	Name      *string      `json:"name" validate:"omitempty,min=1,max=64"`
	Status    *bank.Status `json:"status" validate:"omitempty,oneof=ACTIVE CLOSED PENDING DELETED"`
	CompanyID *uuid.UUID   `json:"company_id"`
}

type bankResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Status    bank.Status     `json:"status"`
	CompanyID uuid.UUID       `json:"company_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type balanceResponse struct {
	BankID  uuid.UUID       `json:"bank_id"`
	Balance decimal.Decimal `json:"balance"`
}

func toResponse(b *bank.Bank) bankResponse {
	return bankResponse{
		ID:        b.ID,
		Name:      b.Name,
		Status:    b.Status,
		CompanyID: b.CompanyID,
		Balance:   b.Balance,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	banks, err := h.svc.List(r.Context(), authn.Actor(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]bankResponse, len(banks))
	for i, b := range banks {
		resp[i] = toResponse(b)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, err := respond.Decode[createBankRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	b, err := h.svc.Create(r.Context(), authn.Actor(r.Context()), bank.CreateParams{
		Name:   req.Name,
		Status: req.Status,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(b))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	b, err := h.svc.Get(r.Context(), authn.Actor(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	balance, err := h.svc.Balance(r.Context(), authn.Actor(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, balanceResponse{BankID: id, Balance: balance})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := respond.Decode[updateBankRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	b, err := h.svc.Update(r.Context(), authn.Actor(r.Context()), id, bank.UpdateParams{
		Name:      req.Name,
		Status:    req.Status,
		CompanyID: req.CompanyID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(b))
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
