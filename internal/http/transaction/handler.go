package transaction

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	"github.com/MrJamesThe3rd/treasury/internal/http/respond"
	"github.com/MrJamesThe3rd/treasury/internal/importer"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	svc    *transaction.Service
	parser *importer.Parser
}

func NewHandler(svc *transaction.Service, parser *importer.Parser) *Handler {
	return &Handler{svc: svc, parser: parser}
}

// Routes serves /transactions.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.listCompany)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.edit)
	r.Put("/{id}/approve", h.approve)
	r.Delete("/{id}", h.delete)
}

// BankRoutes serves /banks/{id}/transactions.
func (h *Handler) BankRoutes(r chi.Router) {
	r.Get("/", h.listBank)
	r.Post("/", h.create)
	r.Post("/import", h.importCSV)
}

type createTransactionRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Memo   string           `json:"memo" validate:"max=1024"`
}

// editTransactionRequest accepts status so clients can send back what they
// read. It is ignored.
type editTransactionRequest struct {
	Amount *decimal.Decimal    `json:"amount"`
	Memo   *string             `json:"memo" validate:"omitempty,max=1024"`
	Status *transaction.Status `json:"status"`
}

type transactionResponse struct {
	ID         uuid.UUID          `json:"id"`
	Amount     decimal.Decimal    `json:"amount"`
	Memo       string             `json:"memo"`
	Status     transaction.Status `json:"status"`
	BankID     uuid.UUID          `json:"bank_id"`
	CreatorID  uuid.UUID          `json:"creator_id"`
	ApproverID *uuid.UUID         `json:"approver_id"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  *time.Time         `json:"updated_at,omitempty"`
}

type importResponse struct {
	Imported     int                   `json:"imported"`
	Transactions []transactionResponse `json:"transactions"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		Amount:     tx.Amount,
		Memo:       tx.Memo,
		Status:     tx.Status,
		BankID:     tx.BankID,
		CreatorID:  tx.CreatorID,
		ApproverID: tx.ApproverID,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

func statusParam(r *http.Request) (*transaction.Status, error) {
	s := r.URL.Query().Get("status")
	if s == "" {
		return nil, nil
	}

	status := transaction.Status(s)
	if !status.Valid() {
		return nil, apperr.InvalidInput("unknown status %q", s)
	}

	return &status, nil
}

func (h *Handler) listCompany(w http.ResponseWriter, r *http.Request) {
	status, err := statusParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	limit, offset, err := respond.Page(r, 100)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.ListCompany(r.Context(), authn.Actor(r.Context()), status, limit, offset)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) listBank(w http.ResponseWriter, r *http.Request) {
	bankID, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	status, err := statusParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.ListBank(r.Context(), authn.Actor(r.Context()), bankID, status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	bankID, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := respond.Decode[createTransactionRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), authn.Actor(r.Context()), bankID, transaction.CreateParams{
		Amount: *req.Amount,
		Memo:   req.Memo,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	bankID, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respond.Error(w, r, apperr.InvalidInput("failed to parse form: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respond.Error(w, r, apperr.InvalidInput("file is required"))
			return
		}

		respond.Error(w, r, apperr.InvalidInput("failed to read file: %v", err))

		return
	}
	defer file.Close()

	params, err := h.parser.Parse(file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.CreateBatch(r.Context(), authn.Actor(r.Context()), bankID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, importResponse{
		Imported:     len(txs),
		Transactions: toResponseList(txs),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), authn.Actor(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := respond.Decode[editTransactionRequest](w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Edit(r.Context(), authn.Actor(r.Context()), id, transaction.EditParams{
		Amount: req.Amount,
		Memo:   req.Memo,
		Status: req.Status,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Approve(r.Context(), authn.Actor(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
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
