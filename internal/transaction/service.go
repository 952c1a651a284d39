package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/bank"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	// The following writes only apply while the row is PENDING and return
	// ErrNotPending otherwise.
	UpdatePending(ctx context.Context, tx *Transaction) error
	Approve(ctx context.Context, id, approverID uuid.UUID) error
	DeletePending(ctx context.Context, id uuid.UUID) error

	BeginBatch(ctx context.Context, bankID uuid.UUID) (BatchTx, error)
}

type BatchTx interface {
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type BankFinder interface {
	GetBank(ctx context.Context, id uuid.UUID) (*bank.Bank, error)
}

type Service struct {
	repo  Repository
	banks BankFinder
}

func NewService(repo Repository, banks BankFinder) *Service {
	return &Service{repo: repo, banks: banks}
}

type CreateParams struct {
	Amount decimal.Decimal
	Memo   string
}

// EditParams carries the mutable fields. Status is accepted so callers can
// pass through what they received, but it is never applied.
type EditParams struct {
	Amount *decimal.Decimal
	Memo   *string
	Status *Status
}

type ListFilter struct {
	CompanyID *uuid.UUID
	BankID    *uuid.UUID
	Status    *Status
	Limit     int
	Offset    int
}

// openBank loads a bank the actor may record transactions on.
func (s *Service) openBank(ctx context.Context, actor policy.Actor, bankID uuid.UUID) (*bank.Bank, error) {
	b, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.OpCreateTransaction, policy.Target{CompanyID: b.CompanyID}); err != nil {
		return nil, err
	}

	if !b.Status.AcceptsTransactions() {
		return nil, apperr.InvalidState("bank is %s", b.Status)
	}

	return b, nil
}

// Create records a PENDING transaction on bankID.
func (s *Service) Create(ctx context.Context, actor policy.Actor, bankID uuid.UUID, params CreateParams) (*Transaction, error) {
	if _, err := s.openBank(ctx, actor, bankID); err != nil {
		return nil, err
	}

	tx := newPending(bankID, actor.ID, params)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// CreateBatch records all params as PENDING transactions atomically.
func (s *Service) CreateBatch(ctx context.Context, actor policy.Actor, bankID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if _, err := s.openBank(ctx, actor, bankID); err != nil {
		return nil, err
	}

	if len(params) == 0 {
		return nil, nil
	}

	btx, err := s.repo.BeginBatch(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer btx.Rollback()

	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = newPending(bankID, actor.ID, p)
	}

	if err := btx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := btx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return txs, nil
}

func newPending(bankID, creatorID uuid.UUID, p CreateParams) *Transaction {
	return &Transaction{
		Amount:    p.Amount,
		Memo:      p.Memo,
		Status:    StatusPending,
		BankID:    bankID,
		CreatorID: creatorID,
	}
}

// load returns the transaction and the company that owns it, checking that
// actor is a member.
func (s *Service) load(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Transaction, uuid.UUID, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, uuid.Nil, err
	}

	b, err := s.banks.GetBank(ctx, tx.BankID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, uuid.Nil, ErrNotFound
		}

		return nil, uuid.Nil, err
	}

	if err := policy.Authorize(actor, policy.OpView, policy.Target{CompanyID: b.CompanyID}); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, uuid.Nil, ErrNotFound
		}

		return nil, uuid.Nil, err
	}

	return tx, b.CompanyID, nil
}

func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Transaction, error) {
	tx, _, err := s.load(ctx, actor, id)
	return tx, err
}

// Edit changes amount and memo of a PENDING transaction. The status is
// always preserved.
func (s *Service) Edit(ctx context.Context, actor policy.Actor, id uuid.UUID, params EditParams) (*Transaction, error) {
	tx, companyID, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if _, err := Next(tx.Status, ActionEdit); err != nil {
		return nil, err
	}

	target := policy.Target{CompanyID: companyID, CreatorID: tx.CreatorID}
	if err := policy.Authorize(actor, policy.OpEditTransaction, target); err != nil {
		return nil, err
	}

	if params.Amount != nil {
		tx.Amount = *params.Amount
	}

	if params.Memo != nil {
		tx.Memo = *params.Memo
	}

	if err := s.repo.UpdatePending(ctx, tx); err != nil {
		return nil, s.raced(ctx, id, ActionEdit, err)
	}

	return tx, nil
}

// Approve moves a PENDING transaction to APPROVED and records the approver.
func (s *Service) Approve(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Transaction, error) {
	tx, companyID, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	next, err := Next(tx.Status, ActionApprove)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.OpApproveTransaction, policy.Target{CompanyID: companyID}); err != nil {
		return nil, err
	}

	if err := s.repo.Approve(ctx, id, actor.ID); err != nil {
		return nil, s.raced(ctx, id, ActionApprove, err)
	}

	tx.Status = next
	tx.ApproverID = &actor.ID

	return tx, nil
}

// Delete removes a PENDING transaction.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	tx, companyID, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}

	if _, err := Next(tx.Status, ActionDelete); err != nil {
		return err
	}

	target := policy.Target{CompanyID: companyID, CreatorID: tx.CreatorID}
	if err := policy.Authorize(actor, policy.OpDeleteTransaction, target); err != nil {
		return err
	}

	if err := s.repo.DeletePending(ctx, id); err != nil {
		return s.raced(ctx, id, ActionDelete, err)
	}

	return nil
}

// raced translates a failed conditional write. When another request moved
// the row out of PENDING first, the caller sees the state it lost to.
func (s *Service) raced(ctx context.Context, id uuid.UUID, action Action, err error) error {
	if !errors.Is(err, ErrNotPending) {
		return err
	}

	current, getErr := s.repo.GetTransaction(ctx, id)
	if getErr != nil {
		return getErr
	}

	if _, stateErr := Next(current.Status, action); stateErr != nil {
		return stateErr
	}

	return apperr.InvalidState("transaction changed concurrently")
}

// ListCompany lists transactions across all banks of actor's company.
// Without an explicit status only APPROVED transactions are returned.
func (s *Service) ListCompany(ctx context.Context, actor policy.Actor, status *Status, limit, offset int) ([]*Transaction, error) {
	if actor.CompanyID == nil {
		return nil, apperr.NotFound("user has no company")
	}

	if status == nil {
		status = new(StatusApproved)
	}

	if !status.Valid() {
		return nil, apperr.InvalidInput("unknown transaction status %q", *status)
	}

	return s.repo.ListTransactions(ctx, ListFilter{
		CompanyID: actor.CompanyID,
		Status:    status,
		Limit:     limit,
		Offset:    offset,
	})
}

// ListBank lists the transactions of one bank, optionally by status.
func (s *Service) ListBank(ctx context.Context, actor policy.Actor, bankID uuid.UUID, status *Status) ([]*Transaction, error) {
	b, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.OpView, policy.Target{CompanyID: b.CompanyID}); err != nil {
		return nil, err
	}

	if status != nil && !status.Valid() {
		return nil, apperr.InvalidInput("unknown transaction status %q", *status)
	}

	return s.repo.ListTransactions(ctx, ListFilter{BankID: &bankID, Status: status})
}
