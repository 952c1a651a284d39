package bank

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=bank
type Repository interface {
	CreateBank(ctx context.Context, b *Bank) error
	GetBank(ctx context.Context, id uuid.UUID) (*Bank, error)
	UpdateBank(ctx context.Context, b *Bank) error
	// DeleteBank removes the bank and its transactions in one transaction.
	DeleteBank(ctx context.Context, id uuid.UUID) error
	ListBanks(ctx context.Context, companyID uuid.UUID) ([]*Bank, error)

	// Balance sums the approved transactions of a bank.
	Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	// Balances sums approved transactions for every bank of a company.
	// Banks without approved transactions may be absent from the result.
	Balances(ctx context.Context, companyID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name   string
	Status Status
}

type UpdateParams struct {
	Name      *string
	Status    *Status
	CompanyID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, actor policy.Actor, params CreateParams) (*Bank, error) {
	if actor.CompanyID == nil {
		return nil, apperr.NotFound("user has no company")
	}

	companyID := *actor.CompanyID
	if err := policy.Authorize(actor, policy.OpCreateBank, policy.Target{CompanyID: companyID}); err != nil {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = StatusActive
	}

	if !status.Valid() {
		return nil, apperr.InvalidInput("unknown bank status %q", status)
	}

	b := &Bank{
		Name:      params.Name,
		Status:    status,
		CompanyID: companyID,
		Balance:   decimal.Zero,
	}
	if err := s.repo.CreateBank(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// load fetches a bank the actor may see.
func (s *Service) load(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Bank, error) {
	b, err := s.repo.GetBank(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.OpView, policy.Target{CompanyID: b.CompanyID}); err != nil {
		return nil, err
	}

	return b, nil
}

// Get returns the bank with its current balance.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Bank, error) {
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.Balance(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	b.Balance = balance

	return b, nil
}

func (s *Service) Balance(ctx context.Context, actor policy.Actor, id uuid.UUID) (decimal.Decimal, error) {
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return decimal.Zero, err
	}

	return s.repo.Balance(ctx, b.ID)
}

// List returns the banks of actor's company, each with its balance.
func (s *Service) List(ctx context.Context, actor policy.Actor) ([]*Bank, error) {
	if actor.CompanyID == nil {
		return nil, apperr.NotFound("user has no company")
	}

	companyID := *actor.CompanyID
	if err := policy.Authorize(actor, policy.OpView, policy.Target{CompanyID: companyID}); err != nil {
		return nil, err
	}

	banks, err := s.repo.ListBanks(ctx, companyID)
	if err != nil {
		return nil, err
	}

	balances, err := s.repo.Balances(ctx, companyID)
	if err != nil {
		return nil, err
	}

	for _, b := range banks {
		b.Balance = decimal.Zero
		if v, ok := balances[b.ID]; ok {
			b.Balance = v
		}
	}

	return banks, nil
}

func (s *Service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, params UpdateParams) (*Bank, error) {
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.OpEditBank, policy.Target{CompanyID: b.CompanyID}); err != nil {
		return nil, err
	}

	if params.CompanyID != nil && *params.CompanyID != b.CompanyID {
		return nil, apperr.Conflict("a bank cannot move to another company")
	}

	if params.Status != nil {
		if !params.Status.Valid() {
			return nil, apperr.InvalidInput("unknown bank status %q", *params.Status)
		}

		b.Status = *params.Status
	}

	if params.Name != nil {
		b.Name = *params.Name
	}

	if err := s.repo.UpdateBank(ctx, b); err != nil {
		return nil, err
	}

	balance, err := s.repo.Balance(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	b.Balance = balance

	return b, nil
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := policy.Authorize(actor, policy.OpDeleteBank, policy.Target{CompanyID: b.CompanyID}); err != nil {
		return err
	}

	return s.repo.DeleteBank(ctx, b.ID)
}
