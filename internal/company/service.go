package company

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/policy"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=company
type Repository interface {
	// CreateCompany inserts c and makes governorID its governor in one
	// transaction. It returns ErrAlreadyMember if the user has a company.
	CreateCompany(ctx context.Context, c *Company, governorID uuid.UUID) error
	GetCompany(ctx context.Context, id uuid.UUID) (*Company, error)
	UpdateCompany(ctx context.Context, c *Company) error
	// DeleteCompany detaches every member and removes the company together
	// with its banks and their transactions.
	DeleteCompany(ctx context.Context, id uuid.UUID) error
	// AddMember attaches a user without a company. It returns
	// ErrAlreadyMember otherwise.
	AddMember(ctx context.Context, companyID, userID uuid.UUID, r rank.Rank) error
}

type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	ListUsers(ctx context.Context, filter user.ListFilter) ([]*user.User, error)
}

type Service struct {
	repo  Repository
	users UserReader
}

func NewService(repo Repository, users UserReader) *Service {
	return &Service{repo: repo, users: users}
}

type CreateParams struct {
	Name   string
	LogoID *uuid.UUID
}

type UpdateParams struct {
	Name   *string
	LogoID *uuid.UUID
}

// Mine returns the company actor belongs to.
func (s *Service) Mine(ctx context.Context, actor policy.Actor) (*Company, error) {
	if actor.CompanyID == nil {
		return nil, ErrNotFound
	}

	return s.Get(ctx, actor, *actor.CompanyID)
}

func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Company, error) {
	if err := policy.Authorize(actor, policy.OpView, policy.Target{CompanyID: id}); err != nil {
		return nil, err
	}

	return s.repo.GetCompany(ctx, id)
}

// Create founds a company; the actor becomes its governor.
func (s *Service) Create(ctx context.Context, actor policy.Actor, params CreateParams) (*Company, error) {
	if err := policy.Authorize(actor, policy.OpCreateCompany, policy.Target{}); err != nil {
		return nil, err
	}

	c := &Company{
		Name:   params.Name,
		LogoID: params.LogoID,
	}
	if err := s.repo.CreateCompany(ctx, c, actor.ID); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, params UpdateParams) (*Company, error) {
	if err := policy.Authorize(actor, policy.OpEditCompany, policy.Target{CompanyID: id}); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		c.Name = *params.Name
	}

	if params.LogoID != nil {
		c.LogoID = params.LogoID
	}

	if err := s.repo.UpdateCompany(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Authorize(actor, policy.OpDeleteCompany, policy.Target{CompanyID: id}); err != nil {
		return err
	}

	return s.repo.DeleteCompany(ctx, id)
}

// AddMember attaches userID to the company at rank r.
func (s *Service) AddMember(ctx context.Context, actor policy.Actor, companyID, userID uuid.UUID, r rank.Rank) (*user.User, error) {
	target := policy.Target{CompanyID: companyID, Rank: r}
	if err := policy.Authorize(actor, policy.OpAddMember, target); err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.CompanyID != nil {
		return nil, ErrAlreadyMember
	}

	if err := s.repo.AddMember(ctx, companyID, userID, r); err != nil {
		return nil, err
	}

	u.CompanyID = &companyID
	u.Rank = r

	return u, nil
}

func (s *Service) Members(ctx context.Context, actor policy.Actor, companyID uuid.UUID) ([]*user.User, error) {
	if err := policy.Authorize(actor, policy.OpView, policy.Target{CompanyID: companyID}); err != nil {
		return nil, err
	}

	return s.users.ListUsers(ctx, user.ListFilter{CompanyID: &companyID})
}
