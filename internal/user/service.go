package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/auth"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=user
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	// UpdateRank changes the rank of a user that still belongs to companyID
	// and is not a governor. It returns ErrRankChanged otherwise.
	UpdateRank(ctx context.Context, id, companyID uuid.UUID, r rank.Rank) error
	LinkDiscord(ctx context.Context, id uuid.UUID, discordID, discordName string) error
	ListUsers(ctx context.Context, filter ListFilter) ([]*User, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	CompanyID *uuid.UUID
	Limit     int
	Offset    int
}

type CreateParams struct {
	Username    string
	Password    string
	DisplayName string
	IsActive    bool
	IsSuperuser bool
}

// UpdateParams is applied by superusers. Rank is deliberately absent: it only
// changes through company membership operations.
type UpdateParams struct {
	Username    *string
	Password    *string
	DisplayName *string
	IsActive    *bool
	IsSuperuser *bool
}

type UpdateMeParams struct {
	Username    *string
	Password    *string
	DisplayName *string
}

func (s *Service) Create(ctx context.Context, actor policy.Actor, params CreateParams) (*User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}

	return s.create(ctx, params)
}

func (s *Service) create(ctx context.Context, params CreateParams) (*User, error) {
	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:       params.Username,
		DisplayName:    params.DisplayName,
		HashedPassword: hash,
		IsActive:       params.IsActive,
		IsSuperuser:    params.IsSuperuser,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) List(ctx context.Context, actor policy.Actor, filter ListFilter) ([]*User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}

	return s.repo.ListUsers(ctx, filter)
}

// Get returns a user visible to actor: itself, a member of the same company,
// or anyone for a superuser.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.ID == actor.ID || actor.Superuser {
		return u, nil
	}

	if u.CompanyID != nil && actor.MemberOf(*u.CompanyID) {
		return u, nil
	}

	return nil, ErrNotFound
}

func (s *Service) UpdateMe(ctx context.Context, actor policy.Actor, params UpdateMeParams) (*User, error) {
	u, err := s.repo.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, u, UpdateParams{
		Username:    params.Username,
		Password:    params.Password,
		DisplayName: params.DisplayName,
	}); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, params UpdateParams) (*User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, u, params); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) apply(ctx context.Context, u *User, params UpdateParams) error {
	if params.Username != nil {
		u.Username = *params.Username
	}

	if params.DisplayName != nil {
		u.DisplayName = *params.DisplayName
	}

	if params.IsActive != nil {
		u.IsActive = *params.IsActive
	}

	if params.IsSuperuser != nil {
		u.IsSuperuser = *params.IsSuperuser
	}

	if params.Password != nil {
		hash, err := auth.HashPassword(*params.Password)
		if err != nil {
			return err
		}

		u.HashedPassword = hash
	}

	return s.repo.UpdateUser(ctx, u)
}

// PromoteRank sets the rank of another member of actor's company.
// Promotion to governor is always refused.
func (s *Service) PromoteRank(ctx context.Context, actor policy.Actor, id uuid.UUID, r rank.Rank) (*User, error) {
	if r == rank.Governor {
		return nil, apperr.Forbidden("cannot promote to %s", rank.Governor)
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.CompanyID == nil {
		return nil, ErrNotFound
	}

	target := policy.Target{CompanyID: *u.CompanyID, Rank: r, CurrentRank: u.Rank}
	if err := policy.Authorize(actor, policy.OpPromoteRank, target); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRank(ctx, u.ID, *u.CompanyID, r); err != nil {
		return nil, err
	}

	u.Rank = r

	return u, nil
}

// Authenticate checks credentials and returns the matching active user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("incorrect username or password")
		}

		return nil, err
	}

	if err := auth.CheckPassword(u.HashedPassword, password); err != nil {
		return nil, apperr.Unauthorized("incorrect username or password")
	}

	if !u.IsActive {
		return nil, apperr.Forbidden("user is inactive")
	}

	return u, nil
}

func (s *Service) LinkDiscord(ctx context.Context, id uuid.UUID, discordID, discordName string) (*User, error) {
	if err := s.repo.LinkDiscord(ctx, id, discordID, discordName); err != nil {
		return nil, err
	}

	return s.repo.GetUser(ctx, id)
}

// Bootstrap makes sure a superuser named username exists. It is a no-op when
// the username is already taken.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (*User, bool, error) {
	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}

	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up first superuser: %w", err)
	}

	u, err := s.create(ctx, CreateParams{
		Username:    username,
		Password:    password,
		DisplayName: username,
		IsActive:    true,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("creating first superuser: %w", err)
	}

	return u, true, nil
}

func requireSuperuser(actor policy.Actor) error {
	if !actor.Active || !actor.Superuser {
		return apperr.Forbidden("superuser privileges required")
	}

	return nil
}
