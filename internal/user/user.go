package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/policy"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
)

var (
	ErrNotFound      = apperr.NotFound("user not found")
	ErrUsernameTaken = apperr.Conflict("username already taken")
	ErrDiscordTaken  = apperr.Conflict("discord account already linked to another user")
	// ErrRankChanged is returned by Repository.UpdateRank when the user left
	// the company or became governor in the meantime.
	ErrRankChanged = apperr.Conflict("user membership changed")
)

// User is an account. A user belongs to at most one company and only holds a
// rank while it does.
type User struct {
	ID             uuid.UUID
	Username       string
	DisplayName    string
	DiscordID      *string
	DiscordName    *string
	HashedPassword string
	IsActive       bool
	IsSuperuser    bool
	CompanyID      *uuid.UUID
	Rank           rank.Rank
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

func (u *User) Actor() policy.Actor {
	return policy.Actor{
		ID:        u.ID,
		CompanyID: u.CompanyID,
		Rank:      u.Rank,
		Active:    u.IsActive,
		Superuser: u.IsSuperuser,
	}
}
