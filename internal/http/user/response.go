package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/rank"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

// Response is the public view of a user. It never carries the password hash.
type Response struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	DiscordID   *string    `json:"discord_id,omitempty"`
	DiscordName *string    `json:"discord_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	CompanyID   *uuid.UUID `json:"company_id"`
	Rank        *rank.Rank `json:"rank"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func ToResponse(u *user.User) Response {
	resp := Response{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		DiscordID:   u.DiscordID,
		DiscordName: u.DiscordName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CompanyID:   u.CompanyID,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}

	if u.Rank != rank.None {
		resp.Rank = new(u.Rank)
	}

	return resp
}

func ToResponseList(users []*user.User) []Response {
	resp := make([]Response, len(users))
	for i, u := range users {
		resp[i] = ToResponse(u)
	}

	return resp
}
