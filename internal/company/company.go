package company

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
)

var (
	ErrNotFound = apperr.NotFound("company not found")
	// ErrAlreadyMember is returned when the user joined a company while the
	// write was in flight.
	ErrAlreadyMember = apperr.Conflict("user already belongs to a company")
)

// Company owns banks and has users as members.
type Company struct {
	ID        uuid.UUID
	Name      string
	LogoID    *uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
}
