package bank

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
)

var ErrNotFound = apperr.NotFound("bank not found")

// Status is the lifecycle state of a bank.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusClosed  Status = "CLOSED"
	StatusPending Status = "PENDING"
	StatusDeleted Status = "DELETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusPending, StatusDeleted:
		return true
	}

	return false
}

// AcceptsTransactions reports whether new transactions may be recorded.
func (s Status) AcceptsTransactions() bool {
	return s != StatusClosed && s != StatusDeleted
}

// Bank is an account held by a company.
type Bank struct {
	ID        uuid.UUID
	Name      string
	Status    Status
	CompanyID uuid.UUID
	// Balance is the sum of approved transactions, computed on every read.
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt *time.Time
}
