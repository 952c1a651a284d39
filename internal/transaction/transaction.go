package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
)

var (
	ErrNotFound = apperr.NotFound("transaction not found")
	// ErrNotPending is returned by conditional repository writes when the row
	// is no longer PENDING.
	ErrNotPending = errors.New("transaction is not pending")
)

// Status represents the lifecycle state of a transaction.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusClosed   Status = "CLOSED"
	StatusDeleted  Status = "DELETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusClosed, StatusDeleted:
		return true
	}

	return false
}

// Transaction is a signed amount recorded against a bank.
type Transaction struct {
	ID         uuid.UUID
	Amount     decimal.Decimal
	Memo       string
	Status     Status
	BankID     uuid.UUID
	CreatorID  uuid.UUID
	ApproverID *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
