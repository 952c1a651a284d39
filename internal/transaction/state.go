package transaction

import (
	"github.com/MrJamesThe3rd/treasury/internal/apperr"
)

// Action is a mutation applied to an existing transaction.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionApprove Action = "approve"
	ActionDelete  Action = "delete"
)

// Next returns the status a transaction ends up in after action, or an
// INVALID_STATE error if action is not allowed from from. Delete yields ""
// since the row is removed.
//
//	PENDING --edit-->    PENDING
//	PENDING --approve--> APPROVED
//	PENDING --delete-->  (removed)
//
// Nothing leaves APPROVED, CLOSED or DELETED.
func Next(from Status, action Action) (Status, error) {
	if from != StatusPending {
		return from, apperr.InvalidState("cannot %s a transaction that is %s", action, from)
	}

	switch action {
	case ActionEdit:
		return StatusPending, nil
	case ActionApprove:
		return StatusApproved, nil
	case ActionDelete:
		return "", nil
	}

	return from, apperr.InvalidInput("unknown action %q", action)
}
