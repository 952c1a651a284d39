// Package policy decides whether an actor may perform an operation on a
// company-scoped resource.
//
// Checks run in a fixed order: the actor must be active, then company
// membership is checked, then the minimum rank, then ownership. A failed
// membership check is reported as NOT_FOUND so that resources of other
// companies are indistinguishable from missing ones; rank and ownership
// failures are FORBIDDEN.
package policy

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/rank"
)

// Actor is the authenticated user as seen by the policy.
type Actor struct {
	ID        uuid.UUID
	CompanyID *uuid.UUID
	Rank      rank.Rank
	Active    bool
	Superuser bool
}

// MemberOf reports whether the actor belongs to companyID.
func (a Actor) MemberOf(companyID uuid.UUID) bool {
	return a.CompanyID != nil && *a.CompanyID == companyID
}

type Operation int

const (
	OpView Operation = iota
	OpCreateCompany
	OpEditCompany
	OpDeleteCompany
	OpAddMember
	OpPromoteRank
	OpCreateBank
	OpEditBank
	OpDeleteBank
	OpCreateTransaction
	OpEditTransaction
	OpDeleteTransaction
	OpApproveTransaction
)

var opNames = map[Operation]string{
	OpView:               "view",
	OpCreateCompany:      "create company",
	OpEditCompany:        "edit company",
	OpDeleteCompany:      "delete company",
	OpAddMember:          "add member",
	OpPromoteRank:        "promote rank",
	OpCreateBank:         "create bank",
	OpEditBank:           "edit bank",
	OpDeleteBank:         "delete bank",
	OpCreateTransaction:  "create transaction",
	OpEditTransaction:    "edit transaction",
	OpDeleteTransaction:  "delete transaction",
	OpApproveTransaction: "approve transaction",
}

func (o Operation) String() string {
	return opNames[o]
}

// Target describes the resource an operation acts on.
type Target struct {
	// CompanyID owns the resource. Ignored for OpCreateCompany.
	CompanyID uuid.UUID
	// CreatorID is the creator of a transaction.
	CreatorID uuid.UUID
	// Rank is the rank being granted by OpAddMember and OpPromoteRank.
	Rank rank.Rank
	// CurrentRank is the target user's rank before OpPromoteRank.
	CurrentRank rank.Rank
}

type membership int

const (
	memberOfTarget membership = iota
	withoutCompany
)

type rule struct {
	membership membership
	minRank    rank.Rank
	ownership  func(Actor, Target) error
}

var rules = map[Operation]rule{
	OpView:               {},
	OpCreateCompany:      {membership: withoutCompany},
	OpEditCompany:        {minRank: rank.Governor},
	OpDeleteCompany:      {minRank: rank.Governor},
	OpAddMember:          {minRank: rank.Consul, ownership: grantable},
	OpPromoteRank:        {minRank: rank.Consul, ownership: promotable},
	OpCreateBank:         {minRank: rank.Consul},
	OpEditBank:           {minRank: rank.Consul},
	OpDeleteBank:         {minRank: rank.Governor},
	OpCreateTransaction:  {},
	OpEditTransaction:    {minRank: rank.Consul, ownership: creatorOrGovernor},
	OpDeleteTransaction:  {minRank: rank.Consul, ownership: creatorOrGovernor},
	OpApproveTransaction: {minRank: rank.Consul},
}

// Authorize returns nil when actor may perform op on target, or an
// *apperr.Error naming the reason otherwise.
func Authorize(actor Actor, op Operation, target Target) error {
	r, ok := rules[op]
	if !ok {
		return apperr.Forbidden("unknown operation %d", op)
	}

	if !actor.Active {
		return apperr.Forbidden("user is inactive")
	}

	// Governance is never handed out through promotion.
	if op == OpPromoteRank && target.Rank == rank.Governor {
		return apperr.Forbidden("cannot promote to %s", rank.Governor)
	}

	switch r.membership {
	case withoutCompany:
		if actor.CompanyID != nil {
			return apperr.Conflict("user already belongs to a company")
		}
	case memberOfTarget:
		if !actor.MemberOf(target.CompanyID) {
			return apperr.NotFound("company not found")
		}
	}

	if r.minRank != rank.None && !actor.Rank.Meets(r.minRank) {
		return apperr.Forbidden("%s requires rank %s or higher", op, r.minRank)
	}

	if r.ownership != nil {
		return r.ownership(actor, target)
	}

	return nil
}

func creatorOrGovernor(actor Actor, target Target) error {
	if actor.Rank == rank.Governor || actor.ID == target.CreatorID {
		return nil
	}

	return apperr.Forbidden("only the creator or a %s may change this transaction", rank.Governor)
}

func grantable(_ Actor, target Target) error {
	if !target.Rank.Valid() {
		return apperr.InvalidInput("a member needs a rank")
	}

	if target.Rank == rank.Governor {
		return apperr.Forbidden("cannot add a member as %s", rank.Governor)
	}

	return nil
}

func promotable(_ Actor, target Target) error {
	if !target.Rank.Valid() {
		return apperr.InvalidInput("a member needs a rank")
	}

	if target.CurrentRank == rank.Governor {
		return apperr.Forbidden("the rank of a %s cannot be changed", rank.Governor)
	}

	return nil
}
