package transaction_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		from     transaction.Status
		action   transaction.Action
		want     transaction.Status
		wantKind apperr.Kind
	}{
		{name: "EditPending", from: transaction.StatusPending, action: transaction.ActionEdit, want: transaction.StatusPending},
		{name: "ApprovePending", from: transaction.StatusPending, action: transaction.ActionApprove, want: transaction.StatusApproved},
		{name: "DeletePending", from: transaction.StatusPending, action: transaction.ActionDelete, want: ""},
		{name: "EditApproved", from: transaction.StatusApproved, action: transaction.ActionEdit, wantKind: apperr.KindInvalidState},
		{name: "ReapproveApproved", from: transaction.StatusApproved, action: transaction.ActionApprove, wantKind: apperr.KindInvalidState},
		{name: "DeleteApproved", from: transaction.StatusApproved, action: transaction.ActionDelete, wantKind: apperr.KindInvalidState},
		{name: "ApproveClosed", from: transaction.StatusClosed, action: transaction.ActionApprove, wantKind: apperr.KindInvalidState},
		{name: "DeleteDeleted", from: transaction.StatusDeleted, action: transaction.ActionDelete, wantKind: apperr.KindInvalidState},
		{name: "UnknownAction", from: transaction.StatusPending, action: "close", wantKind: apperr.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transaction.Next(tt.from, tt.action)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBalance(t *testing.T) {
	bankID := uuid.New()
	tx := func(amount string, status transaction.Status) *transaction.Transaction {
		return &transaction.Transaction{
			ID:     uuid.New(),
			Amount: decimal.RequireFromString(amount),
			Status: status,
			BankID: bankID,
		}
	}

	t.Run("Empty", func(t *testing.T) {
		assert.True(t, transaction.Balance(nil).IsZero())
	})

	t.Run("OnlyApprovedCount", func(t *testing.T) {
		txs := []*transaction.Transaction{
			tx("100", transaction.StatusApproved),
			tx("50.25", transaction.StatusPending),
			tx("-20.10", transaction.StatusApproved),
			tx("999", transaction.StatusClosed),
		}

		assert.True(t, decimal.RequireFromString("79.90").Equal(transaction.Balance(txs)))
	})

	t.Run("IndependentOfOrder", func(t *testing.T) {
		statuses := []transaction.Status{
			transaction.StatusPending,
			transaction.StatusApproved,
			transaction.StatusClosed,
			transaction.StatusDeleted,
		}

		rng := rand.New(rand.NewPCG(1, 2))

		var txs []*transaction.Transaction

		want := decimal.Zero

		for range 200 {
			amount := decimal.New(rng.Int64N(2_000_000)-1_000_000, -2)
			status := statuses[rng.IntN(len(statuses))]

			if status == transaction.StatusApproved {
				want = want.Add(amount)
			}

			txs = append(txs, &transaction.Transaction{Amount: amount, Status: status})
		}

		for range 20 {
			rng.Shuffle(len(txs), func(i, j int) { txs[i], txs[j] = txs[j], txs[i] })
			assert.True(t, want.Equal(transaction.Balance(txs)))
		}
	})
}
