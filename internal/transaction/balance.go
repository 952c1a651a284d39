package transaction

import (
	"github.com/shopspring/decimal"
)

// Balance sums the amounts of the approved transactions in txs. Order does
// not matter and an empty set sums to zero.
func Balance(txs []*Transaction) decimal.Decimal {
	sum := decimal.Zero

	for _, tx := range txs {
		if tx.Status != StatusApproved {
			continue
		}

		sum = sum.Add(tx.Amount)
	}

	return sum
}
