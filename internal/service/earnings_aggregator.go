package service

import (
	"math"

	"github.com/portfolio-reconciler/internal/identity"
)

// AggregateEarnings sums, in minor units, every transaction of the realized
// reports paid for tokenID to investor. A token can be paid by several reports,
// so every transaction is visited.
func AggregateEarnings(tokenID string, investor identity.Matcher, realized []Report) int64 {
	var total int64
	for _, r := range realized {
		for _, tx := range r.Transactions {
			if tx.TokenID == tokenID && investor.Matches(tx.Recipient) {
				total = addAmount(total, tx.Amount)
			}
		}
	}
	return total
}

// addAmount adds two non-negative amounts, saturating instead of wrapping
func addAmount(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
