package service

import (
	"fmt"
	"sort"
	"strconv"

	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/identity"
	"github.com/portfolio-reconciler/internal/types"
)

// BuildHistory produces the investor's payout history, most recent first.
//
// Reports that are neither distributed nor carry transactions yield one
// "upcoming" placeholder per owned token of the report's entity. Transactions
// paid to the investor yield one entry each, "received" when the parent report
// is distributed. Entries with equal dates keep report order, then transaction
// order.
func BuildHistory(reports []Report, owned []Token, profiles ProfileLookup, investor identity.Matcher, diag *Diagnostics) []types.HistoryEntry {
	titles := make(map[string]string, len(owned))
	for _, t := range owned {
		titles[t.ID] = tokenTitle(t)
	}

	entries := make([]types.HistoryEntry, 0)
	for _, r := range reports {
		if len(r.Transactions) == 0 {
			if r.Distributed {
				continue
			}
			for _, t := range owned {
				if t.EntityID == "" || t.EntityID != r.EntityID {
					continue
				}
				entries = append(entries, types.HistoryEntry{
					ID:              PlaceholderKey(t.ID, r),
					TokenID:         t.ID,
					TokenTitle:      titles[t.ID],
					CounterpartName: resolveEntity(profiles, r.EntityID, diag).Name,
					AmountDisplay:   types.PendingAmountDisplay,
					Date:            r.Date,
					Status:          types.HistoryStatusUpcoming,
				})
			}
			continue
		}

		status := types.HistoryStatusUpcoming
		if r.Distributed {
			status = types.HistoryStatusReceived
		}

		for _, tx := range r.Transactions {
			if !investor.Matches(tx.Recipient) {
				continue
			}

			title, ok := titles[tx.TokenID]
			if !ok {
				title = fmt.Sprintf("Token #%s", tx.TokenID)
				diag.Report(apperrors.NewUnresolvedTokenError(tx.TokenID))
			}

			entries = append(entries, types.HistoryEntry{
				ID:              tx.Key,
				TokenID:         tx.TokenID,
				TokenTitle:      title,
				CounterpartName: resolveEntity(profiles, r.EntityID, diag).Name,
				Amount:          tx.Amount,
				AmountDisplay:   strconv.FormatInt(tx.Amount, 10),
				Date:            r.Date,
				Status:          status,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}
