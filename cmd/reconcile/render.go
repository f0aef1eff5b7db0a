package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/portfolio-reconciler/internal/types"
)

// formatAmount renders minor units in the given currency, e.g. 7500 USD as $75.00
func formatAmount(amount int64, currency string) string {
	return money.New(amount, currency).Display()
}

// renderSummary writes a text report of the aggregate
func renderSummary(w io.Writer, agg *types.PortfolioAggregate, currency string) error {
	currency = strings.ToUpper(currency)
	if money.GetCurrency(currency) == nil {
		return fmt.Errorf("unknown currency %q", currency)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Investor\t%s\n", agg.Investor)
	fmt.Fprintf(tw, "Total value\t%s\n", formatAmount(agg.TotalValue, currency))
	fmt.Fprintf(tw, "Total invested\t%s\n", formatAmount(agg.TotalInvested, currency))
	fmt.Fprintf(tw, "Growth\t%s%%\n", agg.TotalGrowthPercent.StringFixed(2))
	fmt.Fprintf(tw, "Total earnings\t%s\n", formatAmount(agg.TotalEarnings, currency))
	fmt.Fprintf(tw, "Active holdings\t%d\n", agg.ActiveHoldingsCount)

	if len(agg.Holdings) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "TOKEN\tTITLE\tCOUNTERPART\tINVESTED\tEARNED\tRATE\tNEXT PAYOUT")
		for _, h := range agg.Holdings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s%% (%s)\t%s\n",
				h.TokenID,
				h.Title,
				h.CounterpartName,
				formatAmount(h.InvestedAmount, currency),
				formatAmount(h.EarnedAmount, currency),
				h.ReturnRatePercent.String(),
				h.ReturnBand,
				h.NextPayoutDate.String(),
			)
		}
	}

	div := agg.Diversification
	if len(div.ByIndustry)+len(div.ByCountry) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "By industry\t%s\n", formatShares(div.ByIndustry))
		fmt.Fprintf(tw, "By country\t%s\n", formatShares(div.ByCountry))
		bands := make([]string, 0, len(types.ReturnBands))
		for _, b := range types.ReturnBands {
			bands = append(bands, fmt.Sprintf("%s %d%%", b, div.ByReturnBand[b]))
		}
		fmt.Fprintf(tw, "By return band\t%s\n", strings.Join(bands, ", "))
	}

	if len(agg.History) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "DATE\tSTATUS\tTOKEN\tCOUNTERPART\tAMOUNT")
		for _, e := range agg.History {
			amount := types.PendingAmountDisplay
			if e.Status == types.HistoryStatusReceived {
				amount = formatAmount(e.Amount, currency)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.Date.Format("2006-01-02"),
				e.Status,
				e.TokenTitle,
				e.CounterpartName,
				amount,
			)
		}
	}

	if len(agg.Diagnostics) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Diagnostics\t%d records skipped or coerced\n", len(agg.Diagnostics))
		for _, d := range agg.Diagnostics {
			fmt.Fprintf(tw, "  %s\t%s %s: %s\n", d.Code, d.RecordType, d.RecordID, d.Message)
		}
	}

	return tw.Flush()
}

// formatShares renders percentage buckets in descending share, then by name
func formatShares(shares map[string]int) string {
	if len(shares) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(shares))
	for k := range shares {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if shares[keys[i]] != shares[keys[j]] {
			return shares[keys[i]] > shares[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d%%", k, shares[k])
	}
	return strings.Join(parts, ", ")
}
