package service

import (
	"strings"

	"github.com/portfolio-reconciler/internal/types"
)

// SummarizeDiversification buckets holdings by industry, country and return
// band and reports each bucket as a rounded percentage of the holding count.
func SummarizeDiversification(holdings []types.HoldingProjection) types.Diversification {
	industries := make(map[string]int)
	countries := make(map[string]int)
	bands := make(map[types.ReturnBand]int, len(types.ReturnBands))

	for _, h := range holdings {
		industries[bucketKey(h.Industry)]++
		countries[bucketKey(h.Country)]++

		band := h.ReturnBand
		if band == "" {
			band = ReturnBandFor(h.ReturnRatePercent)
		}
		bands[band]++
	}

	total := len(holdings)
	div := types.Diversification{
		ByIndustry:   make(map[string]int, len(industries)),
		ByCountry:    make(map[string]int, len(countries)),
		ByReturnBand: make(map[types.ReturnBand]int, len(types.ReturnBands)),
	}
	for k, n := range industries {
		div.ByIndustry[k] = percentOf(n, total)
	}
	for k, n := range countries {
		div.ByCountry[k] = percentOf(n, total)
	}
	for _, band := range types.ReturnBands {
		div.ByReturnBand[band] = percentOf(bands[band], total)
	}
	return div
}

// percentOf returns round(count / total * 100), half up, and 0 when total is 0
func percentOf(count, total int) int {
	if total <= 0 {
		return 0
	}
	return (count*200 + total) / (2 * total)
}

func bucketKey(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return types.UnknownLabel
	}
	return s
}
