package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/identity"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/types"
	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	maxValueDec = decimal.NewFromInt(math.MaxInt64)
)

// Options tunes the composer
type Options struct {
	// GrowthMultiplier is the placeholder valuation applied to invested
	// capital. Zero values holdings at cost.
	GrowthMultiplier decimal.Decimal
}

// Input is one portfolio computation request. Tokens may include tokens the
// investor does not own; they are filtered out.
type Input struct {
	Investor string
	Tokens   []models.TokenRecord
	Reports  []models.RevenueReport
	Profiles ProfileLookup
	Now      time.Time
	Options  Options
}

// ComputePortfolio is the engine entry point. It is pure: the same input always
// yields the same aggregate, and it never panics. An unusable investor
// identity yields an empty aggregate.
func ComputePortfolio(in Input) (agg *types.PortfolioAggregate) {
	defer func() {
		if r := recover(); r != nil {
			agg = EmptyPortfolio(strings.TrimSpace(in.Investor))
			agg.Diagnostics = []types.Diagnostic{
				apperrors.NewInternalError(fmt.Sprintf("portfolio computation aborted: %v", r), nil).ToDiagnostic(),
			}
		}
	}()

	investor := identity.NewMatcher(in.Investor)
	if !investor.Valid() {
		return EmptyPortfolio(strings.TrimSpace(in.Investor))
	}

	profiles := in.Profiles
	if profiles == nil {
		profiles = ProfileDirectory(nil)
	}

	diag := NewDiagnostics()
	tokens, reports := Normalize(in.Tokens, in.Reports, diag)
	owned := FilterOwned(investor, tokens, diag)

	holdings := make([]types.HoldingProjection, 0, len(owned))
	var totalInvested, totalEarnings int64
	for _, t := range owned {
		totalInvested = addAmount(totalInvested, t.Price)

		h, ok := ProjectHolding(t, reports, profiles, investor, in.Now, diag)
		if !ok {
			continue
		}
		holdings = append(holdings, h)
		totalEarnings = addAmount(totalEarnings, h.EarnedAmount)
	}

	history := BuildHistory(reports, owned, profiles, investor, diag)
	totalValue := Valuate(totalInvested, in.Options.GrowthMultiplier)

	return &types.PortfolioAggregate{
		Investor:            investor.Canonical(),
		TotalValue:          totalValue,
		TotalInvested:       totalInvested,
		TotalGrowthPercent:  GrowthPercent(totalInvested, totalValue),
		TotalEarnings:       totalEarnings,
		ActiveHoldingsCount: len(owned),
		Diversification:     SummarizeDiversification(holdings),
		Holdings:            holdings,
		History:             history,
		Diagnostics:         diag.Items(),
	}
}

// EmptyPortfolio returns the zeroed aggregate
func EmptyPortfolio(investor string) *types.PortfolioAggregate {
	return &types.PortfolioAggregate{
		Investor:           investor,
		TotalGrowthPercent: decimal.Zero,
		Diversification:    SummarizeDiversification(nil),
		Holdings:           []types.HoldingProjection{},
		History:            []types.HistoryEntry{},
	}
}

// Valuate applies the growth multiplier to invested capital, rounding to minor
// units. A non-positive multiplier values the capital at cost.
func Valuate(invested int64, multiplier decimal.Decimal) int64 {
	if !multiplier.IsPositive() {
		return invested
	}
	value := decimal.NewFromInt(invested).Mul(multiplier).Round(0)
	if value.GreaterThan(maxValueDec) {
		return math.MaxInt64
	}
	return value.IntPart()
}

// GrowthPercent returns (value - invested) / invested * 100 to two decimals,
// or zero when nothing is invested.
func GrowthPercent(invested, value int64) decimal.Decimal {
	if invested <= 0 {
		return decimal.Zero
	}
	gain := decimal.NewFromInt(value).Sub(decimal.NewFromInt(invested))
	return gain.Mul(hundred).DivRound(decimal.NewFromInt(invested), 2)
}
