package service

import (
	"time"

	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/identity"
	"github.com/portfolio-reconciler/internal/types"
	"github.com/shopspring/decimal"
)

var (
	highBandFloor   = decimal.NewFromInt(15)
	mediumBandFloor = decimal.NewFromInt(10)
)

// ProjectHolding builds the display record of one owned token. It returns
// false, and reports the token, when the token carries no metadata.
func ProjectHolding(t Token, reports []Report, profiles ProfileLookup, investor identity.Matcher, now time.Time, diag *Diagnostics) (types.HoldingProjection, bool) {
	if !t.HasMetadata {
		diag.Report(apperrors.NewMissingFieldError(apperrors.RecordToken, t.ID, "metadata"))
		return types.HoldingProjection{}, false
	}
	if t.EntityID == "" {
		diag.Report(apperrors.NewMissingFieldError(apperrors.RecordToken, t.ID, "originEntityId"))
	}

	entity := resolveEntity(profiles, t.EntityID, diag)
	revenue := ClassifyRevenue(t.EntityID, reports, now)

	var next types.PayoutDate
	if at, ok := NextPayout(revenue.Pending); ok {
		next = types.ScheduledAt(at)
	}

	rate := ReturnRatePercent(t.BasisPoints)

	return types.HoldingProjection{
		TokenID:           t.ID,
		Title:             tokenTitle(t),
		CounterpartName:   entity.Name,
		ImageRef:          t.ImageRef,
		InvestedAmount:    t.Price,
		EarnedAmount:      AggregateEarnings(t.ID, investor, revenue.Realized),
		NextPayoutDate:    next,
		ReturnRatePercent: rate,
		ReturnBand:        ReturnBandFor(rate),
		Industry:          entity.Industry,
		Country:           entity.Country,
		AcquiredDate:      t.MintedAt,
		Status:            types.HoldingStatusActive,
	}, true
}

// ReturnRatePercent converts basis points to an exact percentage (1500 -> 15)
func ReturnRatePercent(basisPoints int64) decimal.Decimal {
	return decimal.New(basisPoints, -2)
}

// ReturnBandFor classifies a return rate: High >= 15%, Medium >= 10%, Low otherwise
func ReturnBandFor(ratePercent decimal.Decimal) types.ReturnBand {
	switch {
	case ratePercent.GreaterThanOrEqual(highBandFloor):
		return types.ReturnBandHigh
	case ratePercent.GreaterThanOrEqual(mediumBandFloor):
		return types.ReturnBandMedium
	default:
		return types.ReturnBandLow
	}
}

func tokenTitle(t Token) string {
	if t.Name == "" {
		return types.UnknownLabel
	}
	return t.Name
}
