package service

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composerInput(tokens []models.TokenRecord, reports []models.RevenueReport) Input {
	return Input{
		Investor: investorAddr,
		Tokens:   tokens,
		Reports:  reports,
		Profiles: testProfiles(),
		Now:      testNow,
		Options:  Options{GrowthMultiplier: decimal.RequireFromString("1.12")},
	}
}

func TestComputePortfolio_SingleRealizedPayout(t *testing.T) {
	in := composerInput(
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{
			distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 7500)),
		},
	)

	agg := ComputePortfolio(in)

	require.Len(t, agg.Holdings, 1)
	h := agg.Holdings[0]
	assert.Equal(t, int64(7500), h.EarnedAmount)
	assert.True(t, h.ReturnRatePercent.Equal(decimal.NewFromInt(15)))
	assert.True(t, h.NextPayoutDate.IsTBD())

	assert.Equal(t, investorAddr, agg.Investor)
	assert.Equal(t, int64(500000), agg.TotalInvested)
	assert.Equal(t, int64(7500), agg.TotalEarnings)
	assert.Equal(t, int64(560000), agg.TotalValue)
	assert.True(t, agg.TotalGrowthPercent.Equal(decimal.NewFromInt(12)), "growth %s", agg.TotalGrowthPercent)
	assert.Equal(t, 1, agg.ActiveHoldingsCount)

	require.Len(t, agg.History, 1)
	assert.Equal(t, types.HistoryStatusReceived, agg.History[0].Status)
	assert.Equal(t, "7500", agg.History[0].AmountDisplay)

	assert.Equal(t, map[string]int{"Energy": 100}, agg.Diversification.ByIndustry)
	assert.Equal(t, 100, agg.Diversification.ByReturnBand[types.ReturnBandHigh])
	assert.Empty(t, agg.Diagnostics)
}

func TestComputePortfolio_PercentagesEncodeAsNumbers(t *testing.T) {
	in := composerInput(
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{
			distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 7500)),
		},
	)

	raw, err := json.Marshal(ComputePortfolio(in))
	require.NoError(t, err)

	var decoded struct {
		TotalGrowthPercent interface{} `json:"totalGrowthPercent"`
		Holdings           []struct {
			ReturnRatePercent interface{} `json:"returnRatePercent"`
		} `json:"holdings"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(12), decoded.TotalGrowthPercent)
	require.Len(t, decoded.Holdings, 1)
	assert.Equal(t, float64(15), decoded.Holdings[0].ReturnRatePercent)
}

func TestComputePortfolio_FuturePendingReport(t *testing.T) {
	in := composerInput(
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{
			distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 7500)),
			pendingReport("R2", "E1", futureDate),
		},
	)

	agg := ComputePortfolio(in)

	require.Len(t, agg.Holdings, 1)
	require.False(t, agg.Holdings[0].NextPayoutDate.IsTBD())
	assert.True(t, futureDate.Equal(agg.Holdings[0].NextPayoutDate.At))

	require.Len(t, agg.History, 2)
	assert.Equal(t, types.HistoryStatusUpcoming, agg.History[0].Status)
	assert.Equal(t, "Pending", agg.History[0].AmountDisplay)
	assert.True(t, futureDate.Equal(agg.History[0].Date))
	assert.Equal(t, types.HistoryStatusReceived, agg.History[1].Status)
}

func TestComputePortfolio_NoTokens(t *testing.T) {
	agg := ComputePortfolio(composerInput(nil, []models.RevenueReport{
		distributedReport("R1", "E1", pastDate, tx("tx-1", "1", otherAddr, 7500)),
	}))

	assert.Zero(t, agg.TotalValue)
	assert.Zero(t, agg.TotalInvested)
	assert.True(t, agg.TotalGrowthPercent.IsZero())
	assert.Zero(t, agg.TotalEarnings)
	assert.Zero(t, agg.ActiveHoldingsCount)
	assert.Empty(t, agg.Holdings)
	assert.Empty(t, agg.History)
	assert.Empty(t, agg.Diversification.ByIndustry)
	assert.Len(t, agg.Diversification.ByReturnBand, 3)
}

func TestComputePortfolio_InvalidInvestor(t *testing.T) {
	for _, investor := range []string{"", "   ", "bad\x00id"} {
		in := composerInput([]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 1, 1)}, nil)
		in.Investor = investor

		agg := ComputePortfolio(in)

		require.NotNil(t, agg)
		assert.Zero(t, agg.ActiveHoldingsCount, "investor %q", investor)
		assert.Empty(t, agg.Holdings)
		assert.NotNil(t, agg.Holdings)
		assert.NotNil(t, agg.History)
	}
}

func TestComputePortfolio_OwnedWithoutMetadataCountsButIsNotProjected(t *testing.T) {
	agg := ComputePortfolio(composerInput([]models.TokenRecord{
		tokenRecord("1", investorAddr, "E1", 500000, 1500),
		tokenRecord("2", investorAddr, "E1", 0, 0, withoutMetadata()),
		tokenRecord("3", otherAddr, "E1", 999999, 1500),
	}, nil))

	assert.Equal(t, 2, agg.ActiveHoldingsCount)
	require.Len(t, agg.Holdings, 1)
	assert.Equal(t, int64(500000), agg.TotalInvested)
	require.Len(t, agg.Diagnostics, 1)
	assert.Equal(t, "MISSING_METADATA", agg.Diagnostics[0].Code)
	assert.Equal(t, "2", agg.Diagnostics[0].RecordID)
}

func TestComputePortfolio_DuplicateReportCountedOnce(t *testing.T) {
	report := distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 7500))

	agg := ComputePortfolio(composerInput(
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{report, report},
	))

	assert.Equal(t, int64(7500), agg.TotalEarnings)
	assert.Len(t, agg.History, 1)
	require.Len(t, agg.Diagnostics, 1)
	assert.Equal(t, "DUPLICATE_RECORD", agg.Diagnostics[0].Code)
}

func TestComputePortfolio_AnomaliesAreCoerced(t *testing.T) {
	badTx := tx("tx-1", "1", investorAddr, 0)
	badTx.Amount = decStr("-20")

	agg := ComputePortfolio(composerInput(
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", -100, 1500),
			tokenRecord("2", investorAddr, "E9", 200, 900),
		},
		[]models.RevenueReport{distributedReport("R1", "E1", pastDate, badTx)},
	))

	assert.Equal(t, int64(200), agg.TotalInvested)
	assert.Zero(t, agg.TotalEarnings)
	require.Len(t, agg.Holdings, 2)
	assert.Equal(t, "Unknown", agg.Holdings[1].CounterpartName)
	assert.Equal(t, map[string]int{"Energy": 50, "Unknown": 50}, agg.Diversification.ByIndustry)

	codes := make([]string, 0, len(agg.Diagnostics))
	for _, d := range agg.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.ElementsMatch(t, []string{"INVALID_AMOUNT", "INVALID_AMOUNT", "UNRESOLVED_ENTITY"}, codes)
}

func TestComputePortfolio_Deterministic(t *testing.T) {
	in := composerInput(
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", 500000, 1500),
			tokenRecord("2", investorAddr, "E2", 250000, 900),
			tokenRecord("3", investorAddr, "E3", 125000, 1200),
		},
		[]models.RevenueReport{
			distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 7500), tx("", "2", investorAddr, 10)),
			pendingReport("R2", "E2", futureDate),
			pendingReport("R3", "E3", pastDate),
		},
	)

	first, err := json.Marshal(ComputePortfolio(in))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(ComputePortfolio(in))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
		assert.Equal(t, string(first), string(again))
	}
}

func TestComputePortfolio_NilProfiles(t *testing.T) {
	in := composerInput([]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)}, nil)
	in.Profiles = nil

	agg := ComputePortfolio(in)

	require.Len(t, agg.Holdings, 1)
	assert.Equal(t, "Unknown", agg.Holdings[0].CounterpartName)
}

type panickingProfiles struct{}

func (panickingProfiles) Lookup(string) (models.EntityProfile, bool) {
	panic("profile store exploded")
}

func TestComputePortfolio_RecoversFromPanics(t *testing.T) {
	in := composerInput([]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)}, nil)
	in.Profiles = panickingProfiles{}

	agg := ComputePortfolio(in)

	require.NotNil(t, agg)
	assert.Empty(t, agg.Holdings)
	require.Len(t, agg.Diagnostics, 1)
	assert.Equal(t, "INTERNAL_ERROR", agg.Diagnostics[0].Code)
}

func TestValuate(t *testing.T) {
	tests := []struct {
		name       string
		invested   int64
		multiplier string
		want       int64
	}{
		{"placeholder growth", 500000, "1.12", 560000},
		{"rounds half away from zero", 5, "1.1", 6},
		{"zero multiplier at cost", 1000, "0", 1000},
		{"negative multiplier at cost", 1000, "-2", 1000},
		{"saturates", math.MaxInt64, "2", math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valuate(tt.invested, decimal.RequireFromString(tt.multiplier)))
		})
	}
}

func TestGrowthPercent(t *testing.T) {
	assert.True(t, GrowthPercent(0, 0).IsZero())
	assert.True(t, GrowthPercent(0, 100).IsZero())
	assert.True(t, GrowthPercent(500000, 560000).Equal(decimal.NewFromInt(12)))
	assert.True(t, GrowthPercent(3, 4).Equal(decimal.RequireFromString("33.33")))
	assert.True(t, GrowthPercent(100, 100).IsZero())
}
