package service

import (
	"fmt"
	"testing"

	"github.com/portfolio-reconciler/internal/identity"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHistoryFixture(t *testing.T, tokens []models.TokenRecord, reports []models.RevenueReport) ([]types.HistoryEntry, *Diagnostics) {
	t.Helper()
	investor := identity.NewMatcher(investorAddr)
	diag := NewDiagnostics()
	normTokens, normReports := Normalize(tokens, reports, diag)
	owned := FilterOwned(investor, normTokens, diag)
	return BuildHistory(normReports, owned, testProfiles(), investor, diag), diag
}

func TestBuildHistory_ReceivedAndUpcoming(t *testing.T) {
	entries, diag := buildHistoryFixture(t,
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", 500000, 1500),
			tokenRecord("2", investorAddr, "E1", 100000, 1000),
		},
		[]models.RevenueReport{
			distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 7500)),
			pendingReport("R2", "E1", futureDate),
		},
	)

	require.Len(t, entries, 3)

	// upcoming placeholders first: one per owned token of E1, in ownership order
	assert.Equal(t, fmt.Sprintf("1-%d-R2", futureDate.UnixNano()), entries[0].ID)
	assert.Equal(t, "1", entries[0].TokenID)
	assert.Equal(t, types.HistoryStatusUpcoming, entries[0].Status)
	assert.Equal(t, "Pending", entries[0].AmountDisplay)
	assert.Zero(t, entries[0].Amount)
	assert.Equal(t, "Acme Solar", entries[0].CounterpartName)
	assert.Equal(t, fmt.Sprintf("2-%d-R2", futureDate.UnixNano()), entries[1].ID)

	assert.Equal(t, "tx-1", entries[2].ID)
	assert.Equal(t, "Token 1", entries[2].TokenTitle)
	assert.Equal(t, int64(7500), entries[2].Amount)
	assert.Equal(t, "7500", entries[2].AmountDisplay)
	assert.Equal(t, types.HistoryStatusReceived, entries[2].Status)
	assert.True(t, pastDate.Equal(entries[2].Date))

	assert.Zero(t, diag.Len())
}

func TestBuildHistory_OnlyInvestorRecipients(t *testing.T) {
	entries, _ := buildHistoryFixture(t,
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{
			distributedReport("R1", "E1", pastDate,
				tx("tx-1", "1", otherAddr, 10),
				tx("tx-2", "1", "0x52908400098527886E0F7030069857D2E4169EE7", 20),
			),
		},
	)

	require.Len(t, entries, 1)
	assert.Equal(t, "tx-2", entries[0].ID)
}

func TestBuildHistory_UnresolvedToken(t *testing.T) {
	entries, diag := buildHistoryFixture(t,
		nil,
		[]models.RevenueReport{
			distributedReport("R1", "E2", pastDate, tx("tx-1", "77", investorAddr, 10)),
		},
	)

	require.Len(t, entries, 1)
	assert.Equal(t, "Token #77", entries[0].TokenTitle)
	assert.Equal(t, "Blue Farms", entries[0].CounterpartName)
	assert.Equal(t, []string{"UNRESOLVED_TOKEN"}, diagnosticCodes(diag))
}

func TestBuildHistory_UndistributedWithTransactions(t *testing.T) {
	report := distributedReport("R1", "E1", pastDate, tx("tx-1", "1", investorAddr, 10))
	report.Distributed = false

	entries, diag := buildHistoryFixture(t,
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{report},
	)

	require.Len(t, entries, 1)
	assert.Equal(t, types.HistoryStatusUpcoming, entries[0].Status)
	assert.Equal(t, "10", entries[0].AmountDisplay)
	assert.Equal(t, []string{"INCONSISTENT_DISTRIBUTION"}, diagnosticCodes(diag))
}

func TestBuildHistory_DistributedWithoutTransactionsIsSilent(t *testing.T) {
	entries, _ := buildHistoryFixture(t,
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{distributedReport("R1", "E1", pastDate)},
	)

	assert.Empty(t, entries)
}

func TestBuildHistory_PastUndistributedStillListed(t *testing.T) {
	entries, _ := buildHistoryFixture(t,
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", 500000, 1500),
			tokenRecord("2", investorAddr, "E2", 500000, 1500),
		},
		[]models.RevenueReport{pendingReport("R1", "E1", pastDate)},
	)

	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].TokenID)
	assert.Equal(t, types.HistoryStatusUpcoming, entries[0].Status)
}

func TestBuildHistory_SortedMostRecentFirstAndStable(t *testing.T) {
	older := pastDate.AddDate(0, -2, 0)
	entries, _ := buildHistoryFixture(t,
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", 500000, 1500),
			tokenRecord("2", investorAddr, "E1", 500000, 1500),
		},
		[]models.RevenueReport{
			distributedReport("R1", "E1", older, tx("tx-a", "1", investorAddr, 1)),
			distributedReport("R2", "E1", pastDate, tx("tx-b", "1", investorAddr, 2), tx("tx-c", "2", investorAddr, 3)),
			distributedReport("R3", "E1", pastDate, tx("tx-d", "2", investorAddr, 4)),
		},
	)

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"tx-b", "tx-c", "tx-d", "tx-a"}, ids)
}

func TestBuildHistory_SyntheticTransactionKey(t *testing.T) {
	entries, _ := buildHistoryFixture(t,
		[]models.TokenRecord{tokenRecord("1", investorAddr, "E1", 500000, 1500)},
		[]models.RevenueReport{distributedReport("R1", "E1", pastDate, tx("", "1", investorAddr, 5))},
	)

	require.Len(t, entries, 1)
	assert.Equal(t, SyntheticKey("1", pastDate), entries[0].ID)
}

func TestBuildHistory_PlaceholderIDsUniquePerReport(t *testing.T) {
	entries, _ := buildHistoryFixture(t,
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", 500000, 1500),
			tokenRecord("2", investorAddr, "E1", 100000, 1000),
		},
		[]models.RevenueReport{
			pendingReport("R2", "E1", futureDate),
			pendingReport("R3", "E1", futureDate),
			pendingReport("", "E1", futureDate),
			pendingReport("", "E1", futureDate),
		},
	)

	require.Len(t, entries, 8)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		assert.NotContains(t, seen, e.ID)
		seen[e.ID] = struct{}{}
	}
	assert.Equal(t, fmt.Sprintf("1-%d-R3", futureDate.UnixNano()), entries[2].ID)
	assert.Equal(t, fmt.Sprintf("2-%d-#3", futureDate.UnixNano()), entries[7].ID)

	again, _ := buildHistoryFixture(t,
		[]models.TokenRecord{
			tokenRecord("1", investorAddr, "E1", 500000, 1500),
			tokenRecord("2", investorAddr, "E1", 100000, 1000),
		},
		[]models.RevenueReport{
			pendingReport("R2", "E1", futureDate),
			pendingReport("R3", "E1", futureDate),
			pendingReport("", "E1", futureDate),
			pendingReport("", "E1", futureDate),
		},
	)
	assert.Equal(t, entries, again)
}
