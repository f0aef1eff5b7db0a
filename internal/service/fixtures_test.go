package service

import (
	"time"

	"github.com/portfolio-reconciler/internal/models"
	"github.com/shopspring/decimal"
)

const (
	investorAddr = "0x52908400098527886e0f7030069857d2e4169ee7"
	otherAddr    = "0x8617e340b3d01fa5f11f306f4090fd50e238070d"
)

var (
	// fixed clock for every engine test
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pastDate   = testNow.AddDate(0, -1, 0)
	futureDate = testNow.AddDate(0, 1, 0)
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func decStr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func nanos(t time.Time) *int64 {
	v := t.UnixNano()
	return &v
}

func int64Ptr(v int64) *int64 { return &v }

type tokenOpt func(*models.TokenRecord)

func withMetadata(f func(*models.TokenMetadata)) tokenOpt {
	return func(t *models.TokenRecord) {
		if t.Metadata != nil {
			f(t.Metadata)
		}
	}
}

func withoutMetadata() tokenOpt {
	return func(t *models.TokenRecord) { t.Metadata = nil }
}

// tokenRecord builds a token with complete metadata
func tokenRecord(id, owner, entity string, price, bps int64, opts ...tokenOpt) models.TokenRecord {
	t := models.TokenRecord{
		TokenID: models.RecordID(id),
		Owner:   owner,
		Metadata: &models.TokenMetadata{
			Name:                    "Token " + id,
			Description:             "Revenue share in " + entity,
			Price:                   dec(price),
			RevenueShareBasisPoints: dec(bps),
			OriginEntityID:          models.RecordID(entity),
			MintedAt:                nanos(pastDate.AddDate(0, -6, 0)),
			ImageRef:                "ipfs://" + id,
		},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func tx(txID, tokenID, recipient string, amount int64) models.DistributionTransaction {
	return models.DistributionTransaction{
		TokenID:   models.RecordID(tokenID),
		Recipient: recipient,
		Amount:    dec(amount),
		TxID:      models.RecordID(txID),
	}
}

func distributedReport(id, entity string, date time.Time, txs ...models.DistributionTransaction) models.RevenueReport {
	return models.RevenueReport{
		ID:                       models.RecordID(id),
		OriginEntityID:           models.RecordID(entity),
		Amount:                   dec(100000),
		Description:              "Quarterly revenue",
		ReportDate:               nanos(date),
		Distributed:              true,
		DistributionTransactions: txs,
	}
}

func pendingReport(id, entity string, date time.Time) models.RevenueReport {
	return models.RevenueReport{
		ID:             models.RecordID(id),
		OriginEntityID: models.RecordID(entity),
		Amount:         dec(50000),
		Description:    "Projected revenue",
		ReportDate:     nanos(date),
	}
}

func testProfiles() ProfileDirectory {
	return NewProfileDirectory([]models.EntityProfile{
		{ID: "E1", Name: "Acme Solar", Industry: "Energy", Country: "DE"},
		{ID: "E2", Name: "Blue Farms", Industry: "Agriculture", Country: "KE"},
		{ID: "E3", Name: "Cobalt Labs", Industry: "Energy", Country: "US"},
	})
}

func diagnosticCodes(d *Diagnostics) []string {
	codes := make([]string, 0, d.Len())
	for _, item := range d.Items() {
		codes = append(codes, item.Code)
	}
	return codes
}
