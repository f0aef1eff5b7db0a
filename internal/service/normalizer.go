package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Token is a token-ownership record after normalization. Every field is
// populated; absent metadata is recorded in HasMetadata.
type Token struct {
	ID          string
	Owner       string
	HasMetadata bool
	Name        string
	Description string
	ImageRef    string
	Price       int64
	BasisPoints int64
	EntityID    string
	MintedAt    *time.Time
}

// Report is a revenue report after normalization
type Report struct {
	ID           string
	Key          string // ID, or the report's input position when ID is empty
	EntityID     string
	Amount       int64
	Description  string
	Date         time.Time
	Distributed  bool
	Transactions []Distribution
}

// Realized reports whether the report has paid out. A report flagged as
// distributed without any transactions has not.
func (r Report) Realized() bool {
	return r.Distributed && len(r.Transactions) > 0
}

// Distribution is a distribution transaction after normalization. Key is the
// transaction id, or "<tokenId>-<reportDate unix nanos>" when the id is absent.
type Distribution struct {
	Key       string
	TxID      string
	TokenID   string
	Recipient string
	Amount    int64
}

// Normalize converts boundary records into fully populated internal records in
// one pass. Records that cannot be used are skipped and reported to diag;
// anomalous amounts are coerced to zero. Duplicate tokens, reports and
// transaction ids keep their first occurrence.
func Normalize(tokenRecords []models.TokenRecord, reportRecords []models.RevenueReport, diag *Diagnostics) ([]Token, []Report) {
	return normalizeTokens(tokenRecords, diag), normalizeReports(reportRecords, diag)
}

func normalizeTokens(records []models.TokenRecord, diag *Diagnostics) []Token {
	tokens := make([]Token, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i, rec := range records {
		id := strings.TrimSpace(rec.TokenID.String())
		if id == "" {
			diag.Report(apperrors.NewMissingFieldError(apperrors.RecordToken, positional(i), "tokenId"))
			continue
		}
		if _, dup := seen[id]; dup {
			diag.Report(apperrors.NewDuplicateRecordError(apperrors.RecordToken, id))
			continue
		}
		seen[id] = struct{}{}

		t := Token{ID: id, Owner: strings.TrimSpace(rec.Owner)}
		if md := rec.Metadata; md != nil {
			t.HasMetadata = true
			t.Name = strings.TrimSpace(md.Name)
			t.Description = md.Description
			t.ImageRef = md.ImageRef
			t.Price = coerceAmountRequired(md.Price, apperrors.RecordToken, id, "price", diag)
			t.BasisPoints = coerceAmountRequired(md.RevenueShareBasisPoints, apperrors.RecordToken, id, "revenueShareBasisPoints", diag)
			t.EntityID = strings.TrimSpace(md.OriginEntityID.String())
			if md.MintedAt != nil && *md.MintedAt != 0 {
				minted := NormalizeTimestamp(*md.MintedAt)
				t.MintedAt = &minted
			}
		}
		tokens = append(tokens, t)
	}

	return tokens
}

func normalizeReports(records []models.RevenueReport, diag *Diagnostics) []Report {
	reports := make([]Report, 0, len(records))
	seenReports := make(map[string]struct{}, len(records))
	seenTx := make(map[string]struct{})

	for i, rec := range records {
		id := strings.TrimSpace(rec.ID.String())
		label := id
		if label == "" {
			label = positional(i)
		}

		entityID := strings.TrimSpace(rec.OriginEntityID.String())
		if entityID == "" {
			diag.Report(apperrors.NewMissingFieldError(apperrors.RecordReport, label, "originEntityId"))
			continue
		}
		if rec.ReportDate == nil {
			diag.Report(apperrors.NewMissingFieldError(apperrors.RecordReport, label, "reportDate"))
			continue
		}
		if id != "" {
			if _, dup := seenReports[id]; dup {
				diag.Report(apperrors.NewDuplicateRecordError(apperrors.RecordReport, id))
				continue
			}
			seenReports[id] = struct{}{}
		}

		r := Report{
			ID:          id,
			Key:         label,
			EntityID:    entityID,
			Description: rec.Description,
			Date:        NormalizeTimestamp(*rec.ReportDate),
			Distributed: rec.Distributed,
		}
		if rec.Amount != nil {
			r.Amount = coerceAmount(rec.Amount, apperrors.RecordReport, label, "amount", diag)
		}

		for j, tx := range rec.DistributionTransactions {
			d, ok := normalizeDistribution(tx, r.Date, fmt.Sprintf("%s/%d", label, j), seenTx, diag)
			if ok {
				r.Transactions = append(r.Transactions, d)
			}
		}

		switch {
		case r.Distributed && len(r.Transactions) == 0:
			diag.Report(apperrors.NewInconsistentReportError(label, "is marked distributed but carries no transactions"))
		case !r.Distributed && len(r.Transactions) > 0:
			diag.Report(apperrors.NewInconsistentReportError(label, "carries transactions but is not marked distributed"))
		}

		reports = append(reports, r)
	}

	return reports
}

func normalizeDistribution(tx models.DistributionTransaction, reportDate time.Time, label string, seen map[string]struct{}, diag *Diagnostics) (Distribution, bool) {
	txID := strings.TrimSpace(tx.TxID.String())
	if txID != "" {
		label = txID
	}

	tokenID := strings.TrimSpace(tx.TokenID.String())
	if tokenID == "" {
		diag.Report(apperrors.NewMissingFieldError(apperrors.RecordTransaction, label, "tokenId"))
		return Distribution{}, false
	}
	recipient := strings.TrimSpace(tx.Recipient)
	if recipient == "" {
		diag.Report(apperrors.NewMissingFieldError(apperrors.RecordTransaction, label, "recipient"))
		return Distribution{}, false
	}

	key := txID
	if key == "" {
		key = SyntheticKey(tokenID, reportDate)
	} else {
		if _, dup := seen[txID]; dup {
			diag.Report(apperrors.NewDuplicateRecordError(apperrors.RecordTransaction, txID))
			return Distribution{}, false
		}
		seen[txID] = struct{}{}
	}

	return Distribution{
		Key:       key,
		TxID:      txID,
		TokenID:   tokenID,
		Recipient: recipient,
		Amount:    coerceAmountRequired(tx.Amount, apperrors.RecordTransaction, label, "amount", diag),
	}, true
}

// SyntheticKey is the stable fallback id of a transaction without txId
func SyntheticKey(tokenID string, reportDate time.Time) string {
	return fmt.Sprintf("%s-%d", tokenID, reportDate.UnixNano())
}

// PlaceholderKey is the id of the upcoming entry a pending report yields for
// one owned token. It is unique per token and report.
func PlaceholderKey(tokenID string, r Report) string {
	return fmt.Sprintf("%s-%d-%s", tokenID, r.Date.UnixNano(), r.Key)
}

// NormalizeTimestamp converts an epoch timestamp of unknown scale to UTC time.
// Upstream ledgers report nanoseconds; seconds, milliseconds and microseconds
// are recognized by magnitude.
func NormalizeTimestamp(v int64) time.Time {
	abs := v
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1e17:
		return time.Unix(0, v).UTC()
	case abs >= 1e14:
		return time.UnixMicro(v).UTC()
	case abs >= 1e11:
		return time.UnixMilli(v).UTC()
	default:
		return time.Unix(v, 0).UTC()
	}
}

// coerceAmount converts an optional boundary amount to minor units. Missing
// values are zero; negative, fractional and oversized values are reported and
// coerced to zero.
func coerceAmount(v *decimal.Decimal, recordType, recordID, field string, diag *Diagnostics) int64 {
	if v == nil {
		return 0
	}

	var reason string
	switch {
	case v.IsNegative():
		reason = "negative"
	case !v.IsInteger():
		reason = "not an integer"
	case v.GreaterThan(maxAmount):
		reason = "out of range"
	default:
		return v.IntPart()
	}

	diag.Report(apperrors.NewAmountAnomalyError(recordType, recordID, field, v.String(), reason))
	return 0
}

// coerceAmountRequired is coerceAmount for fields that must be present
func coerceAmountRequired(v *decimal.Decimal, recordType, recordID, field string, diag *Diagnostics) int64 {
	if v == nil {
		diag.Report(apperrors.NewAmountAnomalyError(recordType, recordID, field, "null", "missing"))
		return 0
	}
	return coerceAmount(v, recordType, recordID, field, diag)
}

func positional(i int) string {
	return fmt.Sprintf("#%d", i)
}
