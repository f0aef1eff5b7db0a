// Package types provides the derived, output-only structures of the portfolio
// reconciliation engine and the shared service error shape.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// percentages are emitted as JSON numbers
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// HoldingStatus represents the lifecycle state of a holding
type HoldingStatus string

const (
	// HoldingStatusActive is the only status the input data can currently justify
	HoldingStatusActive HoldingStatus = "active"
)

// HistoryStatus represents whether a history entry has been paid out
type HistoryStatus string

const (
	// HistoryStatusReceived represents a payout from a distributed report
	HistoryStatusReceived HistoryStatus = "received"
	// HistoryStatusUpcoming represents a payout that has not been distributed yet
	HistoryStatusUpcoming HistoryStatus = "upcoming"
)

// ReturnBand classifies a holding by its revenue share
type ReturnBand string

const (
	// ReturnBandHigh represents a revenue share of 15% or more
	ReturnBandHigh ReturnBand = "High"
	// ReturnBandMedium represents a revenue share from 10% up to 15%
	ReturnBandMedium ReturnBand = "Medium"
	// ReturnBandLow represents a revenue share below 10%
	ReturnBandLow ReturnBand = "Low"
)

// ReturnBands lists every band in display order
var ReturnBands = []ReturnBand{ReturnBandHigh, ReturnBandMedium, ReturnBandLow}

// Display defaults substituted for unresolved or not-yet-known values
const (
	UnknownLabel         = "Unknown"
	PendingAmountDisplay = "Pending"
)

// HoldingProjection is the display-ready view of one owned token
type HoldingProjection struct {
	TokenID           string          `json:"tokenId"`
	Title             string          `json:"title"`
	CounterpartName   string          `json:"counterpartName"`
	ImageRef          string          `json:"imageRef,omitempty"`
	InvestedAmount    int64           `json:"investedAmount"` // minor units
	EarnedAmount      int64           `json:"earnedAmount"`   // minor units
	NextPayoutDate    PayoutDate      `json:"nextPayoutDate"`
	ReturnRatePercent decimal.Decimal `json:"returnRatePercent"`
	ReturnBand        ReturnBand      `json:"returnBand"`
	Industry          string          `json:"industry"`
	Country           string          `json:"country"`
	AcquiredDate      *time.Time      `json:"acquiredDate,omitempty"`
	Status            HoldingStatus   `json:"status"`
}

// Diversification holds percentage shares of the holdings per bucket
type Diversification struct {
	ByIndustry   map[string]int     `json:"byIndustry"`
	ByCountry    map[string]int     `json:"byCountry"`
	ByReturnBand map[ReturnBand]int `json:"byReturnBand"`
}

// HistoryEntry is one line of the investor's chronological payout history
type HistoryEntry struct {
	ID              string        `json:"id"`
	TokenID         string        `json:"tokenId"`
	TokenTitle      string        `json:"tokenTitle"`
	CounterpartName string        `json:"counterpartName"`
	Amount          int64         `json:"amount"`        // minor units, 0 for placeholders
	AmountDisplay   string        `json:"amountDisplay"` // raw minor units as text, or "Pending"
	Date            time.Time     `json:"date"`
	Status          HistoryStatus `json:"status"`
}

// Diagnostic reports a record that was skipped, coerced or resolved to a default
type Diagnostic struct {
	Category   string `json:"category"`
	Code       string `json:"code"`
	RecordType string `json:"recordType"`
	RecordID   string `json:"recordId,omitempty"`
	Message    string `json:"message"`
}

// PortfolioAggregate is the full derived view of one investor's portfolio
type PortfolioAggregate struct {
	Investor            string              `json:"investor"`
	TotalValue          int64               `json:"totalValue"`
	TotalInvested       int64               `json:"totalInvested"`
	TotalGrowthPercent  decimal.Decimal     `json:"totalGrowthPercent"`
	TotalEarnings       int64               `json:"totalEarnings"`
	ActiveHoldingsCount int                 `json:"activeHoldingsCount"`
	Diversification     Diversification     `json:"diversification"`
	Holdings            []HoldingProjection `json:"holdings"`
	History             []HistoryEntry      `json:"history"`
	Diagnostics         []Diagnostic        `json:"diagnostics,omitempty"`
}

// PortfolioResult wraps an aggregate with when and how it was produced
type PortfolioResult struct {
	Portfolio  *PortfolioAggregate `json:"portfolio"`
	ComputedAt time.Time           `json:"computedAt"`
	Cached     bool                `json:"cached"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
