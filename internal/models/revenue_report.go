package models

import "github.com/shopspring/decimal"

// RevenueReport is one declared revenue event for an originating entity.
type RevenueReport struct {
	ID                       RecordID                  `json:"id" db:"id"`
	OriginEntityID           RecordID                  `json:"originEntityId" db:"origin_entity_id"`
	Amount                   *decimal.Decimal          `json:"amount,omitempty" db:"amount"`
	Description              string                    `json:"description,omitempty" db:"description"`
	ReportDate               *int64                    `json:"reportDate,omitempty" db:"report_date"` // nanoseconds upstream, any scale accepted
	Distributed              bool                      `json:"distributed" db:"distributed"`
	DistributionTransactions []DistributionTransaction `json:"distributionTransactions,omitempty"`
}

// DistributionTransaction is one payment of a report's entitlement to a token holder
type DistributionTransaction struct {
	TokenID   RecordID         `json:"tokenId" db:"token_id"`
	Recipient string           `json:"recipient,omitempty" db:"recipient"`
	Amount    *decimal.Decimal `json:"amount,omitempty" db:"amount"`
	TxID      RecordID         `json:"txId,omitempty" db:"tx_id"`
}
