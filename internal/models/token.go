package models

import "github.com/shopspring/decimal"

// TokenRecord is a token-ownership record as delivered by the ledger/indexer.
// Optional fields are pointers or empty strings; the service normalizer decides
// what a missing value means.
type TokenRecord struct {
	TokenID  RecordID       `json:"tokenId" db:"token_id"`
	Owner    string         `json:"owner,omitempty" db:"owner"`
	Metadata *TokenMetadata `json:"metadata,omitempty"`
}

// TokenMetadata describes the investment a token represents.
// Price is in minor units and RevenueShareBasisPoints is the holder's share of
// entity revenue (1500 = 15%).
type TokenMetadata struct {
	Name                    string           `json:"name,omitempty" db:"name"`
	Description             string           `json:"description,omitempty" db:"description"`
	Price                   *decimal.Decimal `json:"price,omitempty" db:"price"`
	RevenueShareBasisPoints *decimal.Decimal `json:"revenueShareBasisPoints,omitempty" db:"revenue_share_bps"`
	OriginEntityID          RecordID         `json:"originEntityId,omitempty" db:"origin_entity_id"`
	MintedAt                *int64           `json:"mintedAt,omitempty" db:"minted_at"` // s, ms, µs or ns since epoch
	ImageRef                string           `json:"imageRef,omitempty" db:"image_ref"`
}
