// Package models holds the record shapes exchanged with upstream record sources.
package models

// Snapshot is one read of the three record sets plus the entity profiles they
// reference. It is the unit a record source delivers to the engine.
type Snapshot struct {
	Tokens   []TokenRecord   `json:"tokens"`
	Reports  []RevenueReport `json:"reports"`
	Profiles []EntityProfile `json:"profiles,omitempty"`
}
