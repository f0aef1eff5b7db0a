package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecordID is an upstream identifier. Ledgers and indexers emit ids either as
// JSON strings or as bare numbers; both decode to the same textual form.
type RecordID string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id must be a string or number: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// String returns the id text.
func (id RecordID) String() string {
	return string(id)
}

// IsZero reports whether the id is absent.
func (id RecordID) IsZero() bool {
	return id == ""
}
