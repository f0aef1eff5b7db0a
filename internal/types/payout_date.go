package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// PayoutDateTBD is the serialized form of a payout date that is not scheduled
const PayoutDateTBD = "TBD"

// PayoutDate is either a scheduled date or the "TBD" sentinel
type PayoutDate struct {
	At        time.Time
	Scheduled bool
}

// ScheduledAt returns a scheduled payout date
func ScheduledAt(t time.Time) PayoutDate {
	return PayoutDate{At: t.UTC(), Scheduled: true}
}

// IsTBD reports whether no payout is scheduled
func (d PayoutDate) IsTBD() bool {
	return !d.Scheduled
}

// String returns the RFC3339 date or "TBD"
func (d PayoutDate) String() string {
	if !d.Scheduled {
		return PayoutDateTBD
	}
	return d.At.Format(time.RFC3339Nano)
}

// MarshalJSON encodes the date as an RFC3339 string or "TBD"
func (d PayoutDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts an RFC3339 string, "TBD" or null
func (d *PayoutDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = PayoutDate{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || s == PayoutDateTBD {
		*d = PayoutDate{}
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*d = ScheduledAt(t)
	return nil
}
