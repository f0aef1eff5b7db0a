package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: a scheduled payout date survives a JSON round trip, which the
// aggregate cache relies on.
func TestPayoutDate_ScheduledRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("scheduled dates round trip through JSON", prop.ForAll(
		func(nanos int64) bool {
			original := ScheduledAt(time.Unix(0, nanos))

			data, err := json.Marshal(original)
			if err != nil {
				return false
			}

			var decoded PayoutDate
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false
			}
			return decoded.Scheduled && decoded.At.Equal(original.At)
		},
		gen.Int64Range(0, 4102444800*int64(time.Second)),
	))

	properties.TestingRun(t)
}
