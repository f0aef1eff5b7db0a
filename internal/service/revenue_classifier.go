package service

import "time"

// RevenueClassification partitions one entity's reports
type RevenueClassification struct {
	Realized []Report // distributed, with at least one transaction
	Pending  []Report // not distributed and dated after now
}

// ClassifyRevenue partitions the reports of entityID into realized and pending.
// Past-dated reports that were never distributed belong to neither set.
func ClassifyRevenue(entityID string, reports []Report, now time.Time) RevenueClassification {
	var c RevenueClassification
	if entityID == "" {
		return c
	}

	for _, r := range reports {
		if r.EntityID != entityID {
			continue
		}
		switch {
		case r.Realized():
			c.Realized = append(c.Realized, r)
		case !r.Distributed && r.Date.After(now):
			c.Pending = append(c.Pending, r)
		}
	}
	return c
}

// NextPayout returns the earliest pending report date
func NextPayout(pending []Report) (time.Time, bool) {
	var next time.Time
	found := false
	for _, r := range pending {
		if !found || r.Date.Before(next) {
			next = r.Date
			found = true
		}
	}
	return next, found
}
