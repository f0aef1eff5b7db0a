package service

import (
	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/types"
)

// Diagnostics collects record anomalies found while computing a portfolio.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	items []types.Diagnostic
	seen  map[string]struct{}
}

// NewDiagnostics creates an empty collector
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{seen: make(map[string]struct{})}
}

// Report records an anomaly once; repeats of the same code for the same record are dropped.
func (d *Diagnostics) Report(err *apperrors.CategorizedError) {
	if d == nil || err == nil {
		return
	}

	key := string(err.Category) + "|" + err.Code + "|" + err.RecordType + "|" + err.RecordID
	if _, dup := d.seen[key]; dup {
		return
	}
	d.seen[key] = struct{}{}
	d.items = append(d.items, err.ToDiagnostic())
}

// Len returns the number of distinct anomalies recorded
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Items returns the anomalies in the order they were found
func (d *Diagnostics) Items() []types.Diagnostic {
	if d == nil || len(d.items) == 0 {
		return nil
	}
	out := make([]types.Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}
