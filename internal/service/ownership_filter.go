package service

import (
	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/identity"
)

// FilterOwned returns the tokens currently owned by investor, in input order.
// Tokens without an owner are excluded and reported.
func FilterOwned(investor identity.Matcher, tokens []Token, diag *Diagnostics) []Token {
	owned := make([]Token, 0)
	for _, t := range tokens {
		if t.Owner == "" {
			diag.Report(apperrors.NewMissingFieldError(apperrors.RecordToken, t.ID, "owner"))
			continue
		}
		if investor.Matches(t.Owner) {
			owned = append(owned, t)
		}
	}
	return owned
}
