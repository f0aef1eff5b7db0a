// Package identity canonicalizes and compares account identities.
//
// An identity is an opaque owner/recipient string. EVM hex addresses are
// compared case-insensitively and with or without the 0x prefix, base58
// public keys by their decoded key, and anything else (textual principals,
// custodial account ids) by exact text.
package identity

import (
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// Kind describes how an identity was recognized
type Kind string

const (
	// KindInvalid is an identity that cannot match anything
	KindInvalid Kind = "invalid"
	// KindEVM is a 20-byte hex address
	KindEVM Kind = "evm"
	// KindBase58 is a 32-byte base58 public key
	KindBase58 Kind = "base58"
	// KindOpaque is any other printable identifier
	KindOpaque Kind = "opaque"
)

// Canonical returns the canonical text of raw and whether raw is a usable identity.
func Canonical(raw string) (string, bool) {
	canonical, kind := Classify(raw)
	return canonical, kind != KindInvalid
}

// Classify returns the canonical text of raw and the kind it was recognized as.
func Classify(raw string) (string, Kind) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", KindInvalid
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", KindInvalid
		}
	}

	if common.IsHexAddress(s) {
		return strings.ToLower(common.HexToAddress(s).Hex()), KindEVM
	}

	if pk, err := solana.PublicKeyFromBase58(s); err == nil {
		return pk.String(), KindBase58
	}

	return s, KindOpaque
}

// Matches reports whether a and b denote the same account. Unusable
// identities never match, not even each other.
func Matches(a, b string) bool {
	ca, ok := Canonical(a)
	if !ok {
		return false
	}
	cb, ok := Canonical(b)
	if !ok {
		return false
	}
	return ca == cb
}

// Matcher compares candidates against one fixed identity without
// re-canonicalizing it on every call.
type Matcher struct {
	canonical string
	valid     bool
}

// NewMatcher creates a matcher for the given identity
func NewMatcher(raw string) Matcher {
	canonical, ok := Canonical(raw)
	return Matcher{canonical: canonical, valid: ok}
}

// Valid reports whether the matcher's identity is usable
func (m Matcher) Valid() bool {
	return m.valid
}

// Canonical returns the matcher's canonical identity
func (m Matcher) Canonical() string {
	return m.canonical
}

// Matches reports whether other denotes the matcher's identity
func (m Matcher) Matches(other string) bool {
	if !m.valid {
		return false
	}
	c, ok := Canonical(other)
	return ok && c == m.canonical
}
