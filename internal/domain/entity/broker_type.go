// Package entity contains the core domain entities for the broker comparison backend.
// These entities represent the fundamental business objects and have no external dependencies.
package entity

import "strings"

// BrokerType is the trading-instrument category of a broker. It decides which
// risk warning wording applies.
type BrokerType string

// Known broker types.
const (
	BrokerTypeCFD    BrokerType = "cfd"
	BrokerTypeForex  BrokerType = "forex"
	BrokerTypeCrypto BrokerType = "crypto"
	BrokerTypeStock  BrokerType = "stock"
)

// DefaultBrokerType is used when a caller does not name a broker type.
const DefaultBrokerType = BrokerTypeCFD

// DefaultLanguage is the language every lookup falls back to.
const DefaultLanguage = "en"

// KnownBrokerTypes lists the broker types the static template table covers.
var KnownBrokerTypes = []BrokerType{
	BrokerTypeCFD,
	BrokerTypeForex,
	BrokerTypeCrypto,
	BrokerTypeStock,
}

// ParseBrokerType normalizes a raw broker type. Unknown values are kept so that
// types added to the database work without a deploy; empty input yields the default.
func ParseBrokerType(raw string) BrokerType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return DefaultBrokerType
	}
	return BrokerType(s)
}

// IsKnown reports whether t is one of KnownBrokerTypes.
func (t BrokerType) IsKnown() bool {
	for _, known := range KnownBrokerTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t BrokerType) String() string {
	return string(t)
}

// NormalizeLanguage lower-cases and trims a language code, defaulting to DefaultLanguage.
func NormalizeLanguage(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return DefaultLanguage
	}
	return s
}
