package tickers

import "strings"

// Normalize upper-cases a symbol for table and cache keys.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// StripExchange removes an "EXCHANGE:" prefix if present, e.g.
// "BATS:PML" -> "PML". The broker search wants the bare ticker.
func StripExchange(symbol string) string {
	if i := strings.LastIndexByte(symbol, ':'); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

// Exchange returns the exchange prefix of a symbol, or "" if there is none.
func Exchange(symbol string) string {
	if i := strings.IndexByte(symbol, ':'); i > 0 {
		return symbol[:i]
	}
	return ""
}
