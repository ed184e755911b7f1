package models

import "time"

// Instrument is a resolved broker instrument for a symbol. Entries are
// immutable once written into the resolver cache and replaced wholesale on
// re-resolution.
type Instrument struct {
	Symbol           string
	Epic             string
	InstrumentType   string
	Tradeable        bool
	MarketStatus     string
	Mid              float64 // broker mid quote at resolution, for price-scale checks
	MinStopDistance  float64
	MinLimitDistance float64
	MinDealSize      float64
	MaxDealSize      float64
	SizeIncrement    float64
	ResolvedAt       time.Time
}

// Orderable reports whether the broker takes orders for the instrument at
// all: dealing live, or parked as a working order while the market is
// closed. Suspended and offline markets take neither.
func (i Instrument) Orderable() bool {
	switch i.MarketStatus {
	case "", "TRADEABLE", "CLOSED":
		return true
	}
	return i.Tradeable
}

// OpenPosition is a broker-reported open position, reconciled against the
// daily ledger by the status reader.
type OpenPosition struct {
	Epic           string
	InstrumentName string
	DealID         string
	Direction      Side
	Size           float64
	OpenLevel      float64
	CreatedAt      time.Time

	// TradedToday is set by the status reader when the ledger holds a
	// record for this instrument's symbol today.
	TradedToday bool
	Symbol      string
}

// WorkingOrder is a pending order resting with the broker.
type WorkingOrder struct {
	Epic           string
	InstrumentName string
	DealID         string
	Direction      Side
	Size           float64
	Level          float64
	CreatedAt      time.Time

	// Stale marks orders older than the configured max deal age; a
	// housekeeping flag, never a veto for new alerts.
	Stale bool
}
