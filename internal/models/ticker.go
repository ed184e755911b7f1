package models

import "time"

// EpicUnresolved is the sentinel used in the ticker table when no broker
// code has been assigned yet and the resolver must search for one.
const EpicUnresolved = "?"

// TickerConfig is one row of the per-symbol trading table.
type TickerConfig struct {
	Symbol                string
	EpicHint              string
	StopLossATRPeriod     int
	StopLossMultiple      float64
	ProfitTargetATRPeriod int
	ProfitMultiple        float64
	MaxPositionValue      float64 // currency units (GBP)
	OpeningPriceMultiple  float64
	NextDividendDate      *time.Time
}

// HasEpicHint reports whether the row carries a usable broker code.
func (c TickerConfig) HasEpicHint() bool {
	return c.EpicHint != "" && c.EpicHint != EpicUnresolved
}

// DividendToday reports whether the next dividend date falls on the given day.
func (c TickerConfig) DividendToday(now time.Time) bool {
	if c.NextDividendDate == nil {
		return false
	}
	y1, m1, d1 := c.NextDividendDate.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
