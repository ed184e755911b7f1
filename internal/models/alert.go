package models

import "time"

// ATRPeriods is how many ATR lookbacks every alert carries.
const ATRPeriods = 10

// Alert is a parsed TradingView signal. ReceivedAt is stamped by the
// receiving process, never trusted from the payload.
type Alert struct {
	Symbol       string
	Direction    AlertDirection
	OpeningPrice float64
	ATR          [ATRPeriods]float64
	ReceivedAt   time.Time
}

// ATRAt returns the ATR value for a 1-based lookback period.
func (a Alert) ATRAt(period int) (float64, bool) {
	if period < 1 || period > ATRPeriods {
		return 0, false
	}
	return a.ATR[period-1], true
}
