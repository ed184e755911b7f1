package models

import "time"

// OrderPlan is the fully derived order, produced by the calculator and
// consumed immediately by the executor. Never persisted as live state; a
// copy is stored with the daily trade record for diagnostics only.
type OrderPlan struct {
	Symbol        string  `json:"symbol"`
	Epic          string  `json:"epic"`
	Direction     Side    `json:"direction"`
	EntryPrice    float64 `json:"entry_price"`
	StopLevel     float64 `json:"stop_level"`
	LimitLevel    float64 `json:"limit_level"`
	StopDistance  float64 `json:"stop_distance"`
	LimitDistance float64 `json:"limit_distance"`
	Size          float64 `json:"size"`

	// DistancesWidened is set when a computed distance was below the
	// broker minimum and was widened to it.
	DistancesWidened bool `json:"distances_widened,omitempty"`
}

// DailyTradeRecord marks that a symbol has traded on a calendar day.
// Written only after the broker confirms the order.
type DailyTradeRecord struct {
	Symbol        string    `json:"symbol"`
	Date          string    `json:"date"` // YYYY-MM-DD in process timezone
	DealReference string    `json:"deal_reference,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
	Plan          OrderPlan `json:"plan"`
}
