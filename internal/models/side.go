package models

// AlertDirection is the direction token of the incoming signal, not the
// direction of the resulting trade.
type AlertDirection string

const (
	DirectionUp   AlertDirection = "UP"
	DirectionDown AlertDirection = "DOWN"
)

// Side is the trade direction sent to the broker.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeSide maps the alert direction to the trade side. An UP alert opens a
// SELL and a DOWN alert opens a BUY: the strategy fades the extension rather
// than following it. Do not "fix" this into a trend-following mapping.
func (d AlertDirection) TradeSide() Side {
	if d == DirectionUp {
		return SideSell
	}
	return SideBuy
}

func (s Side) Invert() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	}
	return SideNone
}
