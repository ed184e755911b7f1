package pipeline

import (
	"fmt"
	"math"

	"alert_bot/internal/models"

	"github.com/pkg/errors"
)

// ErrSizeBelowMinimum is a computation error, not a veto: it means the
// configured position value cannot buy even the broker's minimum deal size.
var ErrSizeBelowMinimum = errors.New("computed size below broker minimum")

// Compute derives the full order plan from an alert, its config and the
// resolved instrument. Pure: no clock, no IO.
//
// The direction mapping fades the alert: an UP alert opens a SELL, a DOWN
// alert opens a BUY. The stop always sits against the trade, the limit in
// its favor.
func Compute(alert models.Alert, cfg models.TickerConfig, inst models.Instrument) (models.OrderPlan, error) {
	entry := alert.OpeningPrice * cfg.OpeningPriceMultiple
	if entry <= 0 {
		return models.OrderPlan{}, errors.Errorf("non-positive entry price %g", entry)
	}

	stopATR, ok := alert.ATRAt(cfg.StopLossATRPeriod)
	if !ok {
		return models.OrderPlan{}, errors.Errorf("stop loss ATR period %d out of range", cfg.StopLossATRPeriod)
	}
	targetATR, ok := alert.ATRAt(cfg.ProfitTargetATRPeriod)
	if !ok {
		return models.OrderPlan{}, errors.Errorf("profit target ATR period %d out of range", cfg.ProfitTargetATRPeriod)
	}

	stopDistance := stopATR * cfg.StopLossMultiple
	limitDistance := targetATR * cfg.ProfitMultiple

	// TradingView and IG can quote the same instrument on different scales:
	// UK share epics are quoted in pence on IG while the alert carries
	// pounds (15.40 vs 1540.0). Rescale the whole plan to the broker's
	// quote before comparing against its dealing rules.
	if scaled := normalizePrice(entry, inst.Mid); scaled != entry {
		factor := scaled / entry
		entry = scaled
		stopDistance *= factor
		limitDistance *= factor
	}

	var widened bool
	if inst.MinStopDistance > 0 && stopDistance < inst.MinStopDistance {
		stopDistance = inst.MinStopDistance
		widened = true
	}
	if inst.MinLimitDistance > 0 && limitDistance < inst.MinLimitDistance {
		limitDistance = inst.MinLimitDistance
		widened = true
	}

	direction := alert.Direction.TradeSide()
	var stopLevel, limitLevel float64
	switch direction {
	case models.SideSell:
		stopLevel = entry + stopDistance
		limitLevel = entry - limitDistance
	default:
		stopLevel = entry - stopDistance
		limitLevel = entry + limitDistance
	}

	size := cfg.MaxPositionValue / entry
	if inst.MaxDealSize > 0 && size > inst.MaxDealSize {
		size = inst.MaxDealSize
	}
	size = roundDownToStep(size, inst.SizeIncrement)
	if inst.MinDealSize > 0 && size < inst.MinDealSize {
		return models.OrderPlan{}, errors.Wrap(ErrSizeBelowMinimum,
			fmt.Sprintf("size %g < min %g for %s", size, inst.MinDealSize, inst.Epic))
	}

	return models.OrderPlan{
		Symbol:           alert.Symbol,
		Epic:             inst.Epic,
		Direction:        direction,
		EntryPrice:       entry,
		StopLevel:        stopLevel,
		LimitLevel:       limitLevel,
		StopDistance:     stopDistance,
		LimitDistance:    limitDistance,
		Size:             size,
		DistancesWidened: widened,
	}, nil
}

// roundDownToStep floors v to a multiple of step. A zero step means the
// broker reported no increment and v passes through unchanged.
func roundDownToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Floor(v/step) * step
}

// normalizePrice rescales an alert price to the broker's quote scale using
// the broker mid as the reference. A ratio near 100x means a pence/pounds
// mismatch; otherwise the integer digit counts decide the power of ten.
// Without a reference quote the price passes through unchanged.
func normalizePrice(price, refPrice float64) float64 {
	if price <= 0 || refPrice <= 0 {
		return price
	}
	if ratio := refPrice / price; ratio >= 50 && ratio <= 150 {
		return price * 100
	}
	switch diff := integerDigits(refPrice) - integerDigits(price); {
	case diff >= 2:
		return price * math.Pow(10, float64(diff))
	case diff <= -2:
		return price / math.Pow(10, float64(-diff))
	case diff == 1 && refPrice/price >= 5:
		// Single-digit difference is ambiguous near a power-of-ten
		// boundary (9.5 vs 10.2); rescale only when the ratio agrees.
		return price * 10
	default:
		return price
	}
}

// integerDigits counts the digits before the decimal point; zero for
// prices below one.
func integerDigits(v float64) int {
	n := int(math.Abs(v))
	digits := 0
	for n > 0 {
		digits++
		n /= 10
	}
	return digits
}
