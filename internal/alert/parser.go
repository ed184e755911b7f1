// Package alert parses the textual TradingView alert grammar:
//
//	SYMBOL DIRECTION OPENING_PRICE ATR1 ATR2 ... ATR10
//
// Exactly 13 whitespace-separated tokens. This is the only bit-exact
// external contract the pipeline owns.
package alert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"alert_bot/internal/models"
)

const tokenCount = 3 + models.ATRPeriods

// ErrorKind distinguishes a malformed message from a message whose shape is
// right but whose values are not.
type ErrorKind string

const (
	InvalidAlertFormat ErrorKind = "invalid_alert_format"
	InvalidAlertValue  ErrorKind = "invalid_alert_value"
)

// ParseError names the offending field so callers can surface it.
type ParseError struct {
	Kind  ErrorKind
	Field string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: field %s: %s", e.Kind, e.Field, e.Msg)
}

func formatErr(field, msg string) *ParseError {
	return &ParseError{Kind: InvalidAlertFormat, Field: field, Msg: msg}
}

func valueErr(field, msg string) *ParseError {
	return &ParseError{Kind: InvalidAlertValue, Field: field, Msg: msg}
}

// Parse turns a raw alert line into an Alert. receivedAt is stamped by the
// caller (the receiving process), never read from the payload. No side
// effects on failure.
func Parse(raw string, receivedAt time.Time) (models.Alert, error) {
	parts := strings.Fields(raw)
	if len(parts) != tokenCount {
		return models.Alert{}, formatErr("", fmt.Sprintf("expected %d tokens, got %d", tokenCount, len(parts)))
	}

	symbol := parts[0]
	if symbol == "" {
		return models.Alert{}, formatErr("symbol", "empty")
	}

	var direction models.AlertDirection
	switch strings.ToUpper(parts[1]) {
	case string(models.DirectionUp):
		direction = models.DirectionUp
	case string(models.DirectionDown):
		direction = models.DirectionDown
	default:
		return models.Alert{}, formatErr("direction", fmt.Sprintf("%q is not UP or DOWN", parts[1]))
	}

	openingPrice, err := parseNonNegative("opening_price", parts[2])
	if err != nil {
		return models.Alert{}, err
	}

	a := models.Alert{
		Symbol:       symbol,
		Direction:    direction,
		OpeningPrice: openingPrice,
		ReceivedAt:   receivedAt,
	}
	for i := 0; i < models.ATRPeriods; i++ {
		field := fmt.Sprintf("atr%d", i+1)
		v, err := parseNonNegative(field, parts[3+i])
		if err != nil {
			return models.Alert{}, err
		}
		a.ATR[i] = v
	}

	return a, nil
}

func parseNonNegative(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, valueErr(field, fmt.Sprintf("%q is not a decimal", s))
	}
	// ParseFloat accepts "NaN" and "Inf"; neither is a price or an ATR, and
	// NaN would slip past every downstream range check.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, valueErr(field, fmt.Sprintf("%q is not finite", s))
	}
	if v < 0 {
		return 0, valueErr(field, fmt.Sprintf("%v is negative", v))
	}
	return v, nil
}
