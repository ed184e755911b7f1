package alert

import (
	"testing"
	"time"

	"alert_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAlert = "BATS:PML UP 7.51 50.53 48.22 45.44 42.65 41.23 40.89 40.55 40.22 40.09 40.01"

func TestParse(t *testing.T) {
	receivedAt := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	a, err := Parse(sampleAlert, receivedAt)
	require.NoError(t, err)

	assert.Equal(t, "BATS:PML", a.Symbol)
	assert.Equal(t, models.DirectionUp, a.Direction)
	assert.Equal(t, 7.51, a.OpeningPrice)
	assert.Equal(t, 50.53, a.ATR[0])
	assert.Equal(t, 40.01, a.ATR[9])
	assert.Equal(t, receivedAt, a.ReceivedAt)
}

func TestParseDirectionCaseInsensitive(t *testing.T) {
	a, err := Parse("PML down 7.51 1 2 3 4 5 6 7 8 9 10", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.DirectionDown, a.Direction)
}

func TestParseExtraWhitespace(t *testing.T) {
	a, err := Parse("  PML   UP  7.51 1 2 3 4 5 6 7 8 9 10\n", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "PML", a.Symbol)
}

func TestParseTokenCount(t *testing.T) {
	for _, raw := range []string{
		"",
		"PML UP 7.51",
		"PML UP 7.51 1 2 3 4 5 6 7 8 9",       // 12 tokens
		"PML UP 7.51 1 2 3 4 5 6 7 8 9 10 11", // 14 tokens
	} {
		_, err := Parse(raw, time.Now())
		require.Error(t, err, "raw=%q", raw)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, InvalidAlertFormat, perr.Kind)
	}
}

func TestParseBadDirection(t *testing.T) {
	_, err := Parse("PML SIDEWAYS 7.51 1 2 3 4 5 6 7 8 9 10", time.Now())
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, InvalidAlertFormat, perr.Kind)
	assert.Equal(t, "direction", perr.Field)
}

func TestParseBadValues(t *testing.T) {
	cases := []struct {
		raw   string
		field string
	}{
		{"PML UP seven 1 2 3 4 5 6 7 8 9 10", "opening_price"},
		{"PML UP 7.51 -1 2 3 4 5 6 7 8 9 10", "atr1"},
		{"PML UP 7.51 1 2 3 4 5 6 7 8 9 x", "atr10"},
		// strconv.ParseFloat parses these, but they must not reach the
		// calculator: NaN compares false against every range check.
		{"PML UP NaN 1 2 3 4 5 6 7 8 9 10", "opening_price"},
		{"PML UP nan 1 2 3 4 5 6 7 8 9 10", "opening_price"},
		{"PML UP 7.51 +Inf 2 3 4 5 6 7 8 9 10", "atr1"},
		{"PML UP 7.51 1 2 3 4 5 6 7 8 9 -Inf", "atr10"},
		{"PML UP Infinity 1 2 3 4 5 6 7 8 9 10", "opening_price"},
	}
	for _, tc := range cases {
		_, err := Parse(tc.raw, time.Now())
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "raw=%q", tc.raw)
		assert.Equal(t, InvalidAlertValue, perr.Kind)
		assert.Equal(t, tc.field, perr.Field)
	}
}
