package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeSideFadesAlertDirection(t *testing.T) {
	assert.Equal(t, SideSell, DirectionUp.TradeSide())
	assert.Equal(t, SideBuy, DirectionDown.TradeSide())
}

func TestInvert(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Invert())
	assert.Equal(t, SideBuy, SideSell.Invert())
	assert.Equal(t, SideNone, SideNone.Invert())
}

func TestTradeSideIsInversionOfDirection(t *testing.T) {
	// The mapping is the inversion law in both directions.
	for _, d := range []AlertDirection{DirectionUp, DirectionDown} {
		side := d.TradeSide()
		assert.Equal(t, side.Invert().Invert(), side)
	}
}
