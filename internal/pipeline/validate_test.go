package pipeline

import (
	"context"
	"testing"
	"time"

	"alert_bot/internal/models"
	"alert_bot/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	traded map[string]bool
}

func (f *fakeLedger) HasTradedToday(symbol string) bool {
	return f.traded[symbol]
}

type fakeAccount struct {
	existing map[string]bool
	open     int
	total    int
	err      error
}

func (f *fakeAccount) ExistingPositionFor(_ context.Context, epic string) (bool, error) {
	return f.existing[epic], f.err
}

func (f *fakeAccount) CountOpenPositionsAndOrders(context.Context) (int, int, error) {
	return f.open, f.total, f.err
}

func allChecksOn() *config.Config {
	cfg := &config.Config{}
	cfg.Trading.MaxOpenPositions = 10
	cfg.Trading.MaxPositionsAndOrders = 15
	cfg.Trading.AlertMaxAge = 5 * time.Second
	cfg.Checks = config.Checks{
		ExistingPosition:        true,
		SameDayTrades:           true,
		OpenPositionLimit:       true,
		AlertTimestamp:          true,
		DividendDate:            true,
		MaxDealAge:              true,
		TotalPositionsAndOrders: true,
	}
	return cfg
}

func newTestValidator(cfg *config.Config, ledger *fakeLedger, account *fakeAccount, now time.Time) *Validator {
	if ledger == nil {
		ledger = &fakeLedger{traded: map[string]bool{}}
	}
	if account == nil {
		account = &fakeAccount{existing: map[string]bool{}}
	}
	v := NewValidator(cfg, ledger, account)
	v.now = func() time.Time { return now }
	return v
}

func freshAlert(now time.Time) models.Alert {
	return models.Alert{Symbol: "BATS:PML", Direction: models.DirectionUp, OpeningPrice: 7.51, ReceivedAt: now}
}

func TestValidateAllows(t *testing.T) {
	now := time.Now()
	v := newTestValidator(allChecksOn(), nil, nil, now)

	res, err := v.Validate(context.Background(), freshAlert(now), models.TickerConfig{}, testInstrument())
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, models.VetoNone, res.Reason)
}

func TestValidateStaleAlert(t *testing.T) {
	now := time.Now()
	v := newTestValidator(allChecksOn(), nil, nil, now)

	a := freshAlert(now.Add(-10 * time.Second))
	res, err := v.Validate(context.Background(), a, models.TickerConfig{}, testInstrument())
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, models.VetoStaleAlert, res.Reason)
}

func TestValidateDividendDate(t *testing.T) {
	now := time.Now()
	v := newTestValidator(allChecksOn(), nil, nil, now)

	div := now
	tc := models.TickerConfig{NextDividendDate: &div}
	res, err := v.Validate(context.Background(), freshAlert(now), tc, testInstrument())
	require.NoError(t, err)
	assert.Equal(t, models.VetoDividendDate, res.Reason)
}

func TestValidateDividendTomorrowAllowed(t *testing.T) {
	now := time.Now()
	v := newTestValidator(allChecksOn(), nil, nil, now)

	div := now.Add(24 * time.Hour)
	tc := models.TickerConfig{NextDividendDate: &div}
	res, err := v.Validate(context.Background(), freshAlert(now), tc, testInstrument())
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestValidateExistingPosition(t *testing.T) {
	now := time.Now()
	inst := testInstrument()
	account := &fakeAccount{existing: map[string]bool{inst.Epic: true}}
	v := newTestValidator(allChecksOn(), nil, account, now)

	res, err := v.Validate(context.Background(), freshAlert(now), models.TickerConfig{}, inst)
	require.NoError(t, err)
	assert.Equal(t, models.VetoExistingPosition, res.Reason)
}

func TestValidateSameDayDuplicate(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{traded: map[string]bool{"BATS:PML": true}}
	v := newTestValidator(allChecksOn(), ledger, nil, now)

	res, err := v.Validate(context.Background(), freshAlert(now), models.TickerConfig{}, testInstrument())
	require.NoError(t, err)
	assert.Equal(t, models.VetoSameDayDuplicate, res.Reason)
}

func TestValidateOpenPositionLimit(t *testing.T) {
	now := time.Now()
	account := &fakeAccount{existing: map[string]bool{}, open: 10, total: 10}
	v := newTestValidator(allChecksOn(), nil, account, now)

	res, err := v.Validate(context.Background(), freshAlert(now), models.TickerConfig{}, testInstrument())
	require.NoError(t, err)
	assert.Equal(t, models.VetoOpenPositionLimit, res.Reason)
}

func TestValidateTotalPositionsAndOrdersLimit(t *testing.T) {
	now := time.Now()
	account := &fakeAccount{existing: map[string]bool{}, open: 3, total: 15}
	v := newTestValidator(allChecksOn(), nil, account, now)

	res, err := v.Validate(context.Background(), freshAlert(now), models.TickerConfig{}, testInstrument())
	require.NoError(t, err)
	assert.Equal(t, models.VetoTotalPositionsAndOrders, res.Reason)
}

// The chain short-circuits in its documented order: a stale alert wins over
// every later veto.
func TestValidateFailFastOrder(t *testing.T) {
	now := time.Now()
	div := now
	ledger := &fakeLedger{traded: map[string]bool{"BATS:PML": true}}
	account := &fakeAccount{existing: map[string]bool{"CS.D.PML.DAILY.IP": true}, open: 99, total: 99}
	v := newTestValidator(allChecksOn(), ledger, account, now)

	a := freshAlert(now.Add(-time.Minute))
	res, err := v.Validate(context.Background(), a, models.TickerConfig{NextDividendDate: &div}, testInstrument())
	require.NoError(t, err)
	assert.Equal(t, models.VetoStaleAlert, res.Reason)
}

func TestValidateDisabledChecksPass(t *testing.T) {
	now := time.Now()
	cfg := allChecksOn()
	cfg.Checks = config.Checks{} // everything off

	div := now
	ledger := &fakeLedger{traded: map[string]bool{"BATS:PML": true}}
	account := &fakeAccount{existing: map[string]bool{"CS.D.PML.DAILY.IP": true}, open: 99, total: 99}
	v := newTestValidator(cfg, ledger, account, now)

	a := freshAlert(now.Add(-time.Hour))
	res, err := v.Validate(context.Background(), a, models.TickerConfig{NextDividendDate: &div}, testInstrument())
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

// max_deal_age is a recognized toggle but never vetoes a new alert.
func TestValidateMaxDealAgeNeverVetoesEntry(t *testing.T) {
	now := time.Now()
	cfg := allChecksOn()
	cfg.Trading.MaxDealAge = time.Nanosecond
	v := newTestValidator(cfg, nil, nil, now)

	res, err := v.Validate(context.Background(), freshAlert(now), models.TickerConfig{}, testInstrument())
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
