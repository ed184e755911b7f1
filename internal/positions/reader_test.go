package positions

import (
	"context"
	"os"
	"testing"
	"time"

	"alert_bot/internal/ledger"
	"alert_bot/internal/models"
	"alert_bot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeBroker struct {
	positions []models.OpenPosition
	orders    []models.WorkingOrder
	calls     int
}

func (f *fakeBroker) OpenPositions(context.Context) ([]models.OpenPosition, error) {
	f.calls++
	return f.positions, nil
}

func (f *fakeBroker) WorkingOrders(context.Context) ([]models.WorkingOrder, error) {
	return f.orders, nil
}

func TestSnapshotCachesWithinTTL(t *testing.T) {
	broker := &fakeBroker{
		positions: []models.OpenPosition{{Epic: "CS.D.PML.DAILY.IP"}},
	}
	r := NewReader(broker, nil, time.Minute)

	_, _, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	_, _, err = r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, broker.calls)
}

func TestSnapshotRefetchesAfterTTL(t *testing.T) {
	broker := &fakeBroker{}
	r := NewReader(broker, nil, time.Minute)

	base := time.Now()
	r.now = func() time.Time { return base }
	_, _, err := r.Snapshot(context.Background())
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, err = r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, broker.calls)
}

func TestForgetDropsCache(t *testing.T) {
	broker := &fakeBroker{}
	r := NewReader(broker, nil, time.Hour)

	_, _, err := r.Snapshot(context.Background())
	require.NoError(t, err)

	r.Forget()
	_, _, err = r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, broker.calls)
}

func TestCountOpenPositionsAndOrders(t *testing.T) {
	broker := &fakeBroker{
		positions: []models.OpenPosition{{Epic: "A"}, {Epic: "B"}},
		orders:    []models.WorkingOrder{{Epic: "C"}},
	}
	r := NewReader(broker, nil, time.Minute)

	open, total, err := r.CountOpenPositionsAndOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, open)
	assert.Equal(t, 3, total)
}

func TestExistingPositionFor(t *testing.T) {
	broker := &fakeBroker{
		positions: []models.OpenPosition{{Epic: "CS.D.PML.DAILY.IP"}},
		orders:    []models.WorkingOrder{{Epic: "UA.D.VOD.DAILY.IP"}},
	}
	r := NewReader(broker, nil, time.Minute)

	for epic, want := range map[string]bool{
		"CS.D.PML.DAILY.IP": true, // open position
		"UA.D.VOD.DAILY.IP": true, // working order counts too
		"cs.d.pml.daily.ip": true,
		"IX.D.FTSE.DAILY.IP": false,
	} {
		got, err := r.ExistingPositionFor(context.Background(), epic)
		require.NoError(t, err)
		assert.Equal(t, want, got, "epic %s", epic)
	}
}

func TestStaleWorkingOrders(t *testing.T) {
	now := time.Now()
	broker := &fakeBroker{
		orders: []models.WorkingOrder{
			{DealID: "OLD", Epic: "A", CreatedAt: now.Add(-48 * time.Hour)},
			{DealID: "FRESH", Epic: "B", CreatedAt: now.Add(-time.Hour)},
			{DealID: "NODATE", Epic: "C"}, // broker gave no timestamp
		},
	}
	r := NewReader(broker, nil, time.Minute)
	r.now = func() time.Time { return now }

	stale, err := r.StaleWorkingOrders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "OLD", stale[0].DealID)
	assert.True(t, stale[0].Stale)
}

func TestReconciledAnnotatesLedgerState(t *testing.T) {
	lg := ledger.New(nil, time.UTC)
	lg.RecordTrade(context.Background(), "PML", "REF1", models.OrderPlan{})

	broker := &fakeBroker{
		positions: []models.OpenPosition{
			{Epic: "CS.D.PML.DAILY.IP", InstrumentName: "PML Petra Diamonds Ltd"},
			{Epic: "UA.D.VOD.DAILY.IP", InstrumentName: "VOD Vodafone Group"},
		},
	}
	r := NewReader(broker, lg, time.Minute)

	out, err := r.Reconciled(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "PML", out[0].Symbol)
	assert.True(t, out[0].TradedToday)
	assert.Equal(t, "VOD", out[1].Symbol)
	assert.False(t, out[1].TradedToday)
}

// Ledger entries carry the alert's exchange prefix; position names only give
// the bare ticker. Reconciliation has to match across the two forms.
func TestReconciledMatchesExchangePrefixedLedgerKeys(t *testing.T) {
	lg := ledger.New(nil, time.UTC)
	lg.RecordTrade(context.Background(), "BATS:PML", "REF1", models.OrderPlan{})

	broker := &fakeBroker{
		positions: []models.OpenPosition{
			{Epic: "CS.D.PML.DAILY.IP", InstrumentName: "PML Petra Diamonds Ltd"},
		},
	}
	r := NewReader(broker, lg, time.Minute)

	out, err := r.Reconciled(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].TradedToday)
}
