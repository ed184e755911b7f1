// Package positions caches the broker's open positions and working orders
// for a short TTL so one alert burst does not hammer the account endpoints.
package positions

import (
	"context"
	"strings"
	"sync"
	"time"

	"alert_bot/internal/ledger"
	"alert_bot/internal/models"
	"alert_bot/internal/tickers"

	"github.com/pkg/errors"
)

// Broker is the slice of the IG client the reader needs.
type Broker interface {
	OpenPositions(ctx context.Context) ([]models.OpenPosition, error)
	WorkingOrders(ctx context.Context) ([]models.WorkingOrder, error)
}

type Reader struct {
	broker Broker
	ledger *ledger.Ledger
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	positions []models.OpenPosition
	orders    []models.WorkingOrder
	fetchedAt time.Time
}

func NewReader(broker Broker, lg *ledger.Ledger, ttl time.Duration) *Reader {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Reader{
		broker: broker,
		ledger: lg,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Snapshot returns the cached positions and orders, refreshing from the
// broker when the cache is older than the TTL.
func (r *Reader) Snapshot(ctx context.Context) ([]models.OpenPosition, []models.WorkingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.fetchedAt.IsZero() && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.positions, r.orders, nil
	}

	positions, err := r.broker.OpenPositions(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetch positions")
	}
	orders, err := r.broker.WorkingOrders(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetch working orders")
	}

	r.positions = positions
	r.orders = orders
	r.fetchedAt = r.now()
	return r.positions, r.orders, nil
}

// Forget drops the cache so the next read hits the broker. Called after an
// order is placed.
func (r *Reader) Forget() {
	r.mu.Lock()
	r.fetchedAt = time.Time{}
	r.mu.Unlock()
}

// CountOpenPositionsAndOrders returns the open-position count and the
// combined positions-plus-working-orders count.
func (r *Reader) CountOpenPositionsAndOrders(ctx context.Context) (openPositions, total int, err error) {
	positions, orders, err := r.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(positions), len(positions) + len(orders), nil
}

// ExistingPositionFor reports whether a position or working order already
// exists on the epic.
func (r *Reader) ExistingPositionFor(ctx context.Context, epic string) (bool, error) {
	positions, orders, err := r.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if strings.EqualFold(p.Epic, epic) {
			return true, nil
		}
	}
	for _, o := range orders {
		if strings.EqualFold(o.Epic, epic) {
			return true, nil
		}
	}
	return false, nil
}

// StaleWorkingOrders returns the working orders older than maxAge with the
// Stale flag set. Housekeeping information only.
func (r *Reader) StaleWorkingOrders(ctx context.Context, maxAge time.Duration) ([]models.WorkingOrder, error) {
	_, orders, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := r.now().Add(-maxAge)
	var stale []models.WorkingOrder
	for _, o := range orders {
		if !o.CreatedAt.IsZero() && o.CreatedAt.Before(cutoff) {
			o.Stale = true
			stale = append(stale, o)
		}
	}
	return stale, nil
}

// Reconciled returns open positions annotated against the daily ledger:
// each position carries its bare symbol (instrument-name derived) and
// whether that symbol already traded today. Ledger keys keep the alert's
// exchange prefix ("BATS:PML") while instrument names only yield the bare
// ticker, so the comparison strips the prefix on both sides.
func (r *Reader) Reconciled(ctx context.Context) ([]models.OpenPosition, error) {
	positions, _, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	traded := make(map[string]bool)
	if r.ledger != nil {
		for _, tr := range r.ledger.TodayTrades() {
			traded[tickers.StripExchange(tr.Symbol)] = true
		}
	}

	out := make([]models.OpenPosition, len(positions))
	for i, p := range positions {
		p.Symbol = symbolFromName(p.InstrumentName)
		if p.Symbol != "" {
			p.TradedToday = traded[p.Symbol]
		}
		out[i] = p
	}
	return out, nil
}

// symbolFromName takes the leading token of an instrument name as the bare
// symbol. IG names look like "PML Petra Diamonds Ltd" for share epics; for
// anything without a leading ticker token this is only a best guess.
func symbolFromName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
