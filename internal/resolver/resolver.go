// Package resolver maps alert symbols to tradeable IG instruments. Resolution
// order is: configured epic hint, then the in-process cache, then a broker
// search. Concurrent lookups for the same symbol collapse into one search.
package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"alert_bot/internal/models"
	"alert_bot/internal/modules/ig/service"
	"alert_bot/internal/tickers"
	"alert_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ErrNotResolvable means no broker instrument could be found for the symbol.
var ErrNotResolvable = errors.New("instrument not resolvable")

// spreadbet epic prefixes; spread-bet accounts cannot deal CFD epics.
var spreadbetPrefixes = []string{"CS.D.", "IX.D.", "KA.D.", "UA.D.", "UD.D.", "UK.D.", "UP.D."}

// Broker is the slice of the IG client the resolver needs.
type Broker interface {
	SearchMarkets(ctx context.Context, term string) ([]service.Market, error)
	GetMarketDetails(ctx context.Context, epic string) (service.MarketDetails, error)
}

type Resolver struct {
	broker Broker
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]models.Instrument // keyed by normalized symbol
}

func New(broker Broker) *Resolver {
	return &Resolver{
		broker: broker,
		cache:  make(map[string]models.Instrument),
	}
}

// Resolve returns the instrument for a symbol, using the ticker config's
// epic hint when present. Successful resolutions are cached for the process
// lifetime; failures are never cached.
func (r *Resolver) Resolve(ctx context.Context, symbol string, cfg models.TickerConfig) (models.Instrument, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "resolver.Resolve")
	defer span.Finish()

	key := tickers.Normalize(symbol)

	if inst, ok := r.cached(key); ok {
		return inst, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if inst, ok := r.cached(key); ok {
			return inst, nil
		}

		epic, err := r.findEpic(ctx, key, cfg)
		if err != nil {
			return models.Instrument{}, err
		}

		details, err := r.broker.GetMarketDetails(ctx, epic)
		if err != nil {
			return models.Instrument{}, errors.Wrapf(err, "resolve %s", key)
		}

		inst := models.Instrument{
			Symbol:           key,
			Epic:             epic,
			InstrumentType:   details.InstrumentType,
			Tradeable:        details.Tradeable(),
			MarketStatus:     details.MarketStatus,
			Mid:              details.Mid(),
			MinStopDistance:  details.MinStopDistance,
			MinLimitDistance: details.MinLimitDistance,
			MinDealSize:      details.MinDealSize,
			MaxDealSize:      details.MaxDealSize,
			SizeIncrement:    details.SizeIncrement,
			ResolvedAt:       time.Now(),
		}

		r.mu.Lock()
		r.cache[key] = inst
		r.mu.Unlock()

		logger.Info("resolved %s -> %s", key, epic)
		return inst, nil
	})
	if err != nil {
		return models.Instrument{}, err
	}
	return v.(models.Instrument), nil
}

// Invalidate drops the cached instrument for one symbol.
func (r *Resolver) Invalidate(symbol string) {
	key := tickers.Normalize(symbol)
	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()
}

// InvalidateAll empties the cache.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]models.Instrument)
	r.mu.Unlock()
}

func (r *Resolver) cached(key string) (models.Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.cache[key]
	return inst, ok
}

func (r *Resolver) findEpic(ctx context.Context, symbol string, cfg models.TickerConfig) (string, error) {
	if cfg.HasEpicHint() {
		return cfg.EpicHint, nil
	}

	term := tickers.StripExchange(symbol)
	markets, err := r.broker.SearchMarkets(ctx, term)
	if err != nil {
		return "", errors.Wrapf(err, "search %s", symbol)
	}
	if len(markets) == 0 {
		return "", errors.Wrapf(ErrNotResolvable, "no markets for %s", symbol)
	}

	epic := pickEpic(markets, tickers.Exchange(symbol))
	if epic == "" {
		return "", errors.Wrapf(ErrNotResolvable, "no usable market for %s", symbol)
	}
	return epic, nil
}

// pickEpic prefers spread-bet epics, and within them an exchange match when
// the symbol carried an exchange prefix. Falls back to an exchange match
// across all results, then the first result.
func pickEpic(markets []service.Market, exchange string) string {
	var spreadbet []service.Market
	for _, m := range markets {
		if isSpreadbetEpic(m.Epic) {
			spreadbet = append(spreadbet, m)
		}
	}

	if exchange != "" {
		if m, ok := matchExchange(spreadbet, exchange); ok {
			return m.Epic
		}
	}
	if len(spreadbet) > 0 {
		return spreadbet[0].Epic
	}
	if exchange != "" {
		if m, ok := matchExchange(markets, exchange); ok {
			logger.Warn("epic %s matched exchange %s but may not be spreadbet dealable", m.Epic, exchange)
			return m.Epic
		}
	}
	logger.Warn("no spreadbet epic found, falling back to %s", markets[0].Epic)
	return markets[0].Epic
}

func isSpreadbetEpic(epic string) bool {
	for _, p := range spreadbetPrefixes {
		if strings.HasPrefix(epic, p) {
			return true
		}
	}
	return strings.Contains(epic, ".DAILY.IP") || strings.Contains(epic, ".CASH.IP")
}

func matchExchange(markets []service.Market, exchange string) (service.Market, bool) {
	needle := strings.ToLower(exchange)
	for _, m := range markets {
		marketExchange, _, _ := strings.Cut(m.MarketID, ".")
		if strings.Contains(strings.ToLower(marketExchange), needle) ||
			strings.Contains(strings.ToLower(m.InstrumentName), needle) {
			return m, true
		}
	}
	return service.Market{}, false
}
