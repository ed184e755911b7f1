// Package ledger tracks which symbols have already traded today. The
// authoritative copy lives in memory; postgres is a best-effort durable
// shadow used to restore state after a restart.
package ledger

import (
	"context"
	"sync"
	"time"

	"alert_bot/internal/models"
	"alert_bot/internal/tickers"
	"alert_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"alert_bot/pkg/logger"
)

const dateLayout = "2006-01-02"

type Ledger struct {
	tx  db.TxManager
	loc *time.Location
	now func() time.Time

	mu      sync.RWMutex
	records map[string]models.DailyTradeRecord // "SYMBOL|YYYY-MM-DD"
}

// New builds a ledger. tx may be nil, in which case the ledger is
// memory-only and state does not survive restarts.
func New(tx db.TxManager, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		tx:      tx,
		loc:     loc,
		now:     time.Now,
		records: make(map[string]models.DailyTradeRecord),
	}
}

func (l *Ledger) key(symbol string, t time.Time) string {
	return tickers.Normalize(symbol) + "|" + t.In(l.loc).Format(dateLayout)
}

// HasTradedToday reports whether the symbol already has a confirmed trade
// on the current calendar day. Date rollover is implicit: yesterday's keys
// simply stop matching.
func (l *Ledger) HasTradedToday(symbol string) bool {
	k := l.key(symbol, l.now())
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[k]
	return ok
}

// RecordTrade marks the symbol as traded today. The in-memory write always
// succeeds; the postgres write is best-effort and a failure there is logged,
// not returned, so a flaky database can never double-trade a symbol.
func (l *Ledger) RecordTrade(ctx context.Context, symbol, dealReference string, plan models.OrderPlan) models.DailyTradeRecord {
	now := l.now()
	rec := models.DailyTradeRecord{
		Symbol:        tickers.Normalize(symbol),
		Date:          now.In(l.loc).Format(dateLayout),
		DealReference: dealReference,
		RecordedAt:    now,
		Plan:          plan,
	}

	l.mu.Lock()
	l.records[l.key(symbol, now)] = rec
	l.mu.Unlock()

	if l.tx != nil {
		if err := l.persist(ctx, rec); err != nil {
			logger.Error("ledger persist failed for %s: %v", rec.Symbol, err)
		}
	}
	return rec
}

// TodayTrades returns today's records, for the status endpoints.
func (l *Ledger) TodayTrades() []models.DailyTradeRecord {
	today := l.now().In(l.loc).Format(dateLayout)
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.DailyTradeRecord, 0, len(l.records))
	for _, rec := range l.records {
		if rec.Date == today {
			out = append(out, rec)
		}
	}
	return out
}

// RestoreToday reloads today's records from postgres after a restart so the
// one-trade-per-day rule holds across process boundaries.
func (l *Ledger) RestoreToday(ctx context.Context) error {
	if l.tx == nil {
		return nil
	}

	today := l.now().In(l.loc).Format(dateLayout)
	var restored int
	err := l.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx,
			`SELECT symbol, trade_date, deal_reference, recorded_at, plan
			   FROM daily_trades WHERE trade_date = $1`, today)
		if err != nil {
			return errors.Wrap(err, "query daily_trades")
		}
		defer rows.Close()

		for rows.Next() {
			var rec models.DailyTradeRecord
			var planRaw []byte
			if err := rows.Scan(&rec.Symbol, &rec.Date, &rec.DealReference, &rec.RecordedAt, &planRaw); err != nil {
				return errors.Wrap(err, "scan daily_trades")
			}
			if len(planRaw) > 0 {
				_ = sonic.Unmarshal(planRaw, &rec.Plan)
			}

			l.mu.Lock()
			l.records[rec.Symbol+"|"+rec.Date] = rec
			l.mu.Unlock()
			restored++
		}
		return rows.Err()
	})
	if err != nil {
		return errors.Wrap(err, "restore ledger")
	}

	logger.Info("ledger restored: %d trades for %s", restored, today)
	return nil
}

func (l *Ledger) persist(ctx context.Context, rec models.DailyTradeRecord) error {
	planRaw, err := sonic.Marshal(rec.Plan)
	if err != nil {
		return errors.Wrap(err, "marshal plan")
	}

	return l.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO daily_trades (symbol, trade_date, deal_reference, recorded_at, plan)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (symbol, trade_date) DO NOTHING`,
			rec.Symbol, rec.Date, rec.DealReference, rec.RecordedAt, planRaw)
		return err
	})
}
