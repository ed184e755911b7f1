package pipeline

import (
	"context"
	"fmt"
	"time"

	"alert_bot/internal/models"
	"alert_bot/internal/modules/config"

	"github.com/opentracing/opentracing-go"
)

// LedgerState answers the same-day-duplicate question.
type LedgerState interface {
	HasTradedToday(symbol string) bool
}

// AccountState answers the broker-side questions the validation chain asks.
type AccountState interface {
	ExistingPositionFor(ctx context.Context, epic string) (bool, error)
	CountOpenPositionsAndOrders(ctx context.Context) (openPositions, total int, err error)
}

// Validator runs the policy checks in a fixed order and stops on the first
// veto. Individual checks can be switched off in configuration; a disabled
// check passes unconditionally. The max-deal-age toggle is recognized but
// never vetoes a new alert; it only governs working-order housekeeping.
type Validator struct {
	cfg     *config.Config
	ledger  LedgerState
	account AccountState
	now     func() time.Time
}

func NewValidator(cfg *config.Config, ledger LedgerState, account AccountState) *Validator {
	return &Validator{
		cfg:     cfg,
		ledger:  ledger,
		account: account,
		now:     time.Now,
	}
}

func (v *Validator) Validate(ctx context.Context, alert models.Alert, tc models.TickerConfig, inst models.Instrument) (models.ValidationResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pipeline.Validate")
	defer span.Finish()

	checks := v.cfg.Checks

	if checks.AlertTimestamp {
		age := v.now().Sub(alert.ReceivedAt)
		if age > v.cfg.Trading.AlertMaxAge {
			return models.Vetoed(models.VetoStaleAlert, map[string]string{
				"age":     age.String(),
				"max_age": v.cfg.Trading.AlertMaxAge.String(),
			}), nil
		}
	}

	if checks.DividendDate && tc.DividendToday(v.now()) {
		return models.Vetoed(models.VetoDividendDate, map[string]string{
			"date": tc.NextDividendDate.Format("2006-01-02"),
		}), nil
	}

	if checks.ExistingPosition {
		exists, err := v.account.ExistingPositionFor(ctx, inst.Epic)
		if err != nil {
			return models.ValidationResult{}, err
		}
		if exists {
			return models.Vetoed(models.VetoExistingPosition, map[string]string{
				"epic": inst.Epic,
			}), nil
		}
	}

	if checks.SameDayTrades && v.ledger.HasTradedToday(alert.Symbol) {
		return models.Vetoed(models.VetoSameDayDuplicate, map[string]string{
			"symbol": alert.Symbol,
		}), nil
	}

	if checks.OpenPositionLimit || checks.TotalPositionsAndOrders {
		open, total, err := v.account.CountOpenPositionsAndOrders(ctx)
		if err != nil {
			return models.ValidationResult{}, err
		}
		if checks.OpenPositionLimit && open >= v.cfg.Trading.MaxOpenPositions {
			return models.Vetoed(models.VetoOpenPositionLimit, map[string]string{
				"open": fmt.Sprint(open),
				"max":  fmt.Sprint(v.cfg.Trading.MaxOpenPositions),
			}), nil
		}
		if checks.TotalPositionsAndOrders && total >= v.cfg.Trading.MaxPositionsAndOrders {
			return models.Vetoed(models.VetoTotalPositionsAndOrders, map[string]string{
				"total": fmt.Sprint(total),
				"max":   fmt.Sprint(v.cfg.Trading.MaxPositionsAndOrders),
			}), nil
		}
	}

	return models.Allowed(), nil
}
