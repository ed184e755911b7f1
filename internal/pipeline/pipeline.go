// Package pipeline wires alert parsing, instrument resolution, validation,
// order calculation and execution into one decision path.
package pipeline

import (
	"context"
	"time"

	"alert_bot/internal/alert"
	"alert_bot/internal/models"
	"alert_bot/internal/modules/config"
	"alert_bot/internal/notify"
	"alert_bot/internal/resolver"
	"alert_bot/internal/tickers"
	"alert_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

// OutcomeKind enumerates the terminal states of one alert. Every alert maps
// to exactly one of these.
type OutcomeKind string

const (
	OutcomeAccepted       OutcomeKind = "accepted"
	OutcomeInvalidAlert   OutcomeKind = "invalid_alert"
	OutcomeVeto           OutcomeKind = "veto"
	OutcomeComputeError   OutcomeKind = "compute_error"
	OutcomeBrokerRejected OutcomeKind = "broker_rejected"
	OutcomeUnknown        OutcomeKind = "unknown"
)

type Outcome struct {
	Kind       OutcomeKind              `json:"kind"`
	Symbol     string                   `json:"symbol,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Validation *models.ValidationResult `json:"validation,omitempty"`
	Execution  *models.ExecutionResult  `json:"execution,omitempty"`
}

type Pipeline struct {
	cfg       *config.Config
	store     *tickers.Store
	resolver  *resolver.Resolver
	validator *Validator
	executor  *Executor
	notifier  notify.Notifier
	locks     *symbolLocks
}

func New(cfg *config.Config, store *tickers.Store, res *resolver.Resolver, validator *Validator, executor *Executor, notifier notify.Notifier) *Pipeline {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		resolver:  res,
		validator: validator,
		executor:  executor,
		notifier:  notifier,
		locks:     newSymbolLocks(),
	}
}

// Process takes one raw alert line through the full decision path. The
// per-symbol lock spans validation through the ledger write, so two alerts
// for the same symbol can never both pass the duplicate check.
func (p *Pipeline) Process(ctx context.Context, raw string) Outcome {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pipeline.Process")
	defer span.Finish()

	a, err := alert.Parse(raw, time.Now())
	if err != nil {
		logger.Info("alert rejected: %v", err)
		return Outcome{Kind: OutcomeInvalidAlert, Error: err.Error()}
	}
	span.SetTag("symbol", a.Symbol)

	tc, ok := p.store.Lookup(a.Symbol)
	if !ok {
		if !p.cfg.Trading.AllowUnconfigured {
			res := models.Vetoed(models.VetoConfigMissing, map[string]string{"symbol": a.Symbol})
			p.notifier.Vetoed(ctx, a.Symbol, res)
			return Outcome{Kind: OutcomeVeto, Symbol: a.Symbol, Validation: &res}
		}
		tc = p.defaultConfig(a.Symbol)
		logger.Info("no config for %s, using defaults", a.Symbol)
	}

	inst, err := p.resolver.Resolve(ctx, a.Symbol, tc)
	if err != nil {
		reason := models.VetoInstrumentNotResolvable
		if !errors.Is(err, resolver.ErrNotResolvable) {
			logger.Error("resolution failed for %s: %v", a.Symbol, err)
		}
		res := models.Vetoed(reason, map[string]string{"error": err.Error()})
		p.notifier.Vetoed(ctx, a.Symbol, res)
		return Outcome{Kind: OutcomeVeto, Symbol: a.Symbol, Validation: &res}
	}

	// A closed market still takes working orders; suspended or offline
	// markets take nothing, so there is no point going further.
	if !inst.Orderable() {
		logger.Info("market %s not orderable for %s: %s", inst.Epic, a.Symbol, inst.MarketStatus)
		res := models.Vetoed(models.VetoInstrumentNotTradeable, map[string]string{
			"epic":   inst.Epic,
			"status": inst.MarketStatus,
		})
		p.notifier.Vetoed(ctx, a.Symbol, res)
		return Outcome{Kind: OutcomeVeto, Symbol: a.Symbol, Validation: &res}
	}

	unlock := p.locks.lock(tickers.Normalize(a.Symbol))
	defer unlock()

	validation, err := p.validator.Validate(ctx, a, tc, inst)
	if err != nil {
		logger.Error("validation failed for %s: %v", a.Symbol, err)
		return Outcome{Kind: OutcomeUnknown, Symbol: a.Symbol, Error: err.Error()}
	}
	if !validation.Allowed {
		logger.Info("alert vetoed for %s: %s", a.Symbol, validation.Reason)
		p.notifier.Vetoed(ctx, a.Symbol, validation)
		return Outcome{Kind: OutcomeVeto, Symbol: a.Symbol, Validation: &validation}
	}

	plan, err := Compute(a, tc, inst)
	if err != nil {
		logger.Error("order computation failed for %s: %v", a.Symbol, err)
		return Outcome{Kind: OutcomeComputeError, Symbol: a.Symbol, Error: err.Error()}
	}

	exec := p.executor.Execute(ctx, plan)
	switch exec.Status {
	case models.ExecutionFilled:
		return Outcome{Kind: OutcomeAccepted, Symbol: a.Symbol, Execution: &exec}
	case models.ExecutionRejected:
		return Outcome{Kind: OutcomeBrokerRejected, Symbol: a.Symbol, Execution: &exec}
	default:
		return Outcome{Kind: OutcomeUnknown, Symbol: a.Symbol, Execution: &exec}
	}
}

// defaultConfig is used for symbols missing from the ticker table when
// trading them is explicitly allowed. Conservative: trade at the reported
// opening price with single-ATR distances and the default position value.
func (p *Pipeline) defaultConfig(symbol string) models.TickerConfig {
	return models.TickerConfig{
		Symbol:                symbol,
		EpicHint:              models.EpicUnresolved,
		StopLossATRPeriod:     1,
		StopLossMultiple:      1.0,
		ProfitTargetATRPeriod: 1,
		ProfitMultiple:        1.0,
		MaxPositionValue:      p.cfg.Trading.DefaultMaxPositionValue,
		OpeningPriceMultiple:  1.0,
	}
}
