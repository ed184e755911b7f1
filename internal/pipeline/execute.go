package pipeline

import (
	"context"
	"time"

	"alert_bot/internal/ledger"
	"alert_bot/internal/models"
	"alert_bot/internal/modules/ig/service"
	"alert_bot/internal/notify"
	"alert_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

// OrderBroker is the slice of the IG client the executor needs.
type OrderBroker interface {
	GetMarketDetails(ctx context.Context, epic string) (service.MarketDetails, error)
	PlaceOrder(ctx context.Context, plan models.OrderPlan, marketTradeable bool) (string, error)
	Confirmation(ctx context.Context, dealReference string) (service.DealConfirmation, error)
	RecentDealFor(ctx context.Context, epic string, since time.Time) (string, bool, error)
}

// Cache is invalidated after a placement so the next account read is fresh.
type Cache interface {
	Forget()
}

type Executor struct {
	broker   OrderBroker
	ledger   *ledger.Ledger
	cache    Cache
	notifier notify.Notifier
}

func NewExecutor(broker OrderBroker, lg *ledger.Ledger, cache Cache, notifier notify.Notifier) *Executor {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Executor{broker: broker, ledger: lg, cache: cache, notifier: notifier}
}

// Execute submits the plan. The ledger record for a confirmed trade is
// written before the result is returned, so the caller's per-symbol lock
// covers the duplicate check and the ledger write as one critical section.
//
// A broker rejection is terminal for this alert and never retried. A
// timeout is reconciled against recent account activity before the outcome
// is reported; without evidence either way the status is unknown and the
// ledger stays untouched.
func (e *Executor) Execute(ctx context.Context, plan models.OrderPlan) models.ExecutionResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pipeline.Execute")
	defer span.Finish()

	details, err := e.broker.GetMarketDetails(ctx, plan.Epic)
	if err != nil {
		// Nothing was submitted, so failing here is safe to surface as a
		// plain rejection.
		return models.ExecutionResult{
			Status: models.ExecutionRejected,
			Reason: err.Error(),
			Plan:   plan,
		}
	}

	submittedAt := time.Now()
	ref, err := e.broker.PlaceOrder(ctx, plan, details.Tradeable())
	if err != nil {
		var apiErr *service.APIError
		if errors.As(err, &apiErr) {
			logger.Info("order rejected for %s: %s", plan.Epic, apiErr.Error())
			res := models.ExecutionResult{
				Status: models.ExecutionRejected,
				Reason: apiErr.Error(),
				Plan:   plan,
			}
			e.notifier.TradeRejected(ctx, res)
			return res
		}
		return e.reconcile(ctx, plan, submittedAt, err)
	}

	conf, err := e.broker.Confirmation(ctx, ref)
	if err != nil {
		logger.Error("confirmation unavailable for %s (%s): %v", plan.Epic, ref, err)
		return models.ExecutionResult{
			Status:        models.ExecutionUnknown,
			DealReference: ref,
			Reason:        "confirmation unavailable",
			Plan:          plan,
		}
	}

	if !conf.Accepted() {
		logger.Info("deal rejected for %s: %s", plan.Epic, conf.Reason)
		res := models.ExecutionResult{
			Status:        models.ExecutionRejected,
			DealReference: ref,
			Reason:        conf.Reason,
			Plan:          plan,
		}
		e.notifier.TradeRejected(ctx, res)
		return res
	}

	return e.accept(ctx, plan, ref, conf.DealID)
}

// reconcile handles a failed submission call where the order may or may not
// have reached the broker.
func (e *Executor) reconcile(ctx context.Context, plan models.OrderPlan, submittedAt time.Time, cause error) models.ExecutionResult {
	logger.Error("order submission failed for %s, reconciling: %v", plan.Epic, cause)

	ref, found, err := e.broker.RecentDealFor(ctx, plan.Epic, submittedAt.Add(-time.Minute))
	if err != nil {
		logger.Error("reconciliation failed for %s: %v", plan.Epic, err)
		return models.ExecutionResult{
			Status: models.ExecutionUnknown,
			Reason: cause.Error(),
			Plan:   plan,
		}
	}
	if !found {
		return models.ExecutionResult{
			Status: models.ExecutionUnknown,
			Reason: cause.Error(),
			Plan:   plan,
		}
	}

	logger.Info("reconciliation found deal %s for %s", ref, plan.Epic)
	return e.accept(ctx, plan, ref, "")
}

func (e *Executor) accept(ctx context.Context, plan models.OrderPlan, ref, dealID string) models.ExecutionResult {
	e.ledger.RecordTrade(ctx, plan.Symbol, ref, plan)
	if e.cache != nil {
		e.cache.Forget()
	}

	res := models.ExecutionResult{
		Status:        models.ExecutionFilled,
		DealReference: ref,
		DealID:        dealID,
		Plan:          plan,
	}
	e.notifier.TradePlaced(ctx, res)
	return res
}
