package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alert_bot/internal/models"
	"alert_bot/pkg/logger"

	"github.com/pkg/errors"
)

// PlaceOrder submits the plan as a limit-entry order and returns the deal
// reference. On a tradeable market the order goes through /positions/otc;
// when the market is closed it is parked as a working order via
// /workingorders/otc so it triggers at the next open.
func (c *Client) PlaceOrder(ctx context.Context, plan models.OrderPlan, marketTradeable bool) (string, error) {
	payload := map[string]any{
		"epic":           plan.Epic,
		"expiry":         "DFB",
		"direction":      string(plan.Direction),
		"size":           fmt.Sprintf("%g", plan.Size),
		"level":          fmt.Sprintf("%g", plan.EntryPrice),
		"guaranteedStop": false,
		"stopDistance":   fmt.Sprintf("%g", plan.StopDistance),
		"limitDistance":  fmt.Sprintf("%g", plan.LimitDistance),
		"currencyCode":   "GBP",
		"forceOpen":      true,
	}

	path := "/workingorders/otc"
	if marketTradeable {
		path = "/positions/otc"
		payload["orderType"] = "LIMIT"
		payload["timeInForce"] = "EXECUTE_AND_ELIMINATE"
	} else {
		payload["type"] = "LIMIT"
		payload["timeInForce"] = "GOOD_TILL_CANCELLED"
	}

	var resp dealReferenceResponse
	if err := c.do(ctx, http.MethodPost, path, "2", payload, &resp); err != nil {
		return "", errors.Wrapf(err, "place order %s %s", plan.Epic, plan.Direction)
	}
	if resp.DealReference == "" {
		return "", errors.New("place order: empty deal reference")
	}

	logger.Info("order submitted: %s %s size=%g level=%g ref=%s",
		plan.Direction, plan.Epic, plan.Size, plan.EntryPrice, resp.DealReference)
	return resp.DealReference, nil
}

// Confirmation fetches the broker's verdict for a deal reference.
func (c *Client) Confirmation(ctx context.Context, dealReference string) (DealConfirmation, error) {
	var conf DealConfirmation
	err := c.do(ctx, http.MethodGet, "/confirms/"+url.PathEscape(dealReference), "1", nil, &conf)
	if err != nil {
		return DealConfirmation{}, errors.Wrapf(err, "confirm %s", dealReference)
	}
	return conf, nil
}

// RecentDealFor scans account activity since the given time for a deal on
// the epic. Used to reconcile orders whose submission timed out.
func (c *Client) RecentDealFor(ctx context.Context, epic string, since time.Time) (dealReference string, found bool, err error) {
	path := fmt.Sprintf("/history/activity?from=%s&detailed=true&pageSize=50",
		url.QueryEscape(since.UTC().Format("2006-01-02T15:04:05")))

	var resp activityResponse
	if err := c.do(ctx, http.MethodGet, path, "3", nil, &resp); err != nil {
		return "", false, errors.Wrap(err, "recent activity")
	}

	for _, a := range resp.Activities {
		e := a.Epic
		if e == "" {
			e = a.Details.Epic
		}
		if !strings.EqualFold(e, epic) {
			continue
		}
		// A rejected submission also shows up in activity; only an
		// accepted one counts as evidence the order went through.
		if a.Status != "" && !strings.EqualFold(a.Status, "ACCEPTED") {
			continue
		}
		if a.Details.DealReference != "" {
			return a.Details.DealReference, true, nil
		}
	}
	return "", false, nil
}
