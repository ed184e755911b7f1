package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// SearchMarkets queries IG's instrument search for a bare ticker term.
func (c *Client) SearchMarkets(ctx context.Context, term string) ([]Market, error) {
	var resp searchResponse
	err := c.do(ctx, http.MethodGet, "/markets?searchTerm="+url.QueryEscape(term), "1", nil, &resp)
	if err != nil {
		return nil, errors.Wrapf(err, "search markets %q", term)
	}
	return resp.Markets, nil
}

// GetMarketDetails fetches dealing rules and the current snapshot for an
// epic. Percentage-unit minimum distances are converted to points against
// the mid price, matching how the order payload expresses distances.
func (c *Client) GetMarketDetails(ctx context.Context, epic string) (MarketDetails, error) {
	var resp marketDetailsResponse
	err := c.do(ctx, http.MethodGet, "/markets/"+url.PathEscape(epic), "3", nil, &resp)
	if err != nil {
		return MarketDetails{}, errors.Wrapf(err, "market details %s", epic)
	}

	d := MarketDetails{
		Epic:           resp.Instrument.Epic,
		InstrumentName: resp.Instrument.Name,
		InstrumentType: resp.Instrument.Type,
		Bid:            resp.Snapshot.Bid,
		Offer:          resp.Snapshot.Offer,
		MarketStatus:   resp.Snapshot.MarketStatus,
		MinDealSize:    resp.DealingRules.MinDealSize.Value,
		MaxDealSize:    resp.DealingRules.MaxDealSize.Value,
	}
	if d.Epic == "" {
		d.Epic = epic
	}

	minRule := resp.DealingRules.MinNormalStopOrLimitDistance
	if minRule.Unit == "PERCENTAGE" {
		d.MinStopDistance = d.Mid() * minRule.Value / 100
	} else {
		d.MinStopDistance = minRule.Value
	}
	d.MinLimitDistance = d.MinStopDistance

	d.SizeIncrement = resp.Instrument.LotSize
	if d.SizeIncrement <= 0 {
		d.SizeIncrement = 0.01
	}

	return d, nil
}
