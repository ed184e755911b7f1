package service

import (
	"context"
	"net/http"
	"time"

	"alert_bot/internal/models"

	"github.com/pkg/errors"
)

const igTimeLayout = "2006-01-02T15:04:05"

// OpenPositions returns the account's open OTC positions.
func (c *Client) OpenPositions(ctx context.Context) ([]models.OpenPosition, error) {
	var resp positionsResponse
	if err := c.do(ctx, http.MethodGet, "/positions", "2", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "open positions")
	}

	out := make([]models.OpenPosition, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		out = append(out, models.OpenPosition{
			Epic:           p.Market.Epic,
			InstrumentName: p.Market.InstrumentName,
			DealID:         p.Position.DealID,
			Direction:      models.Side(p.Position.Direction),
			Size:           p.Position.Size,
			OpenLevel:      p.Position.Level,
			CreatedAt:      parseIGTime(p.Position.CreatedDate),
		})
	}
	return out, nil
}

// WorkingOrders returns the account's resting orders.
func (c *Client) WorkingOrders(ctx context.Context) ([]models.WorkingOrder, error) {
	var resp workingOrdersResponse
	if err := c.do(ctx, http.MethodGet, "/workingorders", "2", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "working orders")
	}

	out := make([]models.WorkingOrder, 0, len(resp.WorkingOrders))
	for _, w := range resp.WorkingOrders {
		out = append(out, models.WorkingOrder{
			Epic:           w.MarketData.Epic,
			InstrumentName: w.MarketData.InstrumentName,
			DealID:         w.WorkingOrderData.DealID,
			Direction:      models.Side(w.WorkingOrderData.Direction),
			Size:           w.WorkingOrderData.OrderSize,
			Level:          w.WorkingOrderData.OrderLevel,
			CreatedAt:      parseIGTime(w.WorkingOrderData.CreatedDate),
		})
	}
	return out, nil
}

func parseIGTime(s string) time.Time {
	t, err := time.Parse(igTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
