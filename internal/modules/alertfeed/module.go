package alertfeed

import (
	"context"

	"alert_bot/internal/modules/config"
	"alert_bot/internal/pipeline"
	"alert_bot/pkg/logger"

	"go.uber.org/fx"
)

// Module starts the websocket alert feed when a relay URL is configured.
func Module() fx.Option {
	return fx.Module("alertfeed",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, p *pipeline.Pipeline) {
			if cfg.AlertFeed.URL == "" {
				logger.Info("alert feed disabled (no url configured)")
				return
			}

			client := NewClient(cfg.AlertFeed.URL, p)
			ctx, cancel := context.WithCancel(context.Background())

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go client.Run(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
