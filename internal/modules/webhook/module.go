package webhook

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"alert_bot/internal/modules/config"
	"alert_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("webhook",
		fx.Provide(NewHandler),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, h *Handler) {
			srv := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.Port),
				Handler:           h.Routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					ln, err := net.Listen("tcp", srv.Addr)
					if err != nil {
						return err
					}
					logger.Info("webhook server listening on %s", srv.Addr)
					go func() {
						if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
							logger.Error("webhook server: %v", err)
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}
