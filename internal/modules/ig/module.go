package ig

import (
	"context"

	"alert_bot/internal/modules/ig/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("ig",
		fx.Provide(service.NewClient),
		fx.Invoke(func(lc fx.Lifecycle, client *service.Client) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return client.Login(ctx)
				},
			})
		}),
	)
}
