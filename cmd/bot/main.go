package main

import (
	"context"
	"log"

	"alert_bot/internal/ledger"
	"alert_bot/internal/modules/alertfeed"
	"alert_bot/internal/modules/config"
	"alert_bot/internal/modules/ig"
	"alert_bot/internal/modules/ig/service"
	"alert_bot/internal/modules/postgres"
	"alert_bot/internal/modules/webhook"
	"alert_bot/internal/notify"
	"alert_bot/internal/pipeline"
	"alert_bot/internal/positions"
	"alert_bot/internal/resolver"
	"alert_bot/internal/tickers"
	"alert_bot/pkg/db"
	"alert_bot/pkg/logger"
	"alert_bot/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "alert_bot"

func main() {
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		ig.Module(),
		fx.Provide(
			func(cfg *config.Config) (*tickers.Store, error) {
				return tickers.New(cfg.Tickers.CSVPath)
			},
			func(client *service.Client) *resolver.Resolver {
				return resolver.New(client)
			},
			func(cfg *config.Config, tx *db.PgTxManager) *ledger.Ledger {
				return ledger.New(tx, cfg.Location())
			},
			func(cfg *config.Config, client *service.Client, lg *ledger.Ledger) *positions.Reader {
				return positions.NewReader(client, lg, cfg.Trading.PositionsCacheTTL)
			},
			func(cfg *config.Config) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
			func(cfg *config.Config, lg *ledger.Ledger, reader *positions.Reader) *pipeline.Validator {
				return pipeline.NewValidator(cfg, lg, reader)
			},
			func(client *service.Client, lg *ledger.Ledger, reader *positions.Reader, n notify.Notifier) *pipeline.Executor {
				return pipeline.NewExecutor(client, lg, reader, n)
			},
			pipeline.New,
			func(client *service.Client) webhook.Confirmer { return client },
		),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) error {
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				})
				if err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						closeTracer()
						return nil
					},
				})
				return nil
			},
			func(lc fx.Lifecycle, lg *ledger.Ledger) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return lg.RestoreToday(ctx)
					},
				})
			},
		),
		webhook.Module(),
		alertfeed.Module(),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()

	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
