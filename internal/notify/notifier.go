// Package notify pushes trade outcomes to the operator. The pipeline never
// blocks on a notification; failures are logged and dropped.
package notify

import (
	"context"
	"fmt"

	"alert_bot/internal/models"
	"alert_bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

type Notifier interface {
	TradePlaced(ctx context.Context, res models.ExecutionResult)
	TradeRejected(ctx context.Context, res models.ExecutionResult)
	Vetoed(ctx context.Context, symbol string, result models.ValidationResult)
}

// Nop satisfies Notifier when notifications are unwanted, e.g. in tests.
type Nop struct{}

func (Nop) TradePlaced(context.Context, models.ExecutionResult)     {}
func (Nop) TradeRejected(context.Context, models.ExecutionResult)   {}
func (Nop) Vetoed(context.Context, string, models.ValidationResult) {}

// Stdout logs outcomes through the service logger. The fallback when no
// telegram token is configured.
type Stdout struct{}

func NewStdout() Stdout { return Stdout{} }

func (Stdout) TradePlaced(_ context.Context, res models.ExecutionResult) {
	p := res.Plan
	logger.Info("trade placed: %s %s size=%g entry=%g stop=%g limit=%g ref=%s",
		p.Direction, p.Symbol, p.Size, p.EntryPrice, p.StopLevel, p.LimitLevel, res.DealReference)
}

func (Stdout) TradeRejected(_ context.Context, res models.ExecutionResult) {
	logger.Info("trade rejected: %s %s reason=%s", res.Plan.Direction, res.Plan.Symbol, res.Reason)
}

func (Stdout) Vetoed(_ context.Context, symbol string, result models.ValidationResult) {
	logger.Info("alert vetoed: %s (%s)", symbol, result.Reason)
}

// Telegram sends outcomes to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram init")
	}
	logger.Info("telegram notifier ready as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) TradePlaced(_ context.Context, res models.ExecutionResult) {
	p := res.Plan
	text := fmt.Sprintf("Trade placed: %s %s\nsize %g @ %g\nstop %g / limit %g\nref %s",
		p.Direction, p.Symbol, p.Size, p.EntryPrice, p.StopLevel, p.LimitLevel, res.DealReference)
	t.send(text)
}

func (t *Telegram) TradeRejected(_ context.Context, res models.ExecutionResult) {
	t.send(fmt.Sprintf("Trade rejected: %s %s\nreason: %s", res.Plan.Direction, res.Plan.Symbol, res.Reason))
}

func (t *Telegram) Vetoed(_ context.Context, symbol string, result models.ValidationResult) {
	t.send(fmt.Sprintf("Alert vetoed: %s (%s)", symbol, result.Reason))
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		logger.Error("telegram send failed: %v", err)
	}
}
