package telegramNotifier

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/utils"
	tele "gopkg.in/telebot.v4"
)

const maxMessageLen = 4096

// TelegramNotifier posts back-office events to the staff chat. It never polls
// for updates.
type TelegramNotifier struct {
	bot    *tele.Bot
	chatID tele.ChatID
}

// New returns a notifier that drops every message when no token is configured.
func New(cfg *config.Config) (*TelegramNotifier, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		slog.Info("telegram notifications disabled")
		return &TelegramNotifier{}, nil
	}

	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.Telegram.ApiURL,
		Token:   cfg.Telegram.Token,
		Offline: true,
	})
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		return nil, err
	}

	return &TelegramNotifier{bot: b, chatID: tele.ChatID(cfg.Telegram.ChatID)}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if n.bot == nil {
		return nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TelegramNotifier.Notify"

	_, err := n.bot.Send(n.chatID, truncate(text, maxMessageLen))
	if err != nil {
		slog.Error("failed to send telegram message", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("telegram message sent", slog.String("rqID", rqID), slog.String("op", op))
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
