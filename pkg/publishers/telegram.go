package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// telegramPublisher posts to a chat or channel through a bot.
type telegramPublisher struct {
	id        string
	chatID    int64
	parseMode string
	bot       telegramSender
	log       Logger
}

func newTelegramPublisher(_ context.Context, cfg PublisherConfig, deps Deps) (Publisher, error) {
	if cfg.Telegram == nil {
		return nil, configErr("publisher %q missing telegram configuration", cfg.ID)
	}

	token, err := lookupSecret(deps, cfg.Telegram.TokenEnv)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Telegram.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	return &telegramPublisher{
		id:        cfg.ID,
		chatID:    cfg.Telegram.ChatID,
		parseMode: cfg.Telegram.ParseMode,
		bot:       bot,
		log:       ensureLogger(deps.Log),
	}, nil
}

func (t *telegramPublisher) ID() string   { return t.id }
func (t *telegramPublisher) Type() string { return TypeTelegram }

// Publish sends the text as a message, or as the caption of a photo when
// p.MediaPath is set, replying to the parent message in a thread. The
// receipt id is the message id.
func (t *telegramPublisher) Publish(ctx context.Context, p domain.Payload) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}

	var replyTo int
	if p.Thread != nil && p.Thread.Parent.ID != "" {
		parent, err := strconv.Atoi(p.Thread.Parent.ID)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("telegram reply target %q is not a message id", p.Thread.Parent.ID)
		}
		replyTo = parent
	}

	var chattable tgbotapi.Chattable
	if p.MediaPath != "" {
		photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(p.MediaPath))
		photo.Caption = p.Text
		photo.ParseMode = t.parseMode
		photo.ReplyToMessageID = replyTo
		chattable = photo
	} else {
		msg := tgbotapi.NewMessage(t.chatID, p.Text)
		msg.ParseMode = t.parseMode
		msg.ReplyToMessageID = replyTo
		chattable = msg
	}

	sent, err := t.bot.Send(chattable)
	if err != nil {
		t.log.ErrorObj("telegram send failed", "publisher_telegram_error", map[string]any{
			"publisher_id": t.id,
			"natural_key":  p.Item.NaturalKey,
			"error":        err.Error(),
		})
		return domain.Receipt{}, fmt.Errorf("send telegram message: %w", err)
	}
	return domain.Receipt{ID: strconv.Itoa(sent.MessageID)}, nil
}
