package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go-job-feed-watcher/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Bot talks to one operator chat.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    logrus.FieldLogger
}

func NewBot(token string, chatID int64, log logrus.FieldLogger) (*Bot, error) {
	return NewBotWithEndpoint(token, chatID, tgbotapi.APIEndpoint, log)
}

// NewBotWithEndpoint points the bot at another Bot API server, in the
// "https://host/bot%s/%s" form used by tgbotapi.
func NewBotWithEndpoint(token string, chatID int64, endpoint string, log logrus.FieldLogger) (*Bot, error) {
	//client timeout must outlast the 60s long poll
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 90 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Bot{
		api:    api,
		chatID: chatID,
		log:    log,
	}, nil
}

func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// SendWithChoices sends text with one row of inline buttons.
func (b *Bot) SendWithChoices(text string, choices []models.Choice) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if len(choices) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, len(choices))
		for i, c := range choices {
			row[i] = tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendText(text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(b.chatID, text))
	return err
}

func (b *Bot) SendError(err error) error {
	return b.SendText(fmt.Sprintf("❌ Error: %v", err))
}

// EditText replaces the text of a sent message, dropping its buttons.
func (b *Bot) EditText(chatID int64, messageID int, text string) error {
	_, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// AnswerCallback stops the client's loading indicator on a pressed button.
func (b *Bot) AnswerCallback(callbackID string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// SetWebhook registers url as the destination for updates. Telegram sends
// secret back in the X-Telegram-Bot-Api-Secret-Token header of each update.
func (b *Bot) SetWebhook(webhookURL, secret string) error {
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid webhook url %q", webhookURL)
	}
	if secret == "" {
		return errors.New("webhook secret is required")
	}

	params := tgbotapi.Params{}
	params["url"] = u.String()
	params["secret_token"] = secret
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// CallbackHandler handles one button press.
type CallbackHandler func(ctx context.Context, cb models.Callback)

// Dispatch hands the update's callback to handle when it comes from the
// operator chat. Other updates are ignored.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update, handle CallbackHandler) {
	cb, ok := CallbackFromUpdate(update)
	if !ok {
		return
	}
	if cb.ChatID != b.chatID {
		b.log.WithField("chat_id", cb.ChatID).Warn("⚠️ Ignoring callback from unknown chat")
		return
	}
	handle(ctx, cb)
}

// Listen long-polls for updates until ctx is cancelled.
func (b *Bot) Listen(ctx context.Context, handle CallbackHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info("👂 Listening for Telegram updates")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Dispatch(ctx, update, handle)
		}
	}
}

// CallbackFromUpdate extracts a button press from an update.
func CallbackFromUpdate(update tgbotapi.Update) (models.Callback, bool) {
	q := update.CallbackQuery
	if q == nil || q.Message == nil || q.Message.Chat == nil {
		return models.Callback{}, false
	}
	return models.Callback{
		ID:        q.ID,
		Data:      q.Data,
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
	}, true
}
