// Package relay forwards incoming text messages to a chat through the
// Telegram Bot API.
package relay

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tdclient/internal/td"
)

// Sender is the part of *tgbotapi.BotAPI the relay uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Relay struct {
	bot    Sender
	chatID int64
	logger *zap.Logger
}

func New(token string, chatID int64, logger *zap.Logger) (*Relay, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("relay bot init: %w", err)
	}
	api.Debug = false
	r := NewWithSender(api, chatID, logger)
	r.logger.Info("relay bot ready", zap.String("bot", api.Self.UserName), zap.Int64("chat_id", chatID))
	return r, nil
}

func NewWithSender(bot Sender, chatID int64, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{bot: bot, chatID: chatID, logger: logger}
}

// HandleUpdate forwards updateNewMessage events with text content. Send
// failures are logged and never stop the session.
func (r *Relay) HandleUpdate(ev *td.Event) {
	chatID, text, ok := MessageText(ev)
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(r.chatID, fmt.Sprintf("[%s] %s", chatID, text))
	if _, err := r.bot.Send(msg); err != nil {
		r.logger.Warn("relay send error", zap.Error(err))
	}
}

// MessageText extracts the source chat id and text of a new text message.
func MessageText(ev *td.Event) (chatID, text string, ok bool) {
	if ev == nil || ev.Type != td.TypeUpdateNewMessage {
		return "", "", false
	}
	msg := ev.Object("message")
	content, _ := msg["content"].(map[string]any)
	if typ, _ := content["@type"].(string); typ != "messageText" {
		return "", "", false
	}
	formatted, _ := content["text"].(map[string]any)
	text, _ = formatted["text"].(string)
	if text == "" {
		return "", "", false
	}
	switch id := msg["chat_id"].(type) {
	case json.Number:
		chatID = id.String()
	case float64:
		chatID = fmt.Sprintf("%.0f", id)
	default:
		chatID = fmt.Sprint(id)
	}
	return chatID, text, true
}
