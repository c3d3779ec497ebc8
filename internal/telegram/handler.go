package telegram

import (
	"encoding/json"

	"go.uber.org/zap"

	"tdclient/internal/td"
)

// logError is the default error handler.
func (s *Session) logError(ev *td.Event) {
	raw := ev.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(ev.Payload)
	}
	s.logger.Error("tdlib error", zap.ByteString("event", raw))
}

// Send queues an arbitrary request; its answer arrives as an event.
func (s *Session) Send(req td.Request) error {
	return s.engine.Send(req)
}

// Execute runs a request the engine answers without network I/O.
func (s *Session) Execute(req td.Request) (*td.Event, error) {
	return s.engine.Execute(req)
}

func (s *Session) GetChats(limit int32) error {
	return s.engine.Send(td.NewRequest(td.TypeGetChats, map[string]any{"limit": limit}))
}

func (s *Session) SendMessage(chatID, messageThreadID, replyToMessageID int64, options, replyMarkup, content map[string]any) error {
	return s.engine.Send(td.NewRequest(td.TypeSendMessage, map[string]any{
		"chat_id":               chatID,
		"message_thread_id":     messageThreadID,
		"reply_to_message_id":   replyToMessageID,
		"options":               options,
		"reply_markup":          replyMarkup,
		"input_message_content": content,
	}))
}

func (s *Session) ForwardMessages(chatID, fromChatID int64, messageIDs []int64, options map[string]any, sendCopy, removeCaption bool) error {
	return s.engine.Send(td.NewRequest(td.TypeForwardMessages, map[string]any{
		"chat_id":        chatID,
		"from_chat_id":   fromChatID,
		"message_ids":    messageIDs,
		"options":        options,
		"send_copy":      sendCopy,
		"remove_caption": removeCaption,
	}))
}

// TextMessage builds inputMessageText content for SendMessage.
func TextMessage(text string) map[string]any {
	return map[string]any{
		"@type": "inputMessageText",
		"text": map[string]any{
			"@type": "formattedText",
			"text":  text,
		},
	}
}
