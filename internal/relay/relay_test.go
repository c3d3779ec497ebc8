package relay

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tdclient/internal/td"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func decode(t *testing.T, raw string) *td.Event {
	t.Helper()
	ev, err := td.Decode([]byte(raw))
	require.NoError(t, err)
	return ev
}

const textMessage = `{"@type":"updateNewMessage","message":{"id":5,"chat_id":-100123,
	"content":{"@type":"messageText","text":{"@type":"formattedText","text":"hello there"}}}}`

func TestHandleUpdate_ForwardsText(t *testing.T) {
	bot := &fakeBot{}
	r := NewWithSender(bot, 777, nil)

	r.HandleUpdate(decode(t, textMessage))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(777), msg.ChatID)
	assert.Equal(t, "[-100123] hello there", msg.Text)
}

func TestHandleUpdate_SkipsOtherEvents(t *testing.T) {
	bot := &fakeBot{}
	r := NewWithSender(bot, 777, nil)

	r.HandleUpdate(decode(t, `{"@type":"updateAuthorizationState","authorization_state":{"@type":"authorizationStateReady"}}`))
	r.HandleUpdate(decode(t, `{"@type":"updateNewMessage","message":{"chat_id":1,"content":{"@type":"messagePhoto"}}}`))
	r.HandleUpdate(nil)

	assert.Empty(t, bot.sent)
}

func TestHandleUpdate_SendErrorLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bot := &fakeBot{err: errors.New("Forbidden: bot was blocked by the user")}
	r := NewWithSender(bot, 777, zap.New(core))

	assert.NotPanics(t, func() { r.HandleUpdate(decode(t, textMessage)) })
	assert.Equal(t, 1, logs.FilterMessage("relay send error").Len())
}

func TestMessageText(t *testing.T) {
	chatID, text, ok := MessageText(decode(t, textMessage))
	assert.True(t, ok)
	assert.Equal(t, "-100123", chatID)
	assert.Equal(t, "hello there", text)
}
