package verto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func newTestSubscriptions(t *testing.T) (*Subscriptions, *fakeSocket) {
	t.Helper()
	s, socket, _ := newTestSession(t)
	socket.handler = s
	return NewSubscriptions(s), socket
}

func TestSubscribeReadyAfterAck(t *testing.T) {
	subs, socket := newTestSubscriptions(t)

	var events []string
	subs.Subscribe("conference-chat", func(params json.RawMessage) {
		events = append(events, string(params))
	})

	assert.Equal(t, socket.last().Method, MethodSubscribe)
	assert.Equal(t, socket.last().Params["eventChannel"], "conference-chat")

	sub := subs.Get("conference-chat")
	assert.NotEqual(t, sub, nil)
	assert.Equal(t, sub.Ready, false)

	socket.reply(socket.last().ID, `{"subscribedChannels":["conference-chat"]}`)
	assert.Equal(t, sub.Ready, true)
}

func TestSubscribeUnauthorizedDropped(t *testing.T) {
	subs, socket := newTestSubscriptions(t)

	subs.Subscribe("conference-mod", func(json.RawMessage) {})
	socket.reply(socket.last().ID, `{"unauthorizedChannels":["conference-mod"]}`)

	assert.Equal(t, subs.Get("conference-mod"), (*Subscription)(nil))
}

func TestSubscribeOverwrite(t *testing.T) {
	subs, socket := newTestSubscriptions(t)

	var first, second int
	subs.Subscribe("ch", func(json.RawMessage) { first++ })
	subs.Subscribe("ch", func(json.RawMessage) { second++ })

	socket.reply(socket.last().ID, `{"subscribedChannels":["ch"]}`)
	sub := subs.Get("ch")
	assert.Equal(t, sub.Ready, true)

	sub.Handler(json.RawMessage(`{}`))
	assert.Equal(t, first, 0)
	assert.Equal(t, second, 1)
}

func TestUnsubscribeRemovesAndNotifiesServer(t *testing.T) {
	subs, socket := newTestSubscriptions(t)

	subs.Subscribe("ch", func(json.RawMessage) {})
	subs.Unsubscribe("ch")

	assert.Equal(t, subs.Get("ch"), (*Subscription)(nil))
	assert.Equal(t, socket.last().Method, MethodUnsubscribe)
	assert.Equal(t, socket.last().Params["eventChannel"], "ch")
}

func TestBroadcastSkipsEmptyChannel(t *testing.T) {
	subs, socket := newTestSubscriptions(t)

	before := len(socket.sent)
	subs.Broadcast("", map[string]any{"x": 1})
	assert.Equal(t, len(socket.sent), before)

	subs.Broadcast("ch", map[string]any{"x": 1})
	assert.Equal(t, socket.last().Method, MethodBroadcast)
}

func TestClearEmptiesTableSilently(t *testing.T) {
	subs, socket := newTestSubscriptions(t)

	subs.Subscribe("a", func(json.RawMessage) {})
	subs.Subscribe("b", func(json.RawMessage) {})
	before := len(socket.sent)

	subs.Clear()
	assert.Equal(t, subs.Get("a"), (*Subscription)(nil))
	assert.Equal(t, subs.Get("b"), (*Subscription)(nil))
	assert.Equal(t, len(socket.sent), before)
}
