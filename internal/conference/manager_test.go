package conference

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/notify"
)

func newTestManager(t *testing.T) (*Manager, *fakeSocket, *notify.Bus) {
	t.Helper()
	subs, socket, bus := newTestWiring(t)
	m := NewManager(subs, bus, Channels{Chat: "chat-chan", Info: "info-chan"}, "my-call")
	return m, socket, bus
}

// chatEventJSON wraps a command envelope the way the chat channel delivers it.
func chatEventJSON(t *testing.T, env domain.CommandEnvelope) json.RawMessage {
	t.Helper()
	encoded, err := json.Marshal(env)
	assert.Equal(t, err, nil)
	wrapped, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"message":     string(encoded),
			"fromDisplay": "Wire Display",
		},
	})
	assert.Equal(t, err, nil)
	return wrapped
}

func TestManagerSubscribesChannels(t *testing.T) {
	subs, socket, bus := newTestWiring(t)
	NewManager(subs, bus, Channels{Chat: "chat-chan", Info: "info-chan", Mod: "mod-chan"}, "my-call")

	channels := make([]string, 0, len(socket.sent))
	for _, req := range socket.sent {
		if ch, ok := req.Params["eventChannel"].(string); ok {
			channels = append(channels, ch)
		}
	}
	assert.Equal(t, channels, []string{"chat-chan", "info-chan", "mod-chan"})
}

func TestBroadcastChatWrapsEnvelope(t *testing.T) {
	m, socket, _ := newTestManager(t)

	m.BroadcastChat(domain.CommandEnvelope{
		Method:  domain.ChatToEveryone,
		From:    "my-call",
		To:      domain.ToEveryone,
		Message: "hello",
	})

	last := socket.sent[len(socket.sent)-1]
	assert.Equal(t, last.Params["eventChannel"], "chat-chan")
	data := last.Params["data"].(map[string]any)
	assert.Equal(t, data["action"], "send")
	assert.Equal(t, data["type"], "message")

	var env domain.CommandEnvelope
	assert.Equal(t, json.Unmarshal([]byte(data["message"].(string)), &env), nil)
	assert.Equal(t, env.Method, domain.ChatToEveryone)
	assert.Equal(t, env.Message, "hello")
}

func TestChatToEveryone(t *testing.T) {
	m, _, bus := newTestManager(t)

	var got []domain.ChatMessage
	bus.ChatMessageToAll.Subscribe(func(msg domain.ChatMessage) { got = append(got, msg) })

	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatToEveryone, From: "my-call", To: domain.ToEveryone,
		Message: "hi all", FromDisplay: "Alice",
	}))
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatToEveryone, From: "call-b", To: domain.ToEveryone,
		Message: "hey", FromDisplay: "Bob",
	}))
	// Empty messages are dropped.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatToEveryone, From: "call-b", To: domain.ToEveryone,
	}))

	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].Me, true)
	assert.Equal(t, got[0].FromName, "Alice")
	assert.Equal(t, got[1].Me, false)
}

func TestChatOneToOneRecipient(t *testing.T) {
	m, _, bus := newTestManager(t)

	var got []domain.ChatMessage
	bus.ChatMessageOneToOne.Subscribe(func(msg domain.ChatMessage) { got = append(got, msg) })

	// Addressed to the local call: the notification names the sender.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatOneToOne, From: "call-x", To: "my-call", Message: "psst",
	}))
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].ToID, "call-x")
	assert.Equal(t, got[0].Me, false)

	// Sent by the local call: the notification names the recipient.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatOneToOne, From: "my-call", To: "call-y", Message: "hi",
	}))
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[1].ToID, "call-y")
	assert.Equal(t, got[1].Me, true)

	// A conversation between two other members is not ours.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatOneToOne, From: "call-x", To: "call-y", Message: "secret",
	}))
	assert.Equal(t, len(got), 2)
}

func TestChatDirectedSignals(t *testing.T) {
	m, _, bus := newTestManager(t)

	var unmute, startCam, removed, blocked, youAreHost int
	bus.AskToUnmuteMic.Subscribe(func(struct{}) { unmute++ })
	bus.AskToStartCam.Subscribe(func(struct{}) { startCam++ })
	bus.YouHaveBeenRemoved.Subscribe(func(struct{}) { removed++ })
	bus.YouHaveBeenBlocked.Subscribe(func(struct{}) { blocked++ })
	bus.YouAreHost.Subscribe(func(struct{}) { youAreHost++ })

	directed := []domain.ChatMethod{
		domain.ChatAskToUnmuteMic, domain.ChatAskToStartCam,
		domain.ChatRemoveParticipant, domain.ChatBlockParticipant,
		domain.ChatYouAreHost,
	}
	for _, method := range directed {
		m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{Method: method, From: "host", To: "my-call"}))
		m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{Method: method, From: "host", To: "call-b"}))
	}

	assert.Equal(t, unmute, 1)
	assert.Equal(t, startCam, 1)
	assert.Equal(t, removed, 1)
	assert.Equal(t, blocked, 1)
	assert.Equal(t, youAreHost, 1)
}

func TestChatSwitchHostStream(t *testing.T) {
	m, _, bus := newTestManager(t)

	var hosts []domain.SwitchHost
	var streams []domain.SwitchHost
	bus.SwitchHost.Subscribe(func(sh domain.SwitchHost) { hosts = append(hosts, sh) })
	bus.SwitchHostStream.Subscribe(func(sh domain.SwitchHost) { streams = append(streams, sh) })

	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatSwitchHostStream, From: "host", To: "my-call",
		Message: `{"username":"rtmp-user","password":"rtmp-pass"}`,
	}))

	assert.Equal(t, hosts, []domain.SwitchHost{{Username: "rtmp-user", Password: "rtmp-pass"}})
	assert.Equal(t, streams, hosts)

	// Addressed to somebody else: ignored.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatSwitchHostStream, From: "host", To: "call-b",
		Message: `{"username":"x","password":"y"}`,
	}))
	assert.Equal(t, len(hosts), 1)
}

func TestChatStreamChangeSkipsSender(t *testing.T) {
	m, _, bus := newTestManager(t)

	var changes []domain.StreamChange
	bus.StreamChange.Subscribe(func(sc domain.StreamChange) { changes = append(changes, sc) })

	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatStreamChange, From: "my-call", To: domain.ToEveryone,
		Message: `{"streamUrl":"rtmp://a","streamName":"main"}`,
	}))
	assert.Equal(t, len(changes), 0)

	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatStreamChange, From: "call-b", To: domain.ToEveryone,
		Message: `{"streamUrl":"rtmp://b","streamName":"backup"}`,
	}))
	assert.Equal(t, changes, []domain.StreamChange{{StreamURL: "rtmp://b", StreamName: "backup"}})
}

func TestChatMakeCoHostList(t *testing.T) {
	m, _, bus := newTestManager(t)

	var grants []domain.CoHostGrant
	bus.MakeCoHost.Subscribe(func(g domain.CoHostGrant) { grants = append(grants, g) })

	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatMakeCoHost, From: "host", To: "call-a,my-call,call-b",
		Message: `{"token":"mod-token"}`,
	}))
	assert.Equal(t, len(grants), 1)
	assert.Equal(t, grants[0].Token, "mod-token")
	assert.Equal(t, grants[0].CallIDs, []string{"call-a", "my-call", "call-b"})

	// Not in the list: ignored.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatMakeCoHost, From: "host", To: "call-a,call-b",
		Message: `{"token":"mod-token"}`,
	}))
	assert.Equal(t, len(grants), 1)
}

func TestChatRemoveCoHost(t *testing.T) {
	m, _, bus := newTestManager(t)

	var revokes []domain.CoHostRevoke
	bus.RemoveCoHost.Subscribe(func(r domain.CoHostRevoke) { revokes = append(revokes, r) })

	// Addressed directly.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatRemoveCoHost, From: "host", To: "my-call",
		Message: `{"coHostCallIds":["call-a"]}`,
	}))
	assert.Equal(t, len(revokes), 1)
	assert.Equal(t, revokes[0].Me, true)

	// Named in the revoked list.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatRemoveCoHost, From: "host", To: "call-a",
		Message: `{"coHostCallIds":["my-call","call-b"]}`,
	}))
	assert.Equal(t, len(revokes), 2)
	assert.Equal(t, revokes[1].Me, false)

	// Unrelated revoke.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatRemoveCoHost, From: "host", To: "call-a",
		Message: `{"coHostCallIds":["call-b"]}`,
	}))
	assert.Equal(t, len(revokes), 2)
}

func TestChatMediaShareFilters(t *testing.T) {
	m, _, bus := newTestManager(t)

	var stop, stopAll, hostLeft int
	bus.StopMediaShare.Subscribe(func(struct{}) { stop++ })
	bus.StopAllMediaShare.Subscribe(func(struct{}) { stopAll++ })
	bus.HostLeft.Subscribe(func(struct{}) { hostLeft++ })

	// stopMediaShare skips the addressed call, everyone else reacts.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatStopMediaShare, From: "host", To: "my-call",
	}))
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatStopMediaShare, From: "host", To: "call-b",
	}))
	assert.Equal(t, stop, 1)

	// stopAllMediaShare skips the sender.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatStopAllMediaShare, From: "my-call", To: domain.ToEveryone,
	}))
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatStopAllMediaShare, From: "call-b", To: domain.ToEveryone,
	}))
	assert.Equal(t, stopAll, 1)

	// hostLeft is unconditional.
	m.handleChatEvent(chatEventJSON(t, domain.CommandEnvelope{
		Method: domain.ChatHostLeft, From: "call-b", To: domain.ToEveryone,
	}))
	assert.Equal(t, hostLeft, 1)
}

func TestChatMalformedEnvelopeDropped(t *testing.T) {
	m, _, bus := newTestManager(t)

	var total int
	bus.ChatMessageToAll.Subscribe(func(domain.ChatMessage) { total++ })

	wrapped, _ := json.Marshal(map[string]any{
		"data": map[string]any{"message": "{not json", "fromDisplay": "X"},
	})
	m.handleChatEvent(wrapped)
	m.handleChatEvent(json.RawMessage(`"not an object"`))

	assert.Equal(t, total, 0)
}

func TestModeratorCommandRequiresChannel(t *testing.T) {
	m, socket, _ := newTestManager(t)

	before := len(socket.sent)
	m.Moderate("17").Kick()
	assert.Equal(t, len(socket.sent), before)

	m.SetModeratorChannel("mod-chan")
	m.Moderate("17").Kick()

	last := socket.sent[len(socket.sent)-1]
	assert.Equal(t, last.Params["eventChannel"], "mod-chan")
	data := last.Params["data"].(map[string]any)
	assert.Equal(t, data["command"], "kick")
	assert.Equal(t, data["application"], "conf-control")
	assert.Equal(t, data["id"], float64(17))
}

func TestModeratorCommandsWire(t *testing.T) {
	m, socket, _ := newTestManager(t)
	m.SetModeratorChannel("mod-chan")

	mod := m.Moderate("23")
	cases := []struct {
		run     func()
		command string
		value   any
	}{
		{mod.ToggleMicrophone, "tmute", nil},
		{mod.ToggleCamera, "tvmute", nil},
		{mod.Deaf, "deaf", nil},
		{mod.Undeaf, "undeaf", nil},
		{mod.GrantVideoFloor, "vid-floor", "force"},
		{mod.MakePresenter, "vid-res-id", "presenter"},
		{func() { mod.SetVideoBanner("Main Speaker") }, "vid-banner", "Main%20Speaker"},
		{func() { mod.SetVideoBanner("reset") }, "vid-banner", "reset\n"},
		{mod.IncreaseVolumeInput, "volume_in", "up"},
		{mod.DecreaseVolumeOutput, "volume_out", "down"},
	}
	for _, tc := range cases {
		tc.run()
		last := socket.sent[len(socket.sent)-1]
		data := last.Params["data"].(map[string]any)
		if data["command"] != tc.command {
			t.Errorf("command = %v, want %v", data["command"], tc.command)
		}
		if tc.value != nil && data["value"] != tc.value {
			t.Errorf("%s value = %v, want %v", tc.command, data["value"], tc.value)
		}
	}
}

func TestRoomCommandWire(t *testing.T) {
	m, socket, _ := newTestManager(t)
	m.SetModeratorChannel("mod-chan")

	m.ChangeVideoLayout(domain.Layout("2x2"), "")
	last := socket.sent[len(socket.sent)-1]
	data := last.Params["data"].(map[string]any)
	assert.Equal(t, data["command"], "vid-layout")
	assert.Equal(t, data["value"], "2x2")

	m.StartRecording("/tmp/conf.mp4")
	last = socket.sent[len(socket.sent)-1]
	data = last.Params["data"].(map[string]any)
	assert.Equal(t, data["command"], "recording")
	assert.Equal(t, fmt.Sprint(data["value"]), "[start /tmp/conf.mp4]")
}
