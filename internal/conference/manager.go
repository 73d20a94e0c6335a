package conference

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/notify"
	"github.com/mgcomm/verto/internal/verto"
)

// Channels carries the per-conference channel names supplied by the
// liveArray-join event. Mod is empty until a moderator token is granted.
type Channels struct {
	Chat string
	Info string
	Mod  string
}

// Manager routes the conference command protocol: it subscribes the chat,
// info and moderator channels and dispatches received command envelopes by
// method and recipient.
type Manager struct {
	subs   *verto.Subscriptions
	bus    *notify.Bus
	callID string

	mu          sync.Mutex
	chatChannel string
	infoChannel string
	modChannel  string
}

func NewManager(subs *verto.Subscriptions, bus *notify.Bus, channels Channels, callID string) *Manager {
	m := &Manager{
		subs:        subs,
		bus:         bus,
		callID:      callID,
		chatChannel: channels.Chat,
		infoChannel: channels.Info,
		modChannel:  channels.Mod,
	}

	subs.Subscribe(channels.Chat, m.handleChatEvent)
	subs.Subscribe(channels.Info, m.handleInfoEvent)
	if channels.Mod != "" {
		subs.Subscribe(channels.Mod, m.handleModEvent)
	}
	return m
}

// SetModeratorChannel grants moderator rights using a later-received token.
func (m *Manager) SetModeratorChannel(token string) {
	m.mu.Lock()
	m.modChannel = token
	m.mu.Unlock()
	m.subs.Subscribe(token, m.handleModEvent)
}

// RemoveModeratorChannel revokes moderator rights.
func (m *Manager) RemoveModeratorChannel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modChannel = ""
}

// BroadcastChat publishes a command envelope on the conference chat channel.
func (m *Manager) BroadcastChat(env domain.CommandEnvelope) {
	encoded, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("module", "conference").Msg("marshal chat envelope")
		return
	}
	m.subs.Broadcast(m.chatChannel, map[string]any{
		"action":  "send",
		"type":    "message",
		"message": string(encoded),
	})
}

type chatEvent struct {
	Data struct {
		Message     string `json:"message"`
		FromDisplay string `json:"fromDisplay"`
	} `json:"data"`
}

// handleChatEvent decodes the envelope and applies per-method recipient
// filtering before publishing. Malformed payloads are logged and dropped.
func (m *Manager) handleChatEvent(params json.RawMessage) {
	var event chatEvent
	if err := json.Unmarshal(params, &event); err != nil {
		log.Error().Err(err).Str("module", "conference").Msg("invalid chat event")
		return
	}

	var env domain.CommandEnvelope
	if err := json.Unmarshal([]byte(event.Data.Message), &env); err != nil {
		log.Error().Err(err).Str("module", "conference").Msg("invalid chat envelope")
		return
	}

	fromDisplay := env.FromDisplay
	if fromDisplay == "" {
		fromDisplay = event.Data.FromDisplay
	}

	switch env.Method {
	case domain.ChatToEveryone:
		if env.Message != "" {
			m.bus.ChatMessageToAll.Notify(domain.ChatMessage{
				ToID:     env.To,
				FromName: fromDisplay,
				Message:  env.Message,
				Me:       m.callID == env.From,
			})
		}

	case domain.ChatOneToOne:
		if env.Message == "" || (m.callID != env.From && m.callID != env.To) {
			return
		}
		// Address the notification to the other side of the exchange.
		sendTo := env.From
		if m.callID == env.From {
			sendTo = env.To
		}
		m.bus.ChatMessageOneToOne.Notify(domain.ChatMessage{
			ToID:     sendTo,
			FromName: fromDisplay,
			Message:  env.Message,
			Me:       m.callID == env.From,
		})

	case domain.ChatAskToUnmuteMic:
		if m.callID == env.To {
			m.bus.AskToUnmuteMic.Notify(struct{}{})
		}

	case domain.ChatAskToStartCam:
		if m.callID == env.To {
			m.bus.AskToStartCam.Notify(struct{}{})
		}

	case domain.ChatSwitchHost, domain.ChatSwitchHostStream:
		if m.callID != env.To {
			return
		}
		var sh domain.SwitchHost
		if env.Message == "" {
			log.Error().Str("module", "conference").Msg("switch host without credentials")
		} else if err := json.Unmarshal([]byte(env.Message), &sh); err != nil {
			log.Error().Err(err).Str("module", "conference").Msg("cannot parse switch host message")
			return
		}
		m.bus.SwitchHost.Notify(sh)
		m.bus.SwitchHostStream.Notify(sh)

	case domain.ChatSwitchHostCamera:
		if m.callID == env.To {
			m.bus.SwitchHostCamera.Notify(struct{}{})
		}

	case domain.ChatChangeParticipantState:
		if env.Message == "" {
			return
		}
		var change domain.ParticipantStateChange
		if err := json.Unmarshal([]byte(env.Message), &change); err != nil {
			log.Error().Err(err).Str("module", "conference").Msg("cannot parse participant state message")
			return
		}
		m.bus.ChangeParticipantState.Notify(change)

	case domain.ChatStreamChange:
		// Senders do not re-apply their own broadcast.
		if m.callID == env.From || env.Message == "" {
			return
		}
		var change domain.StreamChange
		if err := json.Unmarshal([]byte(env.Message), &change); err != nil {
			log.Error().Err(err).Str("module", "conference").Msg("cannot parse stream change message")
			return
		}
		m.bus.StreamChange.Notify(change)

	case domain.ChatMakeCoHost:
		callIDs := strings.Split(env.To, ",")
		if !contains(callIDs, m.callID) || env.Message == "" {
			return
		}
		var grant domain.CoHostGrant
		if err := json.Unmarshal([]byte(env.Message), &grant); err != nil {
			log.Error().Err(err).Str("module", "conference").Msg("cannot parse co-host grant")
			return
		}
		grant.CallIDs = callIDs
		m.bus.MakeCoHost.Notify(grant)

	case domain.ChatRemoveCoHost:
		if env.Message == "" {
			return
		}
		var revoke domain.CoHostRevoke
		if err := json.Unmarshal([]byte(env.Message), &revoke); err != nil {
			log.Error().Err(err).Str("module", "conference").Msg("cannot parse co-host revoke")
			return
		}
		revoke.Me = m.callID == env.To
		if revoke.Me || contains(revoke.CoHostCallIDs, m.callID) {
			m.bus.RemoveCoHost.Notify(revoke)
		}

	case domain.ChatRemoveParticipant:
		if m.callID == env.To {
			m.bus.YouHaveBeenRemoved.Notify(struct{}{})
		}

	case domain.ChatBlockParticipant:
		if m.callID == env.To {
			m.bus.YouHaveBeenBlocked.Notify(struct{}{})
		}

	case domain.ChatHostLeft:
		m.bus.HostLeft.Notify(struct{}{})

	case domain.ChatStopMediaShare:
		if m.callID != env.To {
			m.bus.StopMediaShare.Notify(struct{}{})
		}

	case domain.ChatStopAllMediaShare:
		if m.callID != env.From {
			m.bus.StopAllMediaShare.Notify(struct{}{})
		}

	case domain.ChatYouAreHost:
		if m.callID == env.To {
			m.bus.YouAreHost.Notify(struct{}{})
		}
	}
}

func (m *Manager) handleInfoEvent(params json.RawMessage) {
	m.bus.Info.Notify(params)
}

func (m *Manager) handleModEvent(params json.RawMessage) {
	m.bus.Moderation.Notify(params)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
