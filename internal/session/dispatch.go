package session

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/conference"
	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/verto"
)

// messageParams probes the shape of unsolicited message params; the shape
// decides the route (private data, call-addressed or client-addressed).
type messageParams struct {
	EventType     string `json:"eventType"`
	CallID        string `json:"callID"`
	EventChannel  string `json:"eventChannel"`
	SDP           string `json:"sdp"`
	DisplayName   string `json:"display_name"`
	DisplayNumber string `json:"display_number"`
	EventData     *struct {
		CanvasInfo *struct {
			LayoutName string `json:"layoutName"`
		} `json:"canvasInfo"`
	} `json:"eventData"`
	PvtData *pvtData `json:"pvtData"`
}

type pvtData struct {
	Action             string `json:"action"`
	CallID             string `json:"callID"`
	ChatChannel        string `json:"chatChannel"`
	InfoChannel        string `json:"infoChannel"`
	ModChannel         string `json:"modChannel"`
	LiveArrayChannel   string `json:"laChannel"`
	LiveArrayName      string `json:"laName"`
	ConferenceMemberID string `json:"conferenceMemberID"`
	Role               string `json:"role"`
}

// HandleMessage routes every inbound message that did not correlate to a
// pending request id.
func (s *Session) HandleMessage(msg verto.Envelope) {
	if msg.Method == "" {
		log.Error().Str("module", "session").Msg("invalid websocket message")
		return
	}

	var params messageParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			log.Error().Err(err).Str("module", "session").Str("method", msg.Method).Msg("invalid message params")
			return
		}
	}

	switch {
	case params.EventType == "channelPvtData":
		s.handlePrivateData(params)
	case params.CallID != "":
		s.handleCallMessage(msg.Method, params, msg.Params)
	default:
		s.handleClientMessage(msg.Method, params, msg.Params)
	}
}

func (s *Session) handleCallMessage(method string, params messageParams, raw json.RawMessage) {
	leg := s.findCall(params.CallID)
	if leg == nil {
		switch method {
		case verto.MethodAttach, verto.MethodInvite, verto.MethodMedia, verto.MethodAnswer:
			// Inbound dialogs are not placed by this client; nothing to do.
		default:
			log.Warn().Str("module", "session").Str("method", method).Msg("ignoring call event for unknown call")
		}
		return
	}

	switch method {
	case verto.MethodBye:
		leg.Hangup()
	case verto.MethodAnswer:
		leg.HandleAnswer(params.SDP)
	case verto.MethodMedia:
		leg.HandleMedia(params.SDP)
	case verto.MethodDisplay:
		leg.HandleDisplay(params.DisplayName, params.DisplayNumber)
	case verto.MethodInfo:
		leg.HandleInfo(raw)
	default:
		log.Warn().Str("module", "session").Str("method", method).Msg("ignoring existing call event with invalid method")
	}
}

func (s *Session) handleClientMessage(method string, params messageParams, raw json.RawMessage) {
	switch method {
	case verto.MethodPunt:
		s.teardown()

	case verto.MethodEvent:
		s.handleClientEvent(params, raw)

	case verto.MethodInfo:
		s.bus.Info.Notify(raw)

	case verto.MethodClientReady:

	default:
		log.Warn().Str("module", "session").Str("method", method).Msg("ignoring invalid method with no call id")
	}
}

// handleClientEvent gates channel events on subscription readiness and
// falls back to the generic event signal only when something listens.
func (s *Session) handleClientEvent(params messageParams, raw json.RawMessage) {
	if params.EventData != nil && params.EventData.CanvasInfo != nil {
		s.bus.LayoutChange.Notify(domain.Layout(params.EventData.CanvasInfo.LayoutName))
		return
	}

	channel := params.EventChannel
	sub := s.subs.Get(channel)

	switch {
	case sub == nil && (channel == s.sessID || s.findCall(channel) != nil):
		s.bus.PrivateEvent.Notify(raw)
	case sub == nil:
		log.Info().Str("module", "session").Str("channel", channel).Msg("ignoring event for unsubscribed channel")
	case !sub.Ready:
		log.Error().Str("module", "session").Str("channel", channel).Msg("ignoring event for a not ready channel")
	case sub.Handler != nil:
		sub.Handler(raw)
	case s.bus.Event.HasSubscribers():
		s.bus.Event.Notify(raw)
	default:
		log.Warn().Str("module", "session").Str("channel", channel).Msg("ignoring event without callback")
	}
}

// handlePrivateData reacts to conference lifecycle events addressed to the
// primary call.
func (s *Session) handlePrivateData(params messageParams) {
	pvt := params.PvtData
	if pvt == nil {
		log.Warn().Str("module", "session").Msg("channelPvtData without pvtData")
		return
	}

	primary := s.primaryLeg()
	if primary == nil || pvt.CallID != primary.ID() {
		return
	}

	switch pvt.Action {
	case "conference-liveArray-join":
		s.joinConference(pvt)
	case "conference-liveArray-part":
		s.teardown()
	default:
		log.Warn().Str("module", "session").Str("action", pvt.Action).Msg("not implemented private data action")
	}
}

func (s *Session) joinConference(pvt *pvtData) {
	manager := conference.NewManager(s.subs, s.bus, conference.Channels{
		Chat: pvt.ChatChannel,
		Info: pvt.InfoChannel,
		Mod:  pvt.ModChannel,
	}, s.primaryID)

	liveAry := conference.NewLiveArray(s.subs, s.bus, pvt.LiveArrayChannel, pvt.LiveArrayName, pvt.CallID)
	liveAry.SetSecondaryCallID(s.secondaryID)

	s.mu.Lock()
	s.modToken = pvt.ModChannel
	s.conf = &conferenceState{
		memberID: pvt.ConferenceMemberID,
		role:     pvt.Role,
		manager:  manager,
		liveAry:  liveAry,
	}
	s.mu.Unlock()

	log.Info().
		Str("module", "session").
		Str("member_id", pvt.ConferenceMemberID).
		Str("role", pvt.Role).
		Msg("joined conference")
}

// teardown drops all subscriptions and closes the transport for good.
func (s *Session) teardown() {
	s.subs.Clear()
	s.transport.Disconnect()
}
