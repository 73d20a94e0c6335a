package session

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
)

// broadcastChat sends a command envelope when both the primary call and the
// conference exist; otherwise the command is silently not applicable.
func (s *Session) broadcastChat(env domain.CommandEnvelope) {
	conf := s.conference()
	if s.primaryLeg() == nil || conf == nil {
		return
	}
	conf.manager.BroadcastChat(env)
}

// SendMessageToEveryone broadcasts a chat message to the whole conference.
func (s *Session) SendMessageToEveryone(message string) {
	s.broadcastChat(domain.CommandEnvelope{
		Method:      domain.ChatToEveryone,
		From:        s.caller,
		To:          domain.ToEveryone,
		Message:     message,
		FromDisplay: s.caller,
	})
}

// SendMessageOneToOne sends a private chat message to one call id.
func (s *Session) SendMessageOneToOne(message, to string) {
	s.broadcastChat(domain.CommandEnvelope{
		Method:      domain.ChatOneToOne,
		From:        s.primaryID,
		To:          to,
		Message:     message,
		FromDisplay: s.caller,
	})
}

// SendMessageMyMicToggled tells everyone about the local mic state.
func (s *Session) SendMessageMyMicToggled(muted bool) {
	message := "false"
	if muted {
		message = "true"
	}
	s.broadcastChat(domain.CommandEnvelope{
		Method:  domain.ChatToggleMyMic,
		From:    s.primaryID,
		To:      domain.ToEveryone,
		Message: message,
	})
}

// SendMessageSwitchHostStream hands the host stream over to another member,
// also emitting the legacy switchHost method for older clients.
func (s *Session) SendMessageSwitchHostStream(to, username, password string) {
	credentials, err := json.Marshal(domain.SwitchHost{Username: username, Password: password})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("marshal switch host")
		return
	}
	for _, method := range []domain.ChatMethod{domain.ChatSwitchHostStream, domain.ChatSwitchHost} {
		s.broadcastChat(domain.CommandEnvelope{
			Method:  method,
			From:    s.primaryID,
			To:      to,
			Message: string(credentials),
		})
	}
}

func (s *Session) SendMessageSwitchHostCamera(to string) {
	s.broadcastChat(domain.CommandEnvelope{
		Method: domain.ChatSwitchHostCamera,
		From:   s.primaryID,
		To:     to,
	})
}

func (s *Session) SendMessageStreamChange(streamURL, streamName string) {
	change, err := json.Marshal(domain.StreamChange{StreamURL: streamURL, StreamName: streamName})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("marshal stream change")
		return
	}
	s.broadcastChat(domain.CommandEnvelope{
		Method:  domain.ChatStreamChange,
		From:    s.primaryID,
		To:      domain.ToEveryone,
		Message: string(change),
	})
}

// SendMessageMakeCoHost shares the moderator token with the addressed call
// ids. A no-op without a granted token.
func (s *Session) SendMessageMakeCoHost(to string) {
	s.mu.Lock()
	token := s.modToken
	s.mu.Unlock()
	if token == "" {
		return
	}

	grant, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("marshal co-host grant")
		return
	}
	s.broadcastChat(domain.CommandEnvelope{
		Method:  domain.ChatMakeCoHost,
		From:    s.primaryID,
		To:      to,
		Message: string(grant),
	})
}

func (s *Session) SendMessageRemoveCoHost(to string, coHostCallIDs []string) {
	revoke, err := json.Marshal(domain.CoHostRevoke{CoHostCallIDs: coHostCallIDs})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("marshal co-host revoke")
		return
	}
	s.broadcastChat(domain.CommandEnvelope{
		Method:  domain.ChatRemoveCoHost,
		From:    s.primaryID,
		To:      to,
		Message: string(revoke),
	})
}

func (s *Session) SendMessageYouHaveBeenRemoved(to string) {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatRemoveParticipant, From: s.primaryID, To: to})
}

func (s *Session) SendMessageYouHaveBeenBlocked(to string) {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatBlockParticipant, From: s.primaryID, To: to})
}

func (s *Session) SendMessageStopMediaShare(to string) {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatStopMediaShare, From: s.primaryID, To: to})
}

func (s *Session) SendMessageStopAllMediaShare() {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatStopAllMediaShare, From: s.primaryID, To: domain.ToEveryone})
}

func (s *Session) SendMessageHostLeft() {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatHostLeft, From: s.primaryID, To: domain.ToEveryone})
}

func (s *Session) SendMessageYouAreHost(callID string) {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatYouAreHost, From: s.primaryID, To: callID})
}

// AskToUnmuteParticipantMic asks one member to unmute, via chat.
func (s *Session) AskToUnmuteParticipantMic(to string) {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatAskToUnmuteMic, From: s.primaryID, To: to})
}

func (s *Session) AskToStartParticipantCam(to string) {
	s.broadcastChat(domain.CommandEnvelope{Method: domain.ChatAskToStartCam, From: s.primaryID, To: to})
}

// ToggleParticipantMic force-toggles a member's mic; moderator only.
func (s *Session) ToggleParticipantMic(participantID string) {
	if conf := s.conference(); conf != nil {
		conf.manager.Moderate(participantID).ToggleMicrophone()
	}
}

func (s *Session) StopParticipantCam(participantID string) {
	if conf := s.conference(); conf != nil {
		conf.manager.Moderate(participantID).ToggleCamera()
	}
}

func (s *Session) RemoveParticipant(participantID string) {
	if conf := s.conference(); conf != nil {
		conf.manager.Moderate(participantID).Kick()
	}
}

func (s *Session) IncreaseVolume(participantID string) {
	if conf := s.conference(); conf != nil {
		conf.manager.Moderate(participantID).IncreaseVolumeInput()
	}
}

func (s *Session) DecreaseVolume(participantID string) {
	if conf := s.conference(); conf != nil {
		conf.manager.Moderate(participantID).DecreaseVolumeInput()
	}
}

// GiveParticipantFloor moderates a member onto the video floor.
func (s *Session) GiveParticipantFloor(participantID string) {
	if conf := s.conference(); conf != nil {
		conf.manager.Moderate(participantID).GrantVideoFloor()
	}
}

// ChangeLayout switches the conference canvas layout; with an empty layout
// the REST-served default is used (fetched once, then cached).
func (s *Session) ChangeLayout(layout domain.Layout) {
	conf := s.conference()
	if conf == nil {
		return
	}

	if layout != "" {
		conf.manager.ChangeVideoLayout(layout, "")
		return
	}

	s.mu.Lock()
	cached := s.defaultLayout
	s.mu.Unlock()

	if cached == "" {
		room, err := s.rest.DefaultLayout()
		if err != nil {
			log.Error().Err(err).Str("module", "session").Msg("fetch default layout")
			return
		}
		cached = room.Layout
		s.mu.Lock()
		s.defaultLayout = cached
		s.mu.Unlock()
	}

	conf.manager.ChangeVideoLayout(cached, "")
}

// SetModeratorToken grants moderator rights received out of band.
func (s *Session) SetModeratorToken(token string) {
	s.mu.Lock()
	s.modToken = token
	conf := s.conf
	s.mu.Unlock()
	if conf != nil {
		conf.manager.SetModeratorChannel(token)
	}
}

func (s *Session) RemoveModeratorToken() {
	s.mu.Lock()
	s.modToken = ""
	conf := s.conf
	s.mu.Unlock()
	if conf != nil {
		conf.manager.RemoveModeratorChannel()
	}
}

// TogglePrimaryMic sends the in-band DTMF mute toggle.
func (s *Session) TogglePrimaryMic() {
	if leg := s.primaryLeg(); leg != nil {
		leg.SendTouchTone("0")
	}
}

func (s *Session) TogglePrimaryCam() {
	if leg := s.primaryLeg(); leg != nil {
		leg.SendTouchTone("*0")
	}
}

func (s *Session) ToggleSecondaryMic() {
	if leg := s.secondaryLeg(); leg != nil {
		leg.SendTouchTone("0")
	}
}

func (s *Session) ToggleSecondaryCam() {
	if leg := s.secondaryLeg(); leg != nil {
		leg.SendTouchTone("*0")
	}
}
