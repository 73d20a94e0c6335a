package conference

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
)

// Wire shape of a live array value: a positional array where index 0 is the
// participant id, 2 the user string, 4 a JSON-encoded media state string and
// 5 an object of stringified flags.
const (
	fieldParticipantID = 0
	fieldUser          = 2
	fieldMediaState    = 4
	fieldFlags         = 5
)

type mediaState struct {
	Audio struct {
		Muted   bool `json:"muted"`
		Talking bool `json:"talking"`
	} `json:"audio"`
	Video struct {
		Muted     bool   `json:"muted"`
		Floor     bool   `json:"floor"`
		MediaFlow string `json:"mediaFlow"`
	} `json:"video"`
}

type memberFlags struct {
	ShowMe            string `json:"showMe"`
	IsHost            string `json:"isHost"`
	IsHostSharedVideo string `json:"isHostSharedVideo"`
	IsMobileApp       string `json:"isMobileApp"`
	IsPrimaryCall     string `json:"isPrimaryCall"`
	ChannelName       string `json:"channelName"`
	DisplayName       string `json:"displayName"`
	UserID            string `json:"userId"`
}

// parseParticipant projects one raw live array value into a Participant.
// Called with la.mu held.
func (la *LiveArray) parseParticipant(callID string, value json.RawMessage) domain.Participant {
	p := domain.Participant{
		CallID: callID,
		Me:     callID == la.callID || (la.secondaryCallID != "" && callID == la.secondaryCallID),
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		log.Error().Err(err).Str("module", "conference").Str("call_id", callID).Msg("invalid live array value")
		return p
	}

	if len(fields) > fieldParticipantID {
		p.ParticipantID = decodeKey(fields[fieldParticipantID])
	}
	if len(fields) > fieldUser {
		p.User = decodeKey(fields[fieldUser])
	}

	if len(fields) > fieldMediaState {
		var encoded string
		var media mediaState
		if err := json.Unmarshal(fields[fieldMediaState], &encoded); err == nil {
			if err := json.Unmarshal([]byte(encoded), &media); err != nil {
				log.Error().Err(err).Str("module", "conference").Str("call_id", callID).Msg("invalid media state")
			}
		}
		p.Audio = domain.ParticipantAudio{Muted: media.Audio.Muted, Talking: media.Audio.Talking}
		// Video mute is only trusted for two-way media; one-way members are
		// always reported muted.
		p.Video = domain.ParticipantVideo{Muted: true, Floor: media.Video.Floor}
		if media.Video.MediaFlow == "sendRecv" {
			p.Video.Muted = media.Video.Muted
		}
	}

	if len(fields) > fieldFlags {
		var flags memberFlags
		if err := json.Unmarshal(fields[fieldFlags], &flags); err != nil {
			log.Error().Err(err).Str("module", "conference").Str("call_id", callID).Msg("invalid member flags")
		}
		p.ShowMe = flags.ShowMe == "true"
		p.IsHost = flags.IsHost == "true"
		p.IsHostSharedVideo = flags.IsHostSharedVideo == "true"
		p.IsMobileApp = flags.IsMobileApp == "true"
		p.IsPrimaryCall = flags.IsPrimaryCall == "true"
		p.ChannelName = flags.ChannelName
		p.DisplayName = flags.DisplayName
		p.UserID = flags.UserID
	}

	return p
}
