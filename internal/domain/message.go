package domain

// ChatMethod identifies a conference command carried inside a chat-channel
// broadcast envelope.
type ChatMethod string

const (
	ChatToEveryone             ChatMethod = "toEveryone"
	ChatOneToOne               ChatMethod = "oneToOne"
	ChatAskToUnmuteMic         ChatMethod = "askToUnmuteMic"
	ChatAskToStartCam          ChatMethod = "askToStartCam"
	ChatSwitchHost             ChatMethod = "switchHost"
	ChatSwitchHostStream       ChatMethod = "switchHostStream"
	ChatSwitchHostCamera       ChatMethod = "switchHostCamera"
	ChatChangeParticipantState ChatMethod = "changeParticipantState"
	ChatStreamChange           ChatMethod = "streamChange"
	ChatMakeCoHost             ChatMethod = "makeCoHost"
	ChatRemoveCoHost           ChatMethod = "removeCoHost"
	ChatRemoveParticipant      ChatMethod = "removeParticipant"
	ChatBlockParticipant       ChatMethod = "blockParticipant"
	ChatHostLeft               ChatMethod = "hostLeft"
	ChatStopMediaShare         ChatMethod = "stopMediaShare"
	ChatStopAllMediaShare      ChatMethod = "stopAllMediaShare"
	ChatYouAreHost             ChatMethod = "youAreHost"
	ChatToggleMyMic            ChatMethod = "toggleMyMic"
)

// ToEveryone is the sentinel recipient meaning every conference member.
const ToEveryone = "everyone"

// CommandEnvelope is the JSON payload broadcast on a conference chat channel.
// To may name one call id, a comma-separated list, or the ToEveryone
// sentinel.
type CommandEnvelope struct {
	Method      ChatMethod `json:"method"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Message     string     `json:"message,omitempty"`
	FromDisplay string     `json:"fromDisplay,omitempty"`
}

// ChatMessage is a received chat message addressed to the local user.
type ChatMessage struct {
	ToID     string
	FromName string
	Message  string
	Me       bool
}

// SwitchHost carries the credentials needed to take over as the stream host.
type SwitchHost struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StreamChange announces a new stream source to everyone else.
type StreamChange struct {
	StreamURL  string `json:"streamUrl"`
	StreamName string `json:"streamName"`
}

// CoHostGrant carries a moderator token to the call ids being promoted.
type CoHostGrant struct {
	Token   string `json:"token"`
	CallIDs []string
}

// CoHostRevoke names the call ids being demoted; Me is set when the local
// call is the addressed target.
type CoHostRevoke struct {
	CoHostCallIDs []string `json:"coHostCallIds"`
	Me            bool
}

// ParticipantStateChange toggles the active flag of one participant.
type ParticipantStateChange struct {
	ParticipantID string `json:"participantId"`
	IsActive      bool   `json:"isActive"`
}
