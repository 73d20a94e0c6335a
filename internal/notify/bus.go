package notify

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/mgcomm/verto/internal/domain"
)

// Bus is the registry of every event the engine can surface. Each field is
// an independent signal with its own subscriber list; components publish to
// the bus and never call each other directly.
type Bus struct {
	BootstrappedParticipants *Signal[[]domain.Participant]
	AddedParticipant         *Signal[domain.Participant]
	ModifiedParticipant      *Signal[domain.Participant]
	RemovedParticipant       *Signal[domain.Participant]

	ChatMessageToAll       *Signal[domain.ChatMessage]
	ChatMessageOneToOne    *Signal[domain.ChatMessage]
	SwitchHost             *Signal[domain.SwitchHost]
	SwitchHostStream       *Signal[domain.SwitchHost]
	SwitchHostCamera       *Signal[struct{}]
	ChangeParticipantState *Signal[domain.ParticipantStateChange]
	StreamChange           *Signal[domain.StreamChange]
	MakeCoHost             *Signal[domain.CoHostGrant]
	RemoveCoHost           *Signal[domain.CoHostRevoke]
	YouHaveBeenRemoved     *Signal[struct{}]
	YouHaveBeenBlocked     *Signal[struct{}]
	YouAreHost             *Signal[struct{}]
	HostLeft               *Signal[struct{}]
	StopMediaShare         *Signal[struct{}]
	StopAllMediaShare      *Signal[struct{}]
	AskToUnmuteMic         *Signal[struct{}]
	AskToStartCam          *Signal[struct{}]

	CallStateChange *Signal[domain.StateChange]
	UserHangup      *Signal[struct{}]
	HangupError     *Signal[domain.HangupError]
	StartingHangup  *Signal[struct{}]
	Destroy         *Signal[struct{}]
	EarlyCallError  *Signal[struct{}]
	Display         *Signal[domain.Display]

	PrimaryCallDestroy        *Signal[struct{}]
	SecondaryCallDestroy      *Signal[struct{}]
	PrimaryCallStateChange    *Signal[struct{}]
	SecondaryCallStateChange  *Signal[struct{}]
	PrimaryCallRemoteTrack    *Signal[*webrtc.TrackRemote]
	SecondaryCallRemoteTrack  *Signal[*webrtc.TrackRemote]
	PeerStreamingError        *Signal[error]

	Info         *Signal[json.RawMessage]
	Moderation   *Signal[json.RawMessage]
	Event        *Signal[json.RawMessage]
	PrivateEvent *Signal[json.RawMessage]
	LayoutChange *Signal[domain.Layout]

	LoggedIn     *Signal[struct{}]
	Relogged     *Signal[struct{}]
	LoginError   *Signal[struct{}]
	Reconnecting *Signal[struct{}]
}

func NewBus() *Bus {
	return &Bus{
		BootstrappedParticipants: NewSignal[[]domain.Participant](),
		AddedParticipant:         NewSignal[domain.Participant](),
		ModifiedParticipant:      NewSignal[domain.Participant](),
		RemovedParticipant:       NewSignal[domain.Participant](),

		ChatMessageToAll:       NewSignal[domain.ChatMessage](),
		ChatMessageOneToOne:    NewSignal[domain.ChatMessage](),
		SwitchHost:             NewSignal[domain.SwitchHost](),
		SwitchHostStream:       NewSignal[domain.SwitchHost](),
		SwitchHostCamera:       NewSignal[struct{}](),
		ChangeParticipantState: NewSignal[domain.ParticipantStateChange](),
		StreamChange:           NewSignal[domain.StreamChange](),
		MakeCoHost:             NewSignal[domain.CoHostGrant](),
		RemoveCoHost:           NewSignal[domain.CoHostRevoke](),
		YouHaveBeenRemoved:     NewSignal[struct{}](),
		YouHaveBeenBlocked:     NewSignal[struct{}](),
		YouAreHost:             NewSignal[struct{}](),
		HostLeft:               NewSignal[struct{}](),
		StopMediaShare:         NewSignal[struct{}](),
		StopAllMediaShare:      NewSignal[struct{}](),
		AskToUnmuteMic:         NewSignal[struct{}](),
		AskToStartCam:          NewSignal[struct{}](),

		CallStateChange: NewSignal[domain.StateChange](),
		UserHangup:      NewSignal[struct{}](),
		HangupError:     NewSignal[domain.HangupError](),
		StartingHangup:  NewSignal[struct{}](),
		Destroy:         NewSignal[struct{}](),
		EarlyCallError:  NewSignal[struct{}](),
		Display:         NewSignal[domain.Display](),

		PrimaryCallDestroy:       NewSignal[struct{}](),
		SecondaryCallDestroy:     NewSignal[struct{}](),
		PrimaryCallStateChange:   NewSignal[struct{}](),
		SecondaryCallStateChange: NewSignal[struct{}](),
		PrimaryCallRemoteTrack:   NewSignal[*webrtc.TrackRemote](),
		SecondaryCallRemoteTrack: NewSignal[*webrtc.TrackRemote](),
		PeerStreamingError:       NewSignal[error](),

		Info:         NewSignal[json.RawMessage](),
		Moderation:   NewSignal[json.RawMessage](),
		Event:        NewSignal[json.RawMessage](),
		PrivateEvent: NewSignal[json.RawMessage](),
		LayoutChange: NewSignal[domain.Layout](),

		LoggedIn:     NewSignal[struct{}](),
		Relogged:     NewSignal[struct{}](),
		LoginError:   NewSignal[struct{}](),
		Reconnecting: NewSignal[struct{}](),
	}
}

type resettable interface {
	UnsubscribeAll()
}

// RemoveAllSubscribers drops every subscriber on every signal. Used on
// session teardown.
func (b *Bus) RemoveAllSubscribers() {
	all := []resettable{
		b.BootstrappedParticipants, b.AddedParticipant, b.ModifiedParticipant,
		b.RemovedParticipant, b.ChatMessageToAll, b.ChatMessageOneToOne,
		b.SwitchHost, b.SwitchHostStream, b.SwitchHostCamera,
		b.ChangeParticipantState, b.StreamChange, b.MakeCoHost, b.RemoveCoHost,
		b.YouHaveBeenRemoved, b.YouHaveBeenBlocked, b.YouAreHost, b.HostLeft,
		b.StopMediaShare, b.StopAllMediaShare, b.AskToUnmuteMic,
		b.AskToStartCam, b.CallStateChange, b.UserHangup, b.HangupError,
		b.StartingHangup, b.Destroy, b.EarlyCallError, b.Display,
		b.PrimaryCallDestroy, b.SecondaryCallDestroy, b.PrimaryCallStateChange,
		b.SecondaryCallStateChange, b.PrimaryCallRemoteTrack,
		b.SecondaryCallRemoteTrack, b.PeerStreamingError, b.Info, b.Moderation,
		b.Event, b.PrivateEvent, b.LayoutChange, b.LoggedIn, b.Relogged,
		b.LoginError, b.Reconnecting,
	}
	for _, sig := range all {
		sig.UnsubscribeAll()
	}
}
