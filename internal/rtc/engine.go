package rtc

import "github.com/pion/webrtc/v4"

// Description type of the locally generated SDP.
const (
	TypeOffer  = "offer"
	TypeAnswer = "answer"
)

// Description is a locally generated session description ready to be sent.
type Description struct {
	Type string
	SDP  string
}

// Callbacks are the completion hooks an Engine reports through. All are
// optional.
type Callbacks struct {
	// OnLocalDescription fires once per negotiation, after trailing ICE
	// candidates have been debounced into the description.
	OnLocalDescription func(desc Description)
	// OnNegotiationError fires when media setup fails.
	OnNegotiationError func(err error)
	// OnRemoteTrack fires for each remote track received.
	OnRemoteTrack func(track *webrtc.TrackRemote)
	// OnStateChange fires on peer connection state changes.
	OnStateChange func()
}

// Engine is the media negotiation collaborator of a call leg. The call
// machine drives it and never touches media directly.
type Engine interface {
	// Start begins negotiation; the resulting description arrives via
	// OnLocalDescription.
	Start() error
	// Type reports whether the pending local description is an offer or an
	// answer.
	Type() string
	// Answer applies the remote description and completes negotiation.
	// Exactly one of the callbacks is invoked before Answer returns.
	Answer(sdp string, onSuccess func(), onError func(error))
	// Stop releases all media resources.
	Stop()
	// ReplaceTracks swaps the outgoing tracks by kind.
	ReplaceTracks(tracks []webrtc.TrackLocal) error
}
