package rtc

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
)

// Trailing ICE candidates are debounced this long before the local
// description is considered final.
const iceDebounce = time.Second

// PeerConfig configures a client peer connection.
type PeerConfig struct {
	ICEServers    []domain.IceServer
	LocalTracks   []webrtc.TrackLocal
	ReceiveStream bool
}

// Peer is the pion-backed Engine. It negotiates as the offering side.
type Peer struct {
	pc        *webrtc.PeerConnection
	callbacks Callbacks

	mu       sync.Mutex
	iceTimer *time.Timer
	finished bool
}

func NewPeer(cfg PeerConfig, callbacks Callbacks) (*Peer, error) {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Password,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, err
	}

	p := &Peer{pc: pc, callbacks: callbacks}

	for _, track := range cfg.LocalTracks {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, err
		}
	}

	if cfg.ReceiveStream {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				pc.Close()
				return nil, err
			}
		}
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("peer state")
		if p.callbacks.OnStateChange != nil {
			p.callbacks.OnStateChange()
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		if p.callbacks.OnRemoteTrack != nil {
			p.callbacks.OnRemoteTrack(track)
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			p.finishGathering()
			return
		}
		p.rescheduleGatherTimeout()
	})

	return p, nil
}

func (p *Peer) Type() string { return TypeOffer }

// Start creates the local offer and begins ICE gathering; the debounced
// description is reported via OnLocalDescription.
func (p *Peer) Start() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	return p.pc.SetLocalDescription(offer)
}

func (p *Peer) Answer(sdp string, onSuccess func(), onError func(error)) {
	err := p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onSuccess != nil {
		onSuccess()
	}
}

func (p *Peer) Stop() {
	p.mu.Lock()
	if p.iceTimer != nil {
		p.iceTimer.Stop()
		p.iceTimer = nil
	}
	p.mu.Unlock()

	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("close error")
	}
}

func (p *Peer) ReplaceTracks(tracks []webrtc.TrackLocal) error {
	for _, track := range tracks {
		for _, sender := range p.pc.GetSenders() {
			existing := sender.Track()
			if existing == nil || existing.Kind() != track.Kind() {
				continue
			}
			if err := sender.ReplaceTrack(track); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

func (p *Peer) rescheduleGatherTimeout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	if p.iceTimer != nil {
		p.iceTimer.Stop()
	}
	p.iceTimer = time.AfterFunc(iceDebounce, p.finishGathering)
}

// finishGathering surfaces the local description exactly once, either when
// pion reports the end of candidates or after the trailing debounce.
func (p *Peer) finishGathering() {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true
	if p.iceTimer != nil {
		p.iceTimer.Stop()
		p.iceTimer = nil
	}
	p.mu.Unlock()

	local := p.pc.LocalDescription()
	if local == nil {
		log.Error().Str("module", "rtc").Msg("gathering finished without a local description")
		return
	}
	if p.callbacks.OnLocalDescription != nil {
		p.callbacks.OnLocalDescription(Description{Type: TypeOffer, SDP: local.SDP})
	}
}
