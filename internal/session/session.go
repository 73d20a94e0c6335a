package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/call"
	"github.com/mgcomm/verto/internal/conference"
	"github.com/mgcomm/verto/internal/config"
	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/notify"
	"github.com/mgcomm/verto/internal/rtc"
	"github.com/mgcomm/verto/internal/verto"
)

// EngineProvider builds a media engine for one call leg. The provider owns
// the local tracks; receiveStream asks for receive-only transceivers.
type EngineProvider func(receiveStream bool, callbacks rtc.Callbacks) (rtc.Engine, error)

// Params configure one conference session.
type Params struct {
	CallerName        string
	RealNumber        string
	StreamNumber      string
	ChannelName       string
	DisplayName       string
	UserID            string
	IsHost            bool
	IsHostSharedVideo bool
	// Secondary starts the session with a stream leg instead of a primary
	// call; requires ChannelName.
	Secondary bool
	// GiveFloor grants the video floor to our own member once the first
	// membership snapshot arrives.
	GiveFloor            bool
	ReceivePrimaryStream bool
	PreferredCodec       string
	Ringer               call.Ringer
}

type conferenceState struct {
	memberID string
	role     string
	manager  *conference.Manager
	liveAry  *conference.LiveArray
}

type adHocConnection struct {
	id  string
	leg *call.Call
}

// Session composes the transport, subscriptions, call machines and the
// conference protocol into one client session. It owns the call legs; the
// bus is shared with every component.
type Session struct {
	cfg     *config.Config
	params  Params
	bus     *notify.Bus
	sessID  string
	caller  string
	rest    *config.RestClient
	engines EngineProvider

	transport *verto.Session
	subs      *verto.Subscriptions

	mu            sync.Mutex
	primaryID     string
	secondaryID   string
	primary       *call.Call
	secondary     *call.Call
	connections   []adHocConnection
	conf          *conferenceState
	modToken      string
	defaultLayout domain.Layout
}

// New wires a session; Connect must be called to start it.
func New(cfg *config.Config, socket verto.Socket, engines EngineProvider, rest *config.RestClient, params Params) *Session {
	caller := params.CallerName
	if caller == "" {
		caller = fmt.Sprintf("User_%d", time.Now().UnixMilli()%1000)
	}

	s := &Session{
		cfg:         cfg,
		params:      params,
		bus:         notify.NewBus(),
		sessID:      uuid.NewString(),
		caller:      caller,
		rest:        rest,
		engines:     engines,
		primaryID:   uuid.NewString(),
		secondaryID: uuid.NewString(),
	}

	s.transport = verto.NewSession(socket, s.bus, s.sessID, cfg.Login, cfg.Password, cfg.ReconnectDelay)
	s.transport.SetHandler(s)
	s.subs = verto.NewSubscriptions(s.transport)

	s.bus.LoggedIn.Subscribe(func(struct{}) {
		if params.Secondary && params.ChannelName != "" {
			s.SecondaryCall(params.ChannelName, true)
		} else {
			s.PrimaryCall()
		}
	})

	if params.GiveFloor {
		s.bus.BootstrappedParticipants.Subscribe(s.giveOwnMemberFloor)
	}

	return s
}

// Notification exposes the session's event bus.
func (s *Session) Notification() *notify.Bus { return s.bus }

func (s *Session) CallerName() string { return s.caller }

// Connect dials the signaling transport; the primary or secondary call is
// placed once login succeeds.
func (s *Session) Connect() error { return s.transport.Connect() }

// Disconnect closes the transport without reconnecting.
func (s *Session) Disconnect() { s.transport.Disconnect() }

// PrimaryCall places the main conference leg.
func (s *Session) PrimaryCall() {
	destination := s.params.RealNumber
	if s.params.IsHostSharedVideo {
		destination = s.params.StreamNumber
	}

	displayName := s.params.DisplayName
	if displayName == "" {
		displayName = s.caller
	}

	leg, err := call.New(call.Params{
		CallID:            s.primaryID,
		DestinationNumber: destination,
		CallerName:        s.caller,
		Login:             s.cfg.Login,
		DisplayName:       displayName,
		ChannelName:       s.params.ChannelName,
		UserID:            s.params.UserID,
		ShowMe:            true,
		IsHost:            s.params.IsHost,
		IsHostSharedVideo: s.params.IsHostSharedVideo,
		IsPrimary:         true,
		ReceiveStream:     s.params.ReceivePrimaryStream,
		PreferredCodec:    s.params.PreferredCodec,
		Ringer:            s.params.Ringer,
		OnDestroy:         func() { s.bus.PrimaryCallDestroy.Notify(struct{}{}) },
		OnStateChange:     func() { s.bus.PrimaryCallStateChange.Notify(struct{}{}) },
		OnRemoteTrack:     func(t *webrtc.TrackRemote) { s.bus.PrimaryCallRemoteTrack.Notify(t) },
	}, s.transport, s.bus, func(cb rtc.Callbacks) (rtc.Engine, error) {
		return s.engines(s.params.ReceivePrimaryStream, cb)
	})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("primary call setup failed")
		return
	}

	s.mu.Lock()
	s.primary = leg
	s.mu.Unlock()
}

// SecondaryCall places the screen-share / stream leg.
func (s *Session) SecondaryCall(channelName string, receiveStream bool) {
	leg, err := call.New(call.Params{
		CallID:            s.secondaryID,
		DestinationNumber: s.params.StreamNumber,
		CallerName:        channelName,
		Login:             s.cfg.Login,
		DisplayName:       channelName,
		UserID:            s.params.UserID,
		IsHostSharedVideo: true,
		ReceiveStream:     receiveStream,
		PreferredCodec:    s.params.PreferredCodec,
		OnDestroy:         func() { s.bus.SecondaryCallDestroy.Notify(struct{}{}) },
		OnStateChange:     func() { s.bus.SecondaryCallStateChange.Notify(struct{}{}) },
		OnRemoteTrack:     func(t *webrtc.TrackRemote) { s.bus.SecondaryCallRemoteTrack.Notify(t) },
	}, s.transport, s.bus, func(cb rtc.Callbacks) (rtc.Engine, error) {
		return s.engines(receiveStream, cb)
	})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("secondary call setup failed")
		return
	}

	s.mu.Lock()
	s.secondary = leg
	if s.conf != nil {
		s.conf.liveAry.SetSecondaryCallID(s.secondaryID)
	}
	s.mu.Unlock()
}

// AddConnection places an additional ad hoc leg towards the room.
func (s *Session) AddConnection(caller string) {
	id := uuid.NewString()
	leg, err := call.New(call.Params{
		CallID:            id,
		DestinationNumber: s.params.RealNumber,
		CallerName:        caller,
		Login:             s.cfg.Login,
		DisplayName:       caller,
		ShowMe:            true,
		PreferredCodec:    s.params.PreferredCodec,
	}, s.transport, s.bus, func(cb rtc.Callbacks) (rtc.Engine, error) {
		return s.engines(false, cb)
	})
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("ad hoc call setup failed")
		return
	}

	s.mu.Lock()
	s.connections = append(s.connections, adHocConnection{id: id, leg: leg})
	s.mu.Unlock()
}

func (s *Session) HasSecondaryCall() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secondary != nil
}

func (s *Session) HangupSecondaryCall() {
	if leg := s.secondaryLeg(); leg != nil {
		leg.Hangup()
	}
}

// HangupScreenShareCall ends whichever leg carries the share.
func (s *Session) HangupScreenShareCall() {
	if leg := s.secondaryLeg(); leg != nil {
		leg.Hangup()
		return
	}
	if leg := s.primaryLeg(); leg != nil {
		leg.Hangup()
	}
}

// Hangup ends every leg of the session.
func (s *Session) Hangup() {
	s.bus.StartingHangup.Notify(struct{}{})

	s.mu.Lock()
	legs := make([]*call.Call, 0, len(s.connections)+2)
	for _, conn := range s.connections {
		legs = append(legs, conn.leg)
	}
	if s.secondary != nil {
		legs = append(legs, s.secondary)
	}
	if s.primary != nil {
		legs = append(legs, s.primary)
	}
	s.mu.Unlock()

	for _, leg := range legs {
		leg.Hangup()
	}
}

// ReplacePrimaryTracks swaps the outgoing media of the primary leg.
func (s *Session) ReplacePrimaryTracks(tracks []webrtc.TrackLocal) {
	if leg := s.primaryLeg(); leg != nil {
		leg.ReplaceTracks(tracks)
	}
}

func (s *Session) ReplaceSecondaryTracks(tracks []webrtc.TrackLocal) {
	if leg := s.secondaryLeg(); leg != nil {
		leg.ReplaceTracks(tracks)
	}
}

// ReplaceTracks prefers the secondary leg when present.
func (s *Session) ReplaceTracks(tracks []webrtc.TrackLocal) {
	if leg := s.secondaryLeg(); leg != nil {
		leg.ReplaceTracks(tracks)
		return
	}
	if leg := s.primaryLeg(); leg != nil {
		leg.ReplaceTracks(tracks)
	}
}

func (s *Session) primaryLeg() *call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primary
}

func (s *Session) secondaryLeg() *call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secondary
}

func (s *Session) conference() *conferenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conf
}

// findCall resolves a call id to a leg of this session.
func (s *Session) findCall(callID string) *call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary != nil && s.primary.ID() == callID {
		return s.primary
	}
	if s.secondary != nil && s.secondary.ID() == callID {
		return s.secondary
	}
	for _, conn := range s.connections {
		if conn.id == callID {
			return conn.leg
		}
	}
	return nil
}

// giveOwnMemberFloor moderates our own freshly bootstrapped member onto the
// video floor.
func (s *Session) giveOwnMemberFloor(participants []domain.Participant) {
	s.mu.Lock()
	id := s.primaryID
	if s.secondary != nil {
		id = s.secondaryID
	}
	conf := s.conf
	s.mu.Unlock()

	if conf == nil {
		return
	}
	for _, p := range participants {
		if p.CallID == id {
			conf.manager.Moderate(p.ParticipantID).GrantVideoFloor()
			return
		}
	}
}
