package call

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/notify"
	"github.com/mgcomm/verto/internal/rtc"
	"github.com/mgcomm/verto/internal/verto"
)

// Ring replay interval while the call stays in the ringing state.
const ringInterval = 6 * time.Second

const defaultCause = "NORMAL_CLEARING"

// Requester sends a correlated signaling request. Satisfied by
// *verto.Session.
type Requester interface {
	Request(method string, params map[string]any, onSuccess func(json.RawMessage), onError func(*verto.RPCError))
}

// EngineFactory builds the media engine for a call leg with the callbacks
// already bound.
type EngineFactory func(callbacks rtc.Callbacks) (rtc.Engine, error)

// Ringer plays and stops the local ring indication.
type Ringer interface {
	Play()
	Stop()
}

// Params describe one signaling leg.
type Params struct {
	CallID            string
	DestinationNumber string
	CallerName        string
	Login             string
	DisplayName       string
	ChannelName       string
	UserID            string
	ShowMe            bool
	IsHost            bool
	IsHostSharedVideo bool
	IsPrimary         bool
	ReceiveStream     bool
	// Attach marks the leg as re-attaching to an existing server dialog; a
	// locally produced answer is then sent as verto.attach.
	Attach bool
	// PreferredCodec, when set, restricts outgoing offers to that video
	// codec.
	PreferredCodec string

	Ringer    Ringer
	OnDestroy func()
	// OnStateChange mirrors the engine's peer state changes.
	OnStateChange func()
	OnRemoteTrack func(track *webrtc.TrackRemote)
}

// Call is the state machine of one signaling leg. All event entry points
// serialize on an internal mutex; bus subscribers must not call back into
// the same Call synchronously.
type Call struct {
	params  Params
	session Requester
	bus     *notify.Bus
	engine  rtc.Engine

	remoteCallerName   string
	remoteCallerNumber string

	mu        sync.Mutex
	state     domain.CallState
	lastState domain.CallState
	cause     string
	causeCode int
	gotAnswer bool
	gotEarly  bool
	ringTimer *time.Timer

	// afterFunc is swapped in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// New builds the leg and immediately begins media negotiation; the offer is
// sent once the engine reports its local description.
func New(params Params, session Requester, bus *notify.Bus, factory EngineFactory) (*Call, error) {
	c := &Call{
		params:             params,
		session:            session,
		bus:                bus,
		state:              domain.StateNew,
		lastState:          domain.StateNew,
		remoteCallerName:   "OUTBOUND CALL",
		remoteCallerNumber: params.DestinationNumber,
		afterFunc:          time.AfterFunc,
	}

	engine, err := factory(rtc.Callbacks{
		OnLocalDescription: c.handleLocalDescription,
		OnNegotiationError: c.handleNegotiationError,
		OnRemoteTrack:      params.OnRemoteTrack,
		OnStateChange:      params.OnStateChange,
	})
	if err != nil {
		return nil, err
	}
	c.engine = engine

	if err := engine.Start(); err != nil {
		engine.Stop()
		return nil, err
	}
	return c, nil
}

func (c *Call) ID() string { return c.params.CallID }

func (c *Call) DestinationNumber() string { return c.params.DestinationNumber }

func (c *Call) CallerName() string { return c.params.CallerName }

func (c *Call) State() domain.CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cause reports the termination cause once the call is over.
func (c *Call) Cause() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

// SetState validates and applies a transition. Invalid transitions are
// rejected and force a hangup instead.
func (c *Call) SetState(next domain.CallState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setState(next)
}

func (c *Call) setState(next domain.CallState) bool {
	if c.state == domain.StateRinging {
		c.stopRinging()
	}

	if c.state == next || !domain.CanTransition(c.state, next) {
		log.Error().
			Str("module", "call").
			Str("call_id", c.params.CallID).
			Str("from", c.state.String()).
			Str("to", next.String()).
			Msg("invalid call state change")
		c.hangup()
		return false
	}

	c.lastState = c.state
	c.state = next

	c.bus.CallStateChange.Notify(domain.StateChange{Previous: c.lastState, Current: c.state})

	afterRequesting := c.lastState > domain.StateRequesting
	beforeHangup := c.lastState < domain.StateHangup

	switch c.state {
	case domain.StatePurge:
		c.setState(domain.StateDestroy)

	case domain.StateHangup:
		if afterRequesting && beforeHangup {
			c.sendMethod(verto.MethodBye, nil, false)
		}
		c.setState(domain.StateDestroy)

	case domain.StateDestroy:
		c.engine.Stop()
		c.bus.Destroy.Notify(struct{}{})
		if c.params.OnDestroy != nil {
			c.params.OnDestroy()
		}
	}

	return true
}

// Hangup is the only cancellation primitive. It is idempotent: past the
// hangup rank it becomes a no-op.
func (c *Call) Hangup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hangup()
}

// HangupWithCause hangs up recording a descriptive termination cause.
func (c *Call) HangupWithCause(cause string, causeCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cause = cause
	c.causeCode = causeCode
	c.hangup()
}

func (c *Call) hangup() {
	if c.cause == "" && c.causeCode == 0 {
		c.cause = defaultCause
	}

	if c.state < domain.StateHangup {
		c.setState(domain.StateHangup)
	}
	if c.state < domain.StateDestroy {
		c.setState(domain.StateDestroy)
	}
}

// Ring moves the call to ringing and replays the ring indication every
// ringInterval until the state changes.
func (c *Call) Ring() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.setState(domain.StateRinging) {
		return
	}
	c.indicateRing()
}

func (c *Call) indicateRing() {
	if c.params.Ringer == nil {
		log.Warn().Str("module", "call").Str("call_id", c.params.CallID).Msg("call is ringing but no ringer set")
		return
	}

	c.params.Ringer.Play()
	c.ringTimer = c.afterFunc(ringInterval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == domain.StateRinging {
			c.indicateRing()
		} else {
			c.stopRinging()
		}
	})
}

func (c *Call) stopRinging() {
	if c.ringTimer != nil {
		c.ringTimer.Stop()
		c.ringTimer = nil
	}
	if c.params.Ringer != nil {
		c.params.Ringer.Stop()
	}
}

// handleLocalDescription decides the signaling method from the description
// type and the current state, applies the codec preference and sends.
func (c *Call) handleLocalDescription(desc rtc.Description) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.StateRequesting || c.state == domain.StateAnswering {
		log.Error().Str("module", "call").Str("call_id", c.params.CallID).Str("state", c.state.String()).Msg("unexpected local description")
		return
	}

	sdp := desc.SDP
	if c.params.PreferredCodec != "" {
		rewritten, err := rtc.PreferVideoCodec(sdp, c.params.PreferredCodec)
		if err != nil {
			log.Error().Err(err).Str("module", "call").Str("call_id", c.params.CallID).Msg("codec rewrite failed")
		} else {
			sdp = rewritten
		}
	}

	options := map[string]any{"sdp": sdp}

	if desc.Type == rtc.TypeOffer {
		reattach := c.state == domain.StateActive
		c.setState(domain.StateRequesting)
		if reattach {
			c.sendMethod(verto.MethodAttach, options, false)
		} else {
			c.sendMethod(verto.MethodInvite, options, false)
		}
		return
	}

	c.setState(domain.StateAnswering)
	if c.params.Attach {
		c.sendMethod(verto.MethodAttach, options, false)
	} else {
		c.sendMethod(verto.MethodAnswer, options, false)
	}
}

func (c *Call) handleNegotiationError(err error) {
	log.Error().Err(err).Str("module", "call").Str("call_id", c.params.CallID).Msg("peer streaming error")
	c.bus.PeerStreamingError.Notify(err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cause = "Device or Permission Error"
	c.hangup()
}

// HandleAnswer processes the final verto.answer from the server. It may
// arrive before or after early media; whichever completes last performs the
// single transition to active.
func (c *Call) HandleAnswer(sdp string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gotAnswer = true

	if c.state >= domain.StateActive {
		return
	}
	if c.state >= domain.StateEarly {
		c.setState(domain.StateActive)
		return
	}
	if c.gotEarly {
		// Early negotiation is still running; its completion callback folds
		// in the pending answer.
		return
	}

	// Answer invokes its callbacks before returning, so the lock is still
	// held here.
	c.engine.Answer(sdp,
		func() {
			c.setState(domain.StateActive)
		},
		func(err error) {
			log.Error().Err(err).Str("module", "call").Str("call_id", c.params.CallID).Msg("error while answering")
			c.hangup()
		})
}

// HandleMedia processes early media (verto.media). A no-op at or past early.
func (c *Call) HandleMedia(sdp string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state >= domain.StateEarly {
		return
	}
	c.gotEarly = true

	c.engine.Answer(sdp,
		func() {
			c.setState(domain.StateEarly)
			if c.gotAnswer {
				c.setState(domain.StateActive)
			}
		},
		func(err error) {
			log.Error().Err(err).Str("module", "call").Str("call_id", c.params.CallID).Msg("error on answering early")
			c.bus.EarlyCallError.Notify(struct{}{})
			c.hangup()
		})
}

// HandleDisplay updates the remote caller identity.
func (c *Call) HandleDisplay(name, number string) {
	c.mu.Lock()
	if name != "" {
		c.remoteCallerName = name
	}
	if number != "" {
		c.remoteCallerNumber = number
	}
	c.mu.Unlock()

	c.bus.Display.Notify(domain.Display{Name: name, Number: number})
}

func (c *Call) HandleInfo(params json.RawMessage) {
	c.bus.Info.Notify(params)
}

// SendTouchTone transmits one DTMF digit in-dialog.
func (c *Call) SendTouchTone(digit string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodInfo, map[string]any{"dtmf": digit}, false)
}

// SendRealTimeText transmits one real-time text keystroke.
func (c *Call) SendRealTimeText(code, chars string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodInfo, map[string]any{
		"txt": map[string]any{"code": code, "chars": chars},
	}, true)
}

// SendMessageTo sends an in-dialog message body.
func (c *Call) SendMessageTo(to, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodInfo, map[string]any{
		"msg": map[string]any{"from": c.params.Login, "to": to, "body": body},
	}, false)
}

func (c *Call) TransferTo(destination string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodModify, map[string]any{"action": "transfer", "destination": destination}, false)
}

func (c *Call) Hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodModify, map[string]any{"action": "hold"}, false)
}

func (c *Call) Unhold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodModify, map[string]any{"action": "unhold"}, false)
}

func (c *Call) ToggleHold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendMethod(verto.MethodModify, map[string]any{"action": "toggleHold"}, false)
}

func (c *Call) ReplaceTracks(tracks []webrtc.TrackLocal) {
	if err := c.engine.ReplaceTracks(tracks); err != nil {
		log.Error().Err(err).Str("module", "call").Str("call_id", c.params.CallID).Msg("replace tracks")
	}
}
