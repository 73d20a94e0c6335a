package verto

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/notify"
)

// 1000 is the websocket normal-closure code; anything else triggers a
// reconnect attempt.
const normalClosureCode = 1000

// MessageHandler receives inbound messages that do not correlate to a
// pending request id.
type MessageHandler interface {
	HandleMessage(msg Envelope)
}

type pendingRequest struct {
	method    string
	onSuccess func(result json.RawMessage)
	onError   func(err *RPCError)
}

// Session owns the logical connection: it assigns request ids, correlates
// replies, performs the login handshake and schedules reconnects after an
// abnormal close.
type Session struct {
	socket         Socket
	bus            *notify.Bus
	sessionID      string
	login          string
	password       string
	reconnectDelay time.Duration

	handler MessageHandler

	mu      sync.Mutex
	nextID  int64
	pending map[int64]pendingRequest

	relogin bool

	// afterFunc is swapped in tests to run timers synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewSession(socket Socket, bus *notify.Bus, sessionID, login, password string, reconnectDelay time.Duration) *Session {
	return &Session{
		socket:         socket,
		bus:            bus,
		sessionID:      sessionID,
		login:          login,
		password:       password,
		reconnectDelay: reconnectDelay,
		pending:        make(map[int64]pendingRequest),
		afterFunc:      time.AfterFunc,
	}
}

// SetHandler registers the sink for unsolicited messages. Must be called
// before Connect.
func (s *Session) SetHandler(h MessageHandler) { s.handler = h }

func (s *Session) SessionID() string { return s.sessionID }

// Connect dials the socket; the login handshake runs from OnOpen.
func (s *Session) Connect() error {
	return s.socket.Connect(s)
}

// Disconnect closes the socket without scheduling a reconnect.
func (s *Session) Disconnect() {
	if err := s.socket.Close(); err != nil {
		log.Warn().Err(err).Str("module", "verto").Msg("socket close")
	}
}

// Request records the continuations under a fresh id, then transmits. The
// record is removed exactly once when the correlated reply arrives; if the
// connection drops first it is never resolved.
func (s *Session) Request(method string, params map[string]any, onSuccess func(json.RawMessage), onError func(*RPCError)) {
	wireParams := map[string]any{"sessid": s.sessionID}
	for k, v := range params {
		wireParams[k] = v
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = pendingRequest{method: method, onSuccess: onSuccess, onError: onError}
	s.mu.Unlock()

	data, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  wireParams,
		ID:      id,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "verto").Str("method", method).Msg("marshal request")
		return
	}

	if err := s.socket.Send(data); err != nil {
		log.Error().Err(err).Str("module", "verto").Str("method", method).Msg("send request")
	}
}

func (s *Session) OnOpen() {
	relogin := s.relogin
	s.Request(MethodLogin, map[string]any{
		"login":  s.login,
		"passwd": s.password,
	}, func(json.RawMessage) {
		if relogin {
			s.bus.Relogged.Notify(struct{}{})
		} else {
			s.bus.LoggedIn.Notify(struct{}{})
		}
	}, func(err *RPCError) {
		log.Error().Str("module", "verto").Int("code", err.Code).Str("message", err.Message).Msg("login failed")
		s.bus.LoginError.Notify(struct{}{})
	})
}

func (s *Session) OnMessage(data []byte) {
	var msg Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "verto").Msg("invalid websocket message")
		return
	}

	if msg.ID != 0 {
		s.mu.Lock()
		req, ok := s.pending[msg.ID]
		if ok && (msg.Result != nil || msg.Error != nil) {
			delete(s.pending, msg.ID)
		}
		s.mu.Unlock()

		if ok && msg.Result != nil {
			if req.onSuccess != nil {
				req.onSuccess(msg.Result)
			}
			return
		}
		if ok && msg.Error != nil {
			if req.onError != nil {
				req.onError(msg.Error)
			}
			return
		}
	}

	if s.handler != nil {
		s.handler.HandleMessage(msg)
	}
}

func (s *Session) OnClose(code int) {
	if code == normalClosureCode {
		log.Info().Str("module", "verto").Msg("websocket closed")
		return
	}

	log.Warn().Str("module", "verto").Int("code", code).Msg("websocket closed abnormally, scheduling reconnect")
	s.bus.Reconnecting.Notify(struct{}{})
	s.afterFunc(s.reconnectDelay, func() {
		s.relogin = true
		if err := s.socket.Connect(s); err != nil {
			log.Error().Err(err).Str("module", "verto").Msg("reconnect failed")
		}
	})
}
