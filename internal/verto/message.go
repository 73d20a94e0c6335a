package verto

import "encoding/json"

// Envelope is the wire shape of every Verto message, request and reply
// alike.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a failed reply.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type request struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int64          `json:"id"`
}

// Recognized signaling methods.
const (
	MethodLogin       = "login"
	MethodInvite      = "verto.invite"
	MethodAttach      = "verto.attach"
	MethodAnswer      = "verto.answer"
	MethodBye         = "verto.bye"
	MethodModify      = "verto.modify"
	MethodInfo        = "verto.info"
	MethodMedia       = "verto.media"
	MethodDisplay     = "verto.display"
	MethodEvent       = "verto.event"
	MethodSubscribe   = "verto.subscribe"
	MethodUnsubscribe = "verto.unsubscribe"
	MethodBroadcast   = "verto.broadcast"
	MethodClientReady = "verto.clientReady"
	MethodPunt        = "verto.punt"
)
