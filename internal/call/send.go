package call

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/verto"
)

// dialogParams is attached to every in-dialog request so the server can
// correlate it with the right dialog and caller identity.
func (c *Call) dialogParams(noCallID bool) map[string]any {
	params := map[string]any{
		"destination_number":      c.params.DestinationNumber,
		"caller_id_name":          c.params.CallerName,
		"remote_caller_id_name":   c.remoteCallerName,
		"remote_caller_id_number": c.remoteCallerNumber,
		"screenShare":             false,
		"dedEnc":                  false,
		"userVariables": map[string]any{
			"showMe":            c.params.ShowMe,
			"isHost":            c.params.IsHost,
			"isHostSharedVideo": c.params.IsHostSharedVideo,
			"channelName":       c.params.ChannelName,
			"displayName":       c.params.DisplayName,
			"isPrimaryCall":     c.params.IsPrimary,
			"userId":            c.params.UserID,
		},
	}
	if !noCallID {
		params["callID"] = c.params.CallID
	}
	return params
}

// sendMethod wraps options with the dialog params and transmits. Replies
// feed back into handleMethodResponse. Called with c.mu held.
func (c *Call) sendMethod(method string, options map[string]any, noCallID bool) {
	params := make(map[string]any, len(options)+1)
	for k, v := range options {
		params[k] = v
	}
	params["dialogParams"] = c.dialogParams(noCallID)

	c.session.Request(method, params,
		func(result json.RawMessage) { c.handleMethodResponse(method, true, result, nil) },
		func(err *verto.RPCError) { c.handleMethodResponse(method, false, nil, err) })
}

type modifyReply struct {
	HoldState string `json:"holdState"`
}

// handleMethodResponse drives the transitions that follow signaling
// replies. Runs on the transport dispatch goroutine.
func (c *Call) handleMethodResponse(method string, success bool, result json.RawMessage, rpcErr *verto.RPCError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch method {
	case verto.MethodAnswer, verto.MethodAttach:
		if success {
			c.setState(domain.StateActive)
		} else {
			c.hangup()
		}

	case verto.MethodInvite:
		if success {
			c.setState(domain.StateTrying)
		} else {
			c.setState(domain.StateDestroy)
		}

	case verto.MethodBye:
		c.hangup()
		if success {
			c.bus.UserHangup.Notify(struct{}{})
		} else {
			log.Error().Str("module", "call").Str("call_id", c.params.CallID).Str("message", rpcErr.Message).Msg("bye rejected")
			c.bus.HangupError.Notify(domain.HangupError{ErrorMessage: rpcErr.Message})
		}

	case verto.MethodModify:
		if !success {
			return
		}
		var reply modifyReply
		if err := json.Unmarshal(result, &reply); err != nil {
			log.Error().Err(err).Str("module", "call").Str("call_id", c.params.CallID).Msg("invalid modify reply")
			return
		}
		if reply.HoldState == "held" && c.state != domain.StateHeld {
			c.setState(domain.StateHeld)
		}
		if reply.HoldState == "active" && c.state != domain.StateActive {
			c.setState(domain.StateActive)
		}
	}
}
