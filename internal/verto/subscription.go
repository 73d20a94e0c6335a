package verto

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventHandler consumes the params of one inbound channel event.
type EventHandler func(params json.RawMessage)

// Subscription tracks one logical server channel. Ready flips to true only
// once the server acknowledges the subscribe request; events for a not-ready
// channel are dropped.
type Subscription struct {
	Channel string
	Handler EventHandler
	Ready   bool
}

// Subscriptions is the channel subscription table layered on a Session.
type Subscriptions struct {
	session *Session

	mu    sync.Mutex
	table map[string]*Subscription
}

func NewSubscriptions(session *Session) *Subscriptions {
	return &Subscriptions{
		session: session,
		table:   make(map[string]*Subscription),
	}
}

type subscribeReply struct {
	SubscribedChannels   []string `json:"subscribedChannels"`
	UnauthorizedChannels []string `json:"unauthorizedChannels"`
}

// Subscribe registers the channel in the not-ready state and sends the
// subscribe request. Subscribing an already-subscribed channel overwrites
// the previous registration.
func (s *Subscriptions) Subscribe(channel string, handler EventHandler) *Subscription {
	sub := &Subscription{Channel: channel, Handler: handler}

	s.mu.Lock()
	if _, exists := s.table[channel]; exists {
		log.Warn().Str("module", "verto").Str("channel", channel).Msg("overwriting an already subscribed channel")
	}
	s.table[channel] = sub
	s.mu.Unlock()

	reply := func(result json.RawMessage) { s.processSubscribeReply(result) }
	s.session.Request(MethodSubscribe, map[string]any{"eventChannel": channel},
		reply,
		func(err *RPCError) {
			log.Error().Str("module", "verto").Str("channel", channel).Str("message", err.Message).Msg("subscribe failed")
		})
	return sub
}

// Unsubscribe drops the channel and tells the server, fire and forget.
func (s *Subscriptions) Unsubscribe(channel string) {
	s.mu.Lock()
	delete(s.table, channel)
	s.mu.Unlock()

	s.session.Request(MethodUnsubscribe, map[string]any{"eventChannel": channel}, nil, logRequestError)
}

// Broadcast publishes data on the channel, fire and forget.
func (s *Subscriptions) Broadcast(channel string, data any) {
	if channel == "" {
		return
	}
	s.session.Request(MethodBroadcast, map[string]any{"eventChannel": channel, "data": data}, nil, logRequestError)
}

// Get returns the subscription for channel, or nil.
func (s *Subscriptions) Get(channel string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table[channel]
}

// Clear empties the table without notifying the server. Used on teardown.
func (s *Subscriptions) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = make(map[string]*Subscription)
}

func (s *Subscriptions) processSubscribeReply(result json.RawMessage) {
	var reply subscribeReply
	if err := json.Unmarshal(result, &reply); err != nil {
		log.Error().Err(err).Str("module", "verto").Msg("invalid subscribe reply")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, channel := range reply.SubscribedChannels {
		if sub, ok := s.table[channel]; ok {
			sub.Ready = true
		}
	}
	for _, channel := range reply.UnauthorizedChannels {
		log.Error().Str("module", "verto").Str("channel", channel).Msg("unauthorized channel")
		delete(s.table, channel)
	}
}

func logRequestError(err *RPCError) {
	log.Error().Str("module", "verto").Int("code", err.Code).Str("message", err.Message).Msg("request failed")
}
