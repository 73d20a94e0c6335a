package conference

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/notify"
	"github.com/mgcomm/verto/internal/verto"
)

// After this many consecutive serial gaps the array stops re-requesting
// bootstraps and the view is left stale.
const maxGapErrors = 3

// LiveArray replicates the server's ordered membership list from a
// serial-numbered event stream on a dedicated channel. Gaps trigger a full
// bootstrap resync, bounded by maxGapErrors.
type LiveArray struct {
	subs *verto.Subscriptions
	bus  *notify.Bus

	channel string
	name    string
	callID  string

	mu              sync.Mutex
	secondaryCallID string
	values          map[string]json.RawMessage
	order           []string
	lastSerial      int64
	gapErrors       int
}

// NewLiveArray subscribes to the live array channel and requests the
// initial bootstrap snapshot.
func NewLiveArray(subs *verto.Subscriptions, bus *notify.Bus, channel, name, callID string) *LiveArray {
	la := &LiveArray{
		subs:    subs,
		bus:     bus,
		channel: channel,
		name:    name,
		callID:  callID,
		values:  make(map[string]json.RawMessage),
	}

	subs.Subscribe(channel, la.handleEvent)
	la.bootstrap()
	return la
}

// SetSecondaryCallID registers the screen-share leg id so its member is also
// flagged as "me".
func (la *LiveArray) SetSecondaryCallID(callID string) {
	la.mu.Lock()
	defer la.mu.Unlock()
	la.secondaryCallID = callID
}

// OrderedCallIDs returns the current display order of member keys.
func (la *LiveArray) OrderedCallIDs() []string {
	la.mu.Lock()
	defer la.mu.Unlock()
	out := make([]string, len(la.order))
	copy(out, la.order)
	return out
}

type liveArrayEventData struct {
	WireSerno int64           `json:"wireSerno"`
	ArrIndex  *int            `json:"arrIndex"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	HashKey   string          `json:"hashKey"`
	Action    string          `json:"action"`
}

type liveArrayEvent struct {
	Data liveArrayEventData `json:"data"`
}

func (la *LiveArray) handleEvent(params json.RawMessage) {
	var event liveArrayEvent
	if err := json.Unmarshal(params, &event); err != nil {
		log.Error().Err(err).Str("module", "conference").Msg("invalid live array event")
		return
	}

	data := event.Data
	if data.Name != la.name {
		return
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	switch data.Action {
	case "bootObj":
		la.handleBoot(data)
	case "add":
		la.handleAdd(data)
	case "modify":
		if data.ArrIndex != nil || data.HashKey != "" {
			la.handleModify(data)
		}
	case "del":
		if data.ArrIndex != nil || data.HashKey != "" {
			la.handleDelete(data)
		}
	default:
		log.Warn().Str("module", "conference").Str("action", data.Action).Msg("ignoring unknown live array action")
	}
}

// checkSerialNumber enforces the strictly incrementing event order. A gap
// discards the event and re-requests a bootstrap while still under the cap.
func (la *LiveArray) checkSerialNumber(n int64) bool {
	if la.lastSerial > 0 && n != la.lastSerial+1 {
		la.gapErrors++
		log.Warn().
			Str("module", "conference").
			Int64("serial", n).
			Int64("last", la.lastSerial).
			Int("gap_errors", la.gapErrors).
			Msg("live array serial gap")
		if la.gapErrors < maxGapErrors {
			la.bootstrap()
		}
		return false
	}

	if n > 0 {
		la.lastSerial = n
	}
	return true
}

// handleBoot replaces the whole membership view. The snapshot is
// authoritative: it resets the serial counter and the gap budget.
func (la *LiveArray) handleBoot(data liveArrayEventData) {
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(data.Data, &pairs); err != nil {
		log.Error().Err(err).Str("module", "conference").Msg("invalid bootObj payload")
		return
	}

	la.values = make(map[string]json.RawMessage, len(pairs))
	la.order = la.order[:0]
	if data.WireSerno > 0 {
		la.lastSerial = data.WireSerno
	}
	la.gapErrors = 0

	participants := make([]domain.Participant, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			continue
		}
		key := decodeKey(pair[0])
		la.insert(key, pair[1], nil)
		participants = append(participants, la.parseParticipant(key, pair[1]))
	}

	la.bus.BootstrappedParticipants.Notify(participants)
}

func (la *LiveArray) handleAdd(data liveArrayEventData) {
	if !la.checkSerialNumber(data.WireSerno) {
		return
	}
	la.insert(data.HashKey, data.Data, data.ArrIndex)
	la.bus.AddedParticipant.Notify(la.parseParticipant(data.HashKey, data.Data))
}

func (la *LiveArray) handleModify(data liveArrayEventData) {
	if !la.checkSerialNumber(data.WireSerno) {
		return
	}
	la.insert(data.HashKey, data.Data, data.ArrIndex)
	la.bus.ModifiedParticipant.Notify(la.parseParticipant(data.HashKey, data.Data))
}

func (la *LiveArray) handleDelete(data liveArrayEventData) {
	if !la.checkSerialNumber(data.WireSerno) {
		return
	}
	if !la.delete(data.HashKey) {
		return
	}
	la.bus.RemovedParticipant.Notify(la.parseParticipant(data.HashKey, data.Data))
}

// insert adds or updates a key. A new key goes to the given index when it is
// within the current bounds, otherwise to the end.
func (la *LiveArray) insert(key string, value json.RawMessage, index *int) {
	_, known := la.values[key]
	la.values[key] = value
	if known {
		return
	}

	if index == nil || *index < 0 || *index >= len(la.order) {
		la.order = append(la.order, key)
		return
	}

	at := *index
	la.order = append(la.order, "")
	copy(la.order[at+1:], la.order[at:])
	la.order[at] = key
}

func (la *LiveArray) delete(key string) bool {
	if _, known := la.values[key]; !known {
		return false
	}
	delete(la.values, key)
	for i, existing := range la.order {
		if existing == key {
			la.order = append(la.order[:i], la.order[i+1:]...)
			break
		}
	}
	return true
}

// bootstrap asks the server to replay the full membership snapshot.
func (la *LiveArray) bootstrap() {
	la.subs.Broadcast(la.channel, map[string]any{
		"liveArray": map[string]any{
			"command": "bootstrap",
			"context": la.channel,
			"name":    la.name,
		},
	})
}

func decodeKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
