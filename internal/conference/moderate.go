package conference

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
)

// moderatorCommand broadcasts a conf-control command on the moderator
// channel. Without moderator rights it is a reported no-op.
func (m *Manager) moderatorCommand(command, memberID string, value any) {
	m.mu.Lock()
	channel := m.modChannel
	m.mu.Unlock()

	if channel == "" {
		log.Error().Str("module", "conference").Str("command", command).Msg("no moderator rights")
		return
	}

	var id any
	if memberID != "" {
		n, err := strconv.Atoi(memberID)
		if err != nil {
			log.Error().Err(err).Str("module", "conference").Str("member_id", memberID).Msg("invalid member id")
			return
		}
		id = n
	}

	m.subs.Broadcast(channel, map[string]any{
		"command":     command,
		"id":          id,
		"value":       value,
		"application": "conf-control",
	})
}

// roomCommand is a moderator command addressed to the room rather than one
// member.
func (m *Manager) roomCommand(command string, value any) {
	m.moderatorCommand(command, "", value)
}

func (m *Manager) ListVideoLayouts()  { m.roomCommand("list-videoLayouts", nil) }
func (m *Manager) PlayMedia(f string) { m.roomCommand("play", f) }
func (m *Manager) StopMedia()         { m.roomCommand("stop", "all") }

func (m *Manager) StartRecording(filename string) {
	m.roomCommand("recording", []any{"start", filename})
}

func (m *Manager) StopRecordings() {
	m.roomCommand("recording", []any{"stop", "all"})
}

func (m *Manager) SaveSnapshot(filename string) {
	m.roomCommand("vid-write-png", filename)
}

// ChangeVideoLayout switches the conference canvas layout; canvas may be
// empty for the default canvas.
func (m *Manager) ChangeVideoLayout(layout domain.Layout, canvas string) {
	if canvas != "" {
		m.roomCommand("vid-layout", []any{string(layout), canvas})
		return
	}
	m.roomCommand("vid-layout", string(layout))
}

// MemberModerator issues member-addressed moderator commands.
type MemberModerator struct {
	manager  *Manager
	memberID string
}

// Moderate returns a moderator handle for one conference member id.
func (m *Manager) Moderate(memberID string) MemberModerator {
	return MemberModerator{manager: m, memberID: memberID}
}

func (mm MemberModerator) Deaf()   { mm.manager.moderatorCommand("deaf", mm.memberID, nil) }
func (mm MemberModerator) Undeaf() { mm.manager.moderatorCommand("undeaf", mm.memberID, nil) }
func (mm MemberModerator) Kick()   { mm.manager.moderatorCommand("kick", mm.memberID, nil) }

func (mm MemberModerator) ToggleMicrophone() {
	mm.manager.moderatorCommand("tmute", mm.memberID, nil)
}

func (mm MemberModerator) ToggleCamera() {
	mm.manager.moderatorCommand("tvmute", mm.memberID, nil)
}

func (mm MemberModerator) MakePresenter() {
	mm.manager.moderatorCommand("vid-res-id", mm.memberID, "presenter")
}

func (mm MemberModerator) GrantVideoFloor() {
	mm.manager.moderatorCommand("vid-floor", mm.memberID, "force")
}

// SetVideoBanner overlays text on the member's video tile; the literal text
// "reset" clears it server-side.
func (mm MemberModerator) SetVideoBanner(text string) {
	if strings.EqualFold(strings.TrimSpace(text), "reset") {
		mm.manager.moderatorCommand("vid-banner", mm.memberID, text+"\n")
		return
	}
	mm.manager.moderatorCommand("vid-banner", mm.memberID, url.PathEscape(text))
}

func (mm MemberModerator) ClearVideoBanner() {
	mm.manager.moderatorCommand("vid-banner", mm.memberID, "reset")
}

func (mm MemberModerator) IncreaseVolumeOutput() {
	mm.manager.moderatorCommand("volume_out", mm.memberID, "up")
}

func (mm MemberModerator) DecreaseVolumeOutput() {
	mm.manager.moderatorCommand("volume_out", mm.memberID, "down")
}

func (mm MemberModerator) IncreaseVolumeInput() {
	mm.manager.moderatorCommand("volume_in", mm.memberID, "up")
}

func (mm MemberModerator) DecreaseVolumeInput() {
	mm.manager.moderatorCommand("volume_in", mm.memberID, "down")
}

func (mm MemberModerator) TransferTo(destination string) {
	mm.manager.moderatorCommand("transfer", mm.memberID, destination)
}
