package domain

// ParticipantAudio is the decoded audio state of a conference member.
type ParticipantAudio struct {
	Muted   bool
	Talking bool
}

// ParticipantVideo is the decoded video state of a conference member. Muted
// is only trusted when the member's media flow is two-way; one-way members
// are reported muted regardless of what the wire says.
type ParticipantVideo struct {
	Muted bool
	Floor bool
}

// Participant is a read-only projection of one live array value. It is
// rebuilt on every add/modify event and never persisted.
type Participant struct {
	CallID            string
	ParticipantID     string
	User              string
	DisplayName       string
	ChannelName       string
	Audio             ParticipantAudio
	Video             ParticipantVideo
	Me                bool
	ShowMe            bool
	IsHost            bool
	IsCoHost          bool
	IsHostSharedVideo bool
	IsMobileApp       bool
	IsPrimaryCall     bool
	UserID            string
}
