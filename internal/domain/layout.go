package domain

// Layout is a server-side conference video layout name.
type Layout string

const (
	LayoutOnlyVideo      Layout = "1x1"
	LayoutVideoLeftSmall Layout = "1up_top_left+9"
	LayoutVideoLeftLarge Layout = "1up_top_left+9_orig"
	LayoutVideoCenter    Layout = "1center_left_10_right_10_bbottom_10"
)

// IceServer mirrors the REST-served ICE server entry.
type IceServer struct {
	URLs     []string `json:"urls"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
}

// RoomLayout is the REST-served default layout record for a room.
type RoomLayout struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Layout  Layout `json:"layout"`
	Key     string `json:"key"`
	Default bool   `json:"default"`
}

// HangupError is published when a bye request is rejected by the server.
type HangupError struct {
	ErrorMessage string
}

// Display is the remote caller identity carried by verto.display.
type Display struct {
	Name   string
	Number string
}
