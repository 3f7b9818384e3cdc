package types

// Status is the derived presence tier of an account.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusOffline Status = "offline"
)

// Message is a single room-history entry. Entries are stored verbatim in
// the history snapshot and replayed as-is to clients, so the field names
// are part of the wire format.
type Message struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Ts       int64  `json:"ts"`
}

// RoomInfo is the projection of a room served by the rooms listing.
// Members and pending are intentionally not exposed here.
type RoomInfo struct {
	Room     string `json:"room"`
	Admin    string `json:"admin"`
	OpenJoin bool   `json:"open_join"`
	Visible  bool   `json:"visible"`
}

// MemberPresence is the per-member projection served by the presence
// listing: derived status plus the free-form activity label.
type MemberPresence struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
	Activity string `json:"activity"`
}
