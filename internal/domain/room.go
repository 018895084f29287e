package domain

// Room is a named chat channel with a live occupancy counter.
type Room struct {
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

// Binding is the (user, room) pair currently associated with a connection.
type Binding struct {
	ConnID string `json:"connId"`
	User   string `json:"user"`
	Room   string `json:"room"`
}
