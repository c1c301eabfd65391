package domain

import "time"

// Session associates a remote user with the business number they wrote to
// and a locale. It is created on the first inbound message from UserID.
// UserID and Room are canonical addresses; Room is the counterpart number.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Room      string    `json:"room"`
	Language  string    `json:"language"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionAttrs are applied to a session when it is first created.
type SessionAttrs struct {
	Room     string `json:"room"`
	Language string `json:"language"`
	Name     string `json:"name,omitempty"`
}
