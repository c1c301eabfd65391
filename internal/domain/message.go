package domain

import "time"

// InboundPayload is the provider's webhook callback body.
type InboundPayload struct {
	AccountSID  string `json:"AccountSid"`
	From        string `json:"From"`
	To          string `json:"To"`
	MessageSID  string `json:"MessageSid"`
	Body        string `json:"Body"`
	ProfileName string `json:"ProfileName,omitempty"`
	NumMedia    string `json:"NumMedia,omitempty"`
}

// NormalizedMessage is an inbound message ready for the handling engine.
type NormalizedMessage struct {
	Session    *Session  `json:"session"`
	Text       string    `json:"text"`
	MessageID  string    `json:"messageId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// OutboundEnvelope addresses a reply. Room is the business number the
// reply is sent from; UserID is the recipient.
type OutboundEnvelope struct {
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Text     string `json:"text"`
}

// EnvelopeFor builds a reply envelope addressed back to the session's user.
func EnvelopeFor(s *Session, text string) OutboundEnvelope {
	return OutboundEnvelope{
		Room:     s.Room,
		UserID:   s.UserID,
		UserName: s.Name,
		Text:     text,
	}
}
