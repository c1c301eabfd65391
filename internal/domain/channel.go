package domain

import "context"

// ChannelStatus reports the runtime state of a channel.
type ChannelStatus struct {
	ChannelID string `json:"channelId"`
	AccountID string `json:"accountId,omitempty"`
	Running   bool   `json:"running"`
	Delivered int64  `json:"delivered"`
	Failed    int64  `json:"failed"`
	LastError string `json:"lastError,omitempty"`
}

// Channel is the interface a messaging channel implementation must satisfy.
type Channel interface {
	// ID returns the channel identifier (e.g., "whatsapp").
	ID() string

	// Start begins accepting inbound messages.
	Start(ctx context.Context) error

	// Stop waits for in-flight deliveries and stops the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message. Delivery may complete after Send returns.
	Send(ctx context.Context, env OutboundEnvelope)

	// OnMessage registers a handler for normalized inbound messages.
	OnMessage(handler func(msg NormalizedMessage))
}
