// Package whatsapp implements the WhatsApp Business channel: the inbound
// provider webhook, the outbound Messages API sender and the adapter that
// binds them to the relay.
package whatsapp

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
)

// ChannelID identifies this channel in hooks and status output.
const ChannelID = "whatsapp"

var _ domain.Channel = (*Channel)(nil)

// Channel implements domain.Channel for WhatsApp Business.
type Channel struct {
	cfg     config.Config
	sender  *Sender
	webhook *Webhook
	log     *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.NormalizedMessage)
	running bool
}

// Option configures a Channel.
type Option func(*options)

type options struct {
	hooks  *hooks.Manager
	client *http.Client
}

// WithHooks emits channel events on the given manager.
func WithHooks(h *hooks.Manager) Option {
	return func(o *options) { o.hooks = h }
}

// WithHTTPClient overrides the client used for outbound sends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// New creates a WhatsApp channel from configuration.
func New(cfg config.Config, resolver Resolver, log *logging.Logger, opts ...Option) *Channel {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	l := log.Sub(ChannelID).Tagged(logging.AdapterTag)
	c := &Channel{
		cfg:    cfg,
		sender: NewSender(cfg.Provider, o.client, o.hooks, l),
		log:    l,
	}
	c.webhook = &Webhook{
		processor:         NewProcessor(resolver, cfg.Webhook.RejectsMismatchedAccount(), l),
		accountSID:        cfg.Provider.AccountSID,
		authToken:         cfg.Provider.AuthToken,
		validateSignature: cfg.Webhook.ValidateSignature,
		publicURL:         cfg.Webhook.PublicURL,
		dispatch:          c.dispatch,
		hooks:             o.hooks,
		log:               l,
	}
	return c
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.NormalizedMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Handler returns the webhook handler to mount on the gateway.
func (c *Channel) Handler() http.Handler { return c.webhook }

// Path returns the route the webhook is expected at.
func (c *Channel) Path() string {
	if c.cfg.Webhook.Path == "" {
		return config.DefaultWebhookPath
	}
	return c.cfg.Webhook.Path
}

// Sender exposes the outbound sender.
func (c *Channel) Sender() *Sender { return c.sender }

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	running := c.running
	c.mu.RUnlock()

	delivered, failed, lastErr := c.sender.Stats()
	return domain.ChannelStatus{
		ChannelID: ChannelID,
		AccountID: c.cfg.Provider.AccountSID,
		Running:   running,
		Delivered: delivered,
		Failed:    failed,
		LastError: lastErr,
	}
}

// Start checks the credentials and begins accepting inbound messages.
func (c *Channel) Start(ctx context.Context) error {
	if err := config.RequireCredentials(&c.cfg); err != nil {
		return err
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.log.Info().
		Str("path", c.Path()).
		Str("api", c.sender.Endpoint()).
		Msg("running with the WhatsApp Business adapter")
	return nil
}

// Stop stops accepting messages and waits for in-flight sends until ctx is done.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.log.Info().Msg("stopping WhatsApp Business adapter")
	return c.sender.Wait(ctx)
}

// Send delivers env.Text in the background.
func (c *Channel) Send(ctx context.Context, env domain.OutboundEnvelope) {
	c.sender.Send(ctx, env)
}

// SendLines joins lines with newlines and sends them as one message.
func (c *Channel) SendLines(ctx context.Context, env domain.OutboundEnvelope, lines ...string) {
	env.Text = strings.Join(lines, "\n")
	c.sender.Send(ctx, env)
}

// Reply sends one message per line, each addressed to the user by name.
func (c *Channel) Reply(ctx context.Context, env domain.OutboundEnvelope, lines ...string) {
	for _, line := range lines {
		e := env
		e.Text = env.UserName + ": " + line
		c.sender.Send(ctx, e)
	}
}

// Emote is not supported by the provider; the lines are only logged.
func (c *Channel) Emote(_ context.Context, env domain.OutboundEnvelope, lines ...string) {
	c.log.Info().Str("room", env.Room).Strs("lines", lines).Msg("emoting")
}

// Topic is not supported by the provider; the lines are only logged.
func (c *Channel) Topic(_ context.Context, env domain.OutboundEnvelope, lines ...string) {
	c.log.Info().Str("room", env.Room).Strs("lines", lines).Msg("setting topic")
}

func (c *Channel) dispatch(msg domain.NormalizedMessage) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}
