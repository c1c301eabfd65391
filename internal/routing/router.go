// Package routing connects the messaging channel to the handling engine.
package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
)

// Handler produces the reply for a normalized inbound message. An empty
// reply means nothing is sent back.
type Handler interface {
	Handle(ctx context.Context, msg domain.NormalizedMessage) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg domain.NormalizedMessage) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, msg domain.NormalizedMessage) (string, error) {
	return f(ctx, msg)
}

// EchoHandler replies with the received text.
var EchoHandler = HandlerFunc(func(_ context.Context, msg domain.NormalizedMessage) (string, error) {
	return msg.Text, nil
})

// LogHandler never replies. The router still logs and emits every message.
var LogHandler = HandlerFunc(func(context.Context, domain.NormalizedMessage) (string, error) {
	return "", nil
})

// HandlerByName returns a built-in handler ("echo" or "log").
func HandlerByName(name string) (Handler, error) {
	switch name {
	case "echo":
		return EchoHandler, nil
	case "log", "":
		return LogHandler, nil
	default:
		return nil, fmt.Errorf("unknown routing handler: %q", name)
	}
}

// Router routes inbound messages to the handler and replies to the channel.
type Router struct {
	channel domain.Channel
	handler Handler
	hooks   *hooks.Manager
	log     *logging.Logger

	wg sync.WaitGroup
}

// NewRouter creates a message router.
func NewRouter(ch domain.Channel, handler Handler, h *hooks.Manager, log *logging.Logger) *Router {
	if handler == nil {
		handler = LogHandler
	}
	return &Router{
		channel: ch,
		handler: handler,
		hooks:   h,
		log:     log.Sub("routing"),
	}
}

// HandleInbound runs the handler for msg and sends a non-empty reply back
// to the session's user from the session's room.
func (r *Router) HandleInbound(ctx context.Context, msg domain.NormalizedMessage) {
	if msg.Session == nil {
		r.log.Error().Str("messageId", msg.MessageID).Msg("inbound message has no session")
		return
	}

	r.log.Info().
		Str("channel", r.channel.ID()).
		Str("from", msg.Session.UserID).
		Str("room", msg.Session.Room).
		Str("messageId", msg.MessageID).
		Msg("routing inbound message")

	r.hooks.Emit(ctx, hooks.EventMessageReceived, map[string]any{
		"channel":   r.channel.ID(),
		"sessionId": msg.Session.ID,
		"userId":    msg.Session.UserID,
		"room":      msg.Session.Room,
		"messageId": msg.MessageID,
		"text":      msg.Text,
	})

	reply, err := r.handler.Handle(ctx, msg)
	if err != nil {
		r.log.Error().Err(err).
			Str("from", msg.Session.UserID).
			Str("messageId", msg.MessageID).
			Msg("handler failed")
		return
	}
	if reply == "" {
		r.log.Debug().Str("messageId", msg.MessageID).Msg("no reply")
		return
	}

	env := domain.EnvelopeFor(msg.Session, reply)
	r.hooks.Emit(ctx, hooks.EventMessageSending, map[string]any{
		"channel": r.channel.ID(),
		"to":      env.UserID,
		"room":    env.Room,
		"text":    env.Text,
	})
	r.channel.Send(ctx, env)

	r.log.Info().
		Str("channel", r.channel.ID()).
		Str("to", env.UserID).
		Str("sessionId", msg.Session.ID).
		Msg("reply queued")
}

// Wire registers HandleInbound as the channel's message handler. Each
// message is handled in its own goroutine.
func (r *Router) Wire() {
	r.channel.OnMessage(func(msg domain.NormalizedMessage) {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.HandleInbound(context.Background(), msg)
		}()
	})
	r.log.Debug().Str("channel", r.channel.ID()).Msg("wired message handler")
}

// Wait blocks until every message handed over by Wire has been handled.
func (r *Router) Wait() {
	r.wg.Wait()
}
