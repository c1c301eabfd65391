package whatsapp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/whatsapp-relay/internal/address"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
)

// Resolver maps a canonical sender to its session.
type Resolver interface {
	Resolve(ctx context.Context, from, to string) (*domain.Session, error)
}

// Processor turns provider callbacks into normalized messages.
type Processor struct {
	resolver       Resolver
	rejectMismatch bool
	log            *logging.Logger
	now            func() time.Time
}

// NewProcessor creates a Processor. When rejectMismatch is false a callback
// carrying a foreign AccountSid is logged and then processed anyway.
func NewProcessor(resolver Resolver, rejectMismatch bool, log *logging.Logger) *Processor {
	return &Processor{
		resolver:       resolver,
		rejectMismatch: rejectMismatch,
		log:            log,
		now:            time.Now,
	}
}

// Handle validates the payload against expectedSID, decodes both addresses,
// resolves the sender's session and returns the normalized message.
func (p *Processor) Handle(ctx context.Context, payload domain.InboundPayload, expectedSID string) (domain.NormalizedMessage, error) {
	if subtle.ConstantTimeCompare([]byte(payload.AccountSID), []byte(expectedSID)) != 1 {
		p.log.Error().
			Str("messageSid", payload.MessageSID).
			Bool("rejected", p.rejectMismatch).
			Msg("the incoming message holds a wrong SID")
		if p.rejectMismatch {
			return domain.NormalizedMessage{}, ErrAccountMismatch
		}
	}

	from, err := address.Decode(payload.From)
	if err != nil {
		return domain.NormalizedMessage{}, fmt.Errorf("decoding From: %w", err)
	}
	to, err := address.Decode(payload.To)
	if err != nil {
		return domain.NormalizedMessage{}, fmt.Errorf("decoding To: %w", err)
	}

	sess, err := p.resolver.Resolve(ctx, from, to)
	if err != nil {
		return domain.NormalizedMessage{}, err
	}

	p.log.Info().
		Str("messageSid", payload.MessageSID).
		Str("from", from).
		Str("sessionId", sess.ID).
		Msg("received a new message")

	return domain.NormalizedMessage{
		Session:    sess,
		Text:       strings.TrimSpace(payload.Body),
		MessageID:  payload.MessageSID,
		ReceivedAt: p.now(),
	}, nil
}
