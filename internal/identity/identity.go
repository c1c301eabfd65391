// Package identity maps canonical sender addresses to directory sessions.
package identity

import (
	"context"
	"fmt"

	"github.com/soyeahso/whatsapp-relay/internal/directory"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Resolver finds or creates the session for an inbound sender.
type Resolver struct {
	dir      directory.Directory
	hooks    *hooks.Manager
	language string
	log      *logging.Logger

	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHooks emits session_created on the given manager.
func WithHooks(h *hooks.Manager) Option {
	return func(r *Resolver) { r.hooks = h }
}

// New creates a Resolver. New sessions get the given default language.
func New(dir directory.Directory, language string, log *logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		dir:      dir,
		language: language,
		log:      log.Sub("identity"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the session for the canonical address from, creating it
// with room set to to when the sender is unknown. A new session's display
// name starts out as the sender's address. Existing sessions are returned
// as stored; their room is not updated.
//
// Concurrent calls for the same sender share one directory lookup. The
// shared lookup does not inherit any single caller's cancellation; a caller
// whose ctx ends stops waiting without failing the others.
func (r *Resolver) Resolve(ctx context.Context, from, to string) (*domain.Session, error) {
	ch := r.group.DoChan(from, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		sess, created, err := r.dir.GetOrCreate(ctx, from, domain.SessionAttrs{
			Room:     to,
			Language: r.language,
			Name:     from,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving session for %s: %w", from, err)
		}
		if created {
			r.log.Info().
				Str("userId", sess.UserID).
				Str("room", sess.Room).
				Str("sessionId", sess.ID).
				Msg("a new customer joined the line")
			r.hooks.Emit(ctx, hooks.EventSessionCreated, map[string]any{
				"sessionId": sess.ID,
				"userId":    sess.UserID,
				"room":      sess.Room,
			})
		}
		return sess, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resolving session for %s: %w", from, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Session), nil
	}
}
