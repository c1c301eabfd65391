package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soyeahso/whatsapp-relay/internal/address"
	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"github.com/soyeahso/whatsapp-relay/internal/version"
)

// maxResponseBytes bounds how much of a provider response is kept for logs.
const maxResponseBytes = 64 << 10

// Sender posts outbound messages to the provider's Messages resource.
type Sender struct {
	accountSID string
	authToken  string
	endpoint   string
	timeout    time.Duration
	client     *http.Client
	hooks      *hooks.Manager
	log        *logging.Logger

	wg        sync.WaitGroup
	delivered atomic.Int64
	failed    atomic.Int64

	mu      sync.RWMutex
	lastErr string
}

// NewSender creates a Sender for the given provider account. A nil client
// gets a default one bounded by the provider timeout.
func NewSender(p config.ProviderConfig, client *http.Client, h *hooks.Manager, log *logging.Logger) *Sender {
	timeout := p.Timeout()
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	base := p.APIBaseURL
	if base == "" {
		base = config.DefaultAPIBaseURL
	}
	return &Sender{
		accountSID: p.AccountSID,
		authToken:  p.AuthToken,
		endpoint: fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
			strings.TrimRight(base, "/"), url.PathEscape(p.AccountSID)),
		timeout: timeout,
		client:  client,
		hooks:   h,
		log:     log,
	}
}

// Endpoint returns the URL messages are posted to.
func (s *Sender) Endpoint() string { return s.endpoint }

// Send delivers env in the background. Failures are only logged.
func (s *Sender) Send(ctx context.Context, env domain.OutboundEnvelope) {
	s.log.Info().
		Str("to", env.UserID).
		Str("room", env.Room).
		Int("length", len(env.Text)).
		Msg("sending message back")

	// The inbound request that triggered this reply may finish first.
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Deliver(ctx, env)
	}()
}

// Deliver performs one synchronous send attempt. Any non-2xx response or
// transport failure is returned as a *DeliveryError and logged once.
func (s *Sender) Deliver(ctx context.Context, env domain.OutboundEnvelope) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("Body", env.Text)
	form.Set("From", address.Encode(env.Room))
	form.Set("To", address.Encode(env.UserID))
	data := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(data))
	if err != nil {
		return s.fail(ctx, env, &DeliveryError{Err: fmt.Errorf("build request: %w", err)})
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(ctx, env, &DeliveryError{Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.fail(ctx, env, &DeliveryError{Status: resp.StatusCode, Body: string(body), Err: err})
	}

	s.delivered.Add(1)
	s.log.Debug().
		Str("to", env.UserID).
		Int("status", resp.StatusCode).
		Msg("message delivered")
	return nil
}

func (s *Sender) fail(ctx context.Context, env domain.OutboundEnvelope, derr *DeliveryError) error {
	s.failed.Add(1)
	s.mu.Lock()
	s.lastErr = derr.Error()
	s.mu.Unlock()

	evt := s.log.Error().
		Str("to", env.UserID).
		Int("status", derr.Status).
		Str("body", derr.Body)
	if derr.Err != nil {
		evt = evt.Err(derr.Err)
	}
	evt.Msg("error sending message")

	data := map[string]any{
		"to":     env.UserID,
		"room":   env.Room,
		"status": derr.Status,
		"body":   derr.Body,
	}
	if derr.Err != nil {
		data["error"] = derr.Err.Error()
	}
	s.hooks.Emit(ctx, hooks.EventDeliveryFailed, data)
	return derr
}

// Wait blocks until background sends finish or ctx is done.
func (s *Sender) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight sends: %w", ctx.Err())
	}
}

// Stats returns delivery counters and the last failure message.
func (s *Sender) Stats() (delivered, failed int64, lastErr string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delivered.Load(), s.failed.Load(), s.lastErr
}

// IsDeliveryError reports whether err is a *DeliveryError and returns it.
func IsDeliveryError(err error) (*DeliveryError, bool) {
	var derr *DeliveryError
	if errors.As(err, &derr) {
		return derr, true
	}
	return nil, false
}
