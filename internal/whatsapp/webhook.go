package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
)

const (
	// EmptyResponse is the TwiML document acknowledging every callback.
	EmptyResponse = "<Response></Response>"

	maxWebhookBody = 1 << 20 // 1MB
)

// Webhook is the HTTP endpoint the provider posts inbound messages to.
// It always acknowledges with 200 and an empty TwiML response.
type Webhook struct {
	processor  *Processor
	accountSID string
	authToken  string

	validateSignature bool
	publicURL         string

	dispatch func(msg domain.NormalizedMessage)
	hooks    *hooks.Manager
	log      *logging.Logger
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	defer acknowledge(rw)

	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: over %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		}
		w.reject(r, domain.InboundPayload{}, fmt.Errorf("reading body: %w", err))
		return
	}

	payload, params, err := parsePayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		w.reject(r, payload, err)
		return
	}

	if w.validateSignature {
		fullURL := w.publicURL
		if r.URL.RawQuery != "" {
			fullURL += "?" + r.URL.RawQuery
		}
		if !ValidSignature(w.authToken, fullURL, params, r.Header.Get(SignatureHeader)) {
			w.reject(r, payload, ErrInvalidSignature)
			return
		}
	}

	msg, err := w.processor.Handle(r.Context(), payload, w.accountSID)
	if err != nil {
		w.reject(r, payload, err)
		return
	}

	if w.dispatch != nil {
		w.dispatch(msg)
	}
}

func (w *Webhook) reject(r *http.Request, payload domain.InboundPayload, err error) {
	// The processor has already logged the mismatch.
	if !errors.Is(err, ErrAccountMismatch) {
		w.log.Error().
			Err(err).
			Str("messageSid", payload.MessageSID).
			Str("remote", r.RemoteAddr).
			Msg("dropping inbound message")
	}
	w.hooks.Emit(r.Context(), hooks.EventMessageRejected, map[string]any{
		"messageSid": payload.MessageSID,
		"error":      err.Error(),
	})
}

func acknowledge(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "text/html")
	rw.WriteHeader(http.StatusOK)
	io.WriteString(rw, EmptyResponse)
}

// parsePayload decodes a callback body. Form bodies also return their
// parameters for signature validation; JSON bodies return none.
func parsePayload(contentType string, body []byte) (domain.InboundPayload, url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var p domain.InboundPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return p, nil, fmt.Errorf("decoding JSON payload: %w", err)
		}
		return p, url.Values{}, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return domain.InboundPayload{}, nil, fmt.Errorf("decoding form payload: %w", err)
	}
	return domain.InboundPayload{
		AccountSID:  values.Get("AccountSid"),
		From:        values.Get("From"),
		To:          values.Get("To"),
		MessageSID:  values.Get("MessageSid"),
		Body:        values.Get("Body"),
		ProfileName: values.Get("ProfileName"),
		NumMedia:    values.Get("NumMedia"),
	}, values, nil
}
