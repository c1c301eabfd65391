package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/directory"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/identity"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	channel  *Channel
	dir      *directory.Memory
	received []domain.NormalizedMessage
	rejected []hooks.Payload
}

func newWebhookFixture(t *testing.T, mutate func(*config.Config)) *webhookFixture {
	t.Helper()
	cfg := testConfig("http://127.0.0.1:1")
	if mutate != nil {
		mutate(&cfg)
	}

	f := &webhookFixture{dir: directory.NewMemory()}
	h := hooks.NewManager(logging.Nop())
	h.On(hooks.EventMessageRejected, "test", func(_ context.Context, p hooks.Payload) error {
		f.rejected = append(f.rejected, p)
		return nil
	})

	f.channel = New(cfg, identity.New(f.dir, "AR", logging.Nop()), logging.Nop(), WithHooks(h))
	f.channel.OnMessage(func(msg domain.NormalizedMessage) {
		f.received = append(f.received, msg)
	})
	return f
}

func (f *webhookFixture) post(contentType, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.channel.Handler().ServeHTTP(rec, req)
	return rec
}

func formBody(sid string) url.Values {
	return url.Values{
		"AccountSid": {sid},
		"From":       {"whatsapp:+15550001111"},
		"To":         {"whatsapp:+15559998888"},
		"MessageSid": {"SM1"},
		"Body":       {" hello "},
	}
}

const formType = "application/x-www-form-urlencoded"

func assertAcknowledged(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, EmptyResponse, rec.Body.String())
}

func TestWebhook_FormMessage(t *testing.T) {
	f := newWebhookFixture(t, nil)

	rec := f.post(formType, formBody(testSID).Encode(), nil)
	assertAcknowledged(t, rec)

	require.Len(t, f.received, 1)
	msg := f.received[0]
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "SM1", msg.MessageID)
	assert.Equal(t, "+15550001111", msg.Session.UserID)
	assert.Equal(t, "+15559998888", msg.Session.Room)
	assert.Equal(t, "AR", msg.Session.Language)
}

func TestWebhook_JSONMessage(t *testing.T) {
	f := newWebhookFixture(t, nil)

	body := `{"AccountSid":"ACXXX","From":"whatsapp:+15550001111","To":"whatsapp:+15559998888","MessageSid":"SM1","Body":" hello "}`
	rec := f.post("application/json; charset=utf-8", body, nil)
	assertAcknowledged(t, rec)

	require.Len(t, f.received, 1)
	assert.Equal(t, "hello", f.received[0].Text)
}

func TestWebhook_MismatchedAccountAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, nil)

	rec := f.post(formType, formBody("ACOTHER").Encode(), nil)
	assertAcknowledged(t, rec)

	assert.Empty(t, f.received)
	require.Len(t, f.rejected, 1)

	list, err := f.dir.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWebhook_MismatchedAccountAllowed(t *testing.T) {
	f := newWebhookFixture(t, func(cfg *config.Config) {
		allow := false
		cfg.Webhook.RejectMismatchedAccount = &allow
	})

	rec := f.post(formType, formBody("ACOTHER").Encode(), nil)
	assertAcknowledged(t, rec)
	assert.Len(t, f.received, 1)
}

func TestWebhook_MalformedInputAcknowledged(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"bad json", "application/json", `{"AccountSid":`},
		{"bad form escape", formType, "Body=%zz"},
		{"missing addresses", formType, "AccountSid=ACXXX&Body=hi"},
		{"empty body", formType, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWebhookFixture(t, nil)
			rec := f.post(tt.contentType, tt.body, nil)
			assertAcknowledged(t, rec)
			assert.Empty(t, f.received)
			assert.Len(t, f.rejected, 1)
		})
	}
}

func TestWebhook_OversizedBodyRejected(t *testing.T) {
	f := newWebhookFixture(t, nil)

	// Addresses come first so a truncated read would still parse as a
	// complete message with a cut-off Body.
	body := "AccountSid=" + testSID +
		"&From=whatsapp%3A%2B15550001111&To=whatsapp%3A%2B15559998888&MessageSid=SM1" +
		"&Body=" + strings.Repeat("a", 2*maxWebhookBody)

	rec := f.post(formType, body, nil)
	assertAcknowledged(t, rec)

	assert.Empty(t, f.received)
	require.Len(t, f.rejected, 1)
	assert.Contains(t, f.rejected[0].Data["error"], ErrPayloadTooLarge.Error())
}

func TestWebhook_Signature(t *testing.T) {
	const publicURL = "https://relay.example.com/messages"
	enable := func(cfg *config.Config) {
		cfg.Webhook.ValidateSignature = true
		cfg.Webhook.PublicURL = publicURL
	}

	t.Run("valid", func(t *testing.T) {
		f := newWebhookFixture(t, enable)
		params := formBody(testSID)
		header := http.Header{SignatureHeader: {Signature(testToken, publicURL, params)}}

		rec := f.post(formType, params.Encode(), header)
		assertAcknowledged(t, rec)
		assert.Len(t, f.received, 1)
	})

	t.Run("invalid", func(t *testing.T) {
		f := newWebhookFixture(t, enable)
		header := http.Header{SignatureHeader: {"bm90LWEtc2lnbmF0dXJl"}}

		rec := f.post(formType, formBody(testSID).Encode(), header)
		assertAcknowledged(t, rec)
		assert.Empty(t, f.received)
		require.Len(t, f.rejected, 1)
		assert.Contains(t, f.rejected[0].Data["error"], "signature")
	})

	t.Run("missing", func(t *testing.T) {
		f := newWebhookFixture(t, enable)
		rec := f.post(formType, formBody(testSID).Encode(), nil)
		assertAcknowledged(t, rec)
		assert.Empty(t, f.received)
	})
}
