package whatsapp

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
)

const (
	testSID   = "ACXXX"
	testToken = "secret-token"
)

// capturedRequest is what the fake provider saw.
type capturedRequest struct {
	Method        string
	Path          string
	Header        http.Header
	Body          string
	ContentLength int64
}

// fakeProvider records every request and answers with status and body.
type fakeProvider struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func newFakeProvider(t *testing.T, status int, body string) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}
	fp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		fp.mu.Lock()
		fp.requests = append(fp.requests, capturedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Header:        r.Header.Clone(),
			Body:          string(data),
			ContentLength: r.ContentLength,
		})
		fp.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) Requests() []capturedRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]capturedRequest(nil), fp.requests...)
}

func testConfig(apiBase string) config.Config {
	cfg := config.Defaults()
	cfg.Provider.AccountSID = testSID
	cfg.Provider.AuthToken = testToken
	cfg.Provider.APIBaseURL = apiBase
	return cfg
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) countLevel(level string) int {
	return strings.Count(b.String(), `"level":"`+level+`"`)
}

func testLogger(w io.Writer) *logging.Logger {
	return logging.New(w, "debug")
}
