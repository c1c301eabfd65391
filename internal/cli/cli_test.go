package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command against an isolated home directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("WHATSAPP_RELAY_HOME", home)
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_ACCOUNT_TOKEN", "")
	t.Setenv("WHATSAPP_RELAY_API_BASE_URL", "")
	return home
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "whatsapp-relay")
}

func TestConfigValidate_MissingCredentials(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "account SID")
}

func TestConfigValidate_OK(t *testing.T) {
	isolate(t)
	t.Setenv("TWILIO_ACCOUNT_SID", "ACXXX")
	t.Setenv("TWILIO_ACCOUNT_TOKEN", "secret")

	out, err := runCLI(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Config OK")
}

func TestConfigSetGetUnset(t *testing.T) {
	home := isolate(t)

	_, err := runCLI(t, "config", "set", "webhook.port", "4000")
	require.NoError(t, err)

	raw, err := config.LoadRaw(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)
	val, ok := config.GetValueAtPath(raw, []string{"webhook", "port"})
	require.True(t, ok)
	assert.Equal(t, 4000, val)

	_, err = runCLI(t, "config", "unset", "webhook.port")
	require.NoError(t, err)

	_, err = runCLI(t, "config", "get", "webhook.port")
	assert.Error(t, err)

	_, err = runCLI(t, "config", "set", "agents.model", "x")
	assert.Error(t, err, "unknown sections are rejected")
}

func TestSendCmd_ValidatesNumbers(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "send", "--from", "whatsapp:+1555", "--to", "+15550001111", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")
}

func TestSendCmd_Delivers(t *testing.T) {
	isolate(t)

	var gotPath string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotForm, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	t.Setenv("TWILIO_ACCOUNT_SID", "ACXXX")
	t.Setenv("TWILIO_ACCOUNT_TOKEN", "secret")
	t.Setenv("WHATSAPP_RELAY_API_BASE_URL", srv.URL)

	out, err := runCLI(t, "send", "--from", "+15559998888", "--to", "+15550001111", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, out, "Sent to +15550001111")

	assert.Equal(t, "/2010-04-01/Accounts/ACXXX/Messages.json", gotPath)
	assert.Equal(t, "hello there", gotForm.Get("Body"))
	assert.Equal(t, "whatsapp:+15559998888", gotForm.Get("From"))
	assert.Equal(t, "whatsapp:+15550001111", gotForm.Get("To"))
}

func TestSendCmd_ProviderError(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"invalid To"}`)
	}))
	defer srv.Close()

	t.Setenv("TWILIO_ACCOUNT_SID", "ACXXX")
	t.Setenv("TWILIO_ACCOUNT_TOKEN", "secret")
	t.Setenv("WHATSAPP_RELAY_API_BASE_URL", srv.URL)

	_, err := runCLI(t, "send", "--from", "+15559998888", "--to", "+15550001111", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid To")
}

func TestStatusCmd_NotRunning(t *testing.T) {
	isolate(t)
	t.Setenv("WHATSAPP_ADAPTER_PORT", "1")
	t.Setenv("TWILIO_ACCOUNT_TOKEN", "abcdef123456")

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Relay:     not running")
	assert.Contains(t, out, "****3456")
	assert.NotContains(t, out, "abcdef123456")
}

func TestOpenDirectory_SQLite(t *testing.T) {
	home := isolate(t)
	_, err := runCLI(t, "version") // resolves paths and the logger
	require.NoError(t, err)

	dir, closeDir, err := openDirectory(config.DirectoryConfig{Store: "sqlite"})
	require.NoError(t, err)
	defer closeDir()
	require.NotNil(t, dir)

	_, err = os.Stat(filepath.Join(home, "data", "directory.db"))
	assert.NoError(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(unset)", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "****5678", maskSecret("12345678"))
}
