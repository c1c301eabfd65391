package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundPayloadWireNames(t *testing.T) {
	raw := `{"AccountSid":"ACXXX","From":"whatsapp:+15550001111","To":"whatsapp:+15559998888","MessageSid":"SM1","Body":" hello ","ProfileName":"Ana"}`

	var p InboundPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "ACXXX", p.AccountSID)
	assert.Equal(t, "whatsapp:+15550001111", p.From)
	assert.Equal(t, "whatsapp:+15559998888", p.To)
	assert.Equal(t, "SM1", p.MessageSID)
	assert.Equal(t, " hello ", p.Body)
	assert.Equal(t, "Ana", p.ProfileName)
	assert.Empty(t, p.NumMedia)
}

func TestEnvelopeFor(t *testing.T) {
	sess := &Session{
		ID:       "sess-1",
		UserID:   "+15550001111",
		Room:     "+15559998888",
		Language: "AR",
		Name:     "Ana",
	}

	env := EnvelopeFor(sess, "hi")
	assert.Equal(t, OutboundEnvelope{
		Room:     "+15559998888",
		UserID:   "+15550001111",
		UserName: "Ana",
		Text:     "hi",
	}, env)
}

func TestSessionJSON_OmitsEmptyName(t *testing.T) {
	sess := Session{
		ID:        "sess-1",
		UserID:    "+15550001111",
		Room:      "+15559998888",
		Language:  "AR",
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(sess)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"name"`)
	assert.Contains(t, string(data), `"room":"+15559998888"`)
}
