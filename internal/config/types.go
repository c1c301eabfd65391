package config

// Config is the root configuration for the relay.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider,omitempty"`
	Webhook   WebhookConfig   `yaml:"webhook,omitempty"`
	Directory DirectoryConfig `yaml:"directory,omitempty"`
	Routing   RoutingConfig   `yaml:"routing,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ProviderConfig holds the messaging provider account and API settings.
type ProviderConfig struct {
	AccountSID     string `yaml:"accountSid,omitempty"`
	AuthToken      string `yaml:"authToken,omitempty"`
	APIBaseURL     string `yaml:"apiBaseUrl,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// WebhookConfig controls the inbound webhook HTTP server.
type WebhookConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	Path           string     `yaml:"path,omitempty"`
	TLS            WebhookTLS `yaml:"tls,omitempty"`

	// RejectMismatchedAccount stops processing of callbacks whose AccountSid
	// differs from the configured one. The callback is still acknowledged.
	RejectMismatchedAccount *bool `yaml:"rejectMismatchedAccount,omitempty"`

	// ValidateSignature enables X-Twilio-Signature checking. PublicURL must be
	// the externally visible URL the provider posts to.
	ValidateSignature bool   `yaml:"validateSignature,omitempty"`
	PublicURL         string `yaml:"publicUrl,omitempty"`
}

// RejectsMismatchedAccount reports the effective mismatch policy (default true).
func (w WebhookConfig) RejectsMismatchedAccount() bool {
	if w.RejectMismatchedAccount == nil {
		return true
	}
	return *w.RejectMismatchedAccount
}

// WebhookTLS configures TLS for the webhook listener.
type WebhookTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// DirectoryConfig selects the user directory backing store.
type DirectoryConfig struct {
	Store           string `yaml:"store,omitempty"` // "sqlite" | "memory"
	Path            string `yaml:"path,omitempty"`
	DefaultLanguage string `yaml:"defaultLanguage,omitempty"`
}

// RoutingConfig selects how normalized messages are handled.
type RoutingConfig struct {
	Handler string `yaml:"handler,omitempty"` // "echo" | "log"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
