package config

import (
	"fmt"
	"time"
)

const (
	DefaultPort           = 3000
	DefaultAPIBaseURL     = "https://api.twilio.com"
	DefaultWebhookPath    = "/messages"
	DefaultLanguage       = "AR"
	DefaultTimeoutSeconds = 15
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			APIBaseURL:     DefaultAPIBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Webhook: WebhookConfig{
			Port: DefaultPort,
			Bind: "auto",
			Path: DefaultWebhookPath,
		},
		Directory: DirectoryConfig{
			Store:           "sqlite",
			DefaultLanguage: DefaultLanguage,
		},
		Routing: RoutingConfig{
			Handler: "log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// RequireCredentials fails unless both the account SID and the auth token
// are present. The relay must not start without them.
func RequireCredentials(cfg *Config) error {
	if cfg.Provider.AccountSID == "" {
		return &ConfigError{Message: "provider account SID has to be set to start the adapter (TWILIO_ACCOUNT_SID)"}
	}
	if cfg.Provider.AuthToken == "" {
		return &ConfigError{Message: "provider auth token has to be set to start the adapter (TWILIO_ACCOUNT_TOKEN)"}
	}
	return nil
}

// Timeout returns the outbound request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}
