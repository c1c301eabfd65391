package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/soyeahso/whatsapp-relay/internal/logging"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
// Credentials are checked separately by RequireCredentials.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Provider validation
	if cfg.Provider.APIBaseURL != "" {
		u, err := url.Parse(cfg.Provider.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "provider.apiBaseUrl",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Provider.APIBaseURL),
			})
		}
	}
	if cfg.Provider.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "provider.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Provider.TimeoutSeconds),
		})
	}

	// Webhook validation
	if cfg.Webhook.Port < 0 || cfg.Webhook.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Webhook.Port),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Webhook.Bind != "" && !slices.Contains(validBinds, cfg.Webhook.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Webhook.Bind),
		})
	}

	if cfg.Webhook.Path != "" && !strings.HasPrefix(cfg.Webhook.Path, "/") {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.path",
			Message: fmt.Sprintf("must start with /, got %q", cfg.Webhook.Path),
		})
	}

	if cfg.Webhook.ValidateSignature && cfg.Webhook.PublicURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.publicUrl",
			Message: "required when validateSignature is enabled",
		})
	}

	if cfg.Webhook.TLS.Enabled && (cfg.Webhook.TLS.CertPath == "" || cfg.Webhook.TLS.KeyPath == "") {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.tls",
			Message: "certPath and keyPath are required when TLS is enabled",
		})
	}

	// Directory validation
	validStores := []string{"sqlite", "memory"}
	if cfg.Directory.Store != "" && !slices.Contains(validStores, cfg.Directory.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "directory.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Directory.Store),
		})
	}

	// Routing validation
	validHandlers := []string{"echo", "log"}
	if cfg.Routing.Handler != "" && !slices.Contains(validHandlers, cfg.Routing.Handler) {
		issues = append(issues, ValidationIssue{
			Path:    "routing.handler",
			Message: fmt.Sprintf("must be one of %v, got %q", validHandlers, cfg.Routing.Handler),
		})
	}

	// Logging validation
	if cfg.Logging.Level != "" && !slices.Contains(logging.ValidLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", logging.ValidLevels, cfg.Logging.Level),
		})
	}

	return issues
}
