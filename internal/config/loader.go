package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so the account SID and token can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Provider.AccountSID = expandEnvVars(cfg.Provider.AccountSID)
	cfg.Provider.AuthToken = expandEnvVars(cfg.Provider.AuthToken)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Provider.APIBaseURL == "" {
		cfg.Provider.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = DefaultPort
	}
	if cfg.Webhook.Bind == "" {
		cfg.Webhook.Bind = "auto"
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = DefaultWebhookPath
	}
	if cfg.Directory.Store == "" {
		cfg.Directory.Store = "sqlite"
	}
	if cfg.Directory.DefaultLanguage == "" {
		cfg.Directory.DefaultLanguage = DefaultLanguage
	}
	if cfg.Routing.Handler == "" {
		cfg.Routing.Handler = "log"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides reads the provider and WHATSAPP_* environment variables
// and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Provider.AccountSID = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_TOKEN"); v != "" {
		cfg.Provider.AuthToken = v
	}
	if v := os.Getenv("WHATSAPP_RELAY_API_BASE_URL"); v != "" {
		cfg.Provider.APIBaseURL = v
	}
	if v := os.Getenv("WHATSAPP_ADAPTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Webhook.Port = port
		}
	}
	if v := os.Getenv("WHATSAPP_RELAY_BIND"); v != "" {
		cfg.Webhook.Bind = v
	}
	if v := os.Getenv("WHATSAPP_RELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
