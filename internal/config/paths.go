package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const defaultBaseDir = ".whatsapp-relay"

// Paths holds resolved filesystem paths for relay data.
type Paths struct {
	Base      string // ~/.whatsapp-relay
	Config    string // ~/.whatsapp-relay/config.yaml
	Data      string // ~/.whatsapp-relay/data
	Directory string // ~/.whatsapp-relay/data/directory.db
}

// ResolvePaths computes all standard paths from the home directory.
// If WHATSAPP_RELAY_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("WHATSAPP_RELAY_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	data := filepath.Join(base, "data")
	return Paths{
		Base:      base,
		Config:    filepath.Join(base, "config.yaml"),
		Data:      data,
		Directory: filepath.Join(data, "directory.db"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// sections are the top-level keys a config path may start with.
var sections = []string{"provider", "webhook", "directory", "routing", "logging"}

// ParseConfigPath splits a dot-separated config path into segments.
// Returns an error if any segment is empty or the root is not a known section.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
	}
	if !slices.Contains(sections, parts[0]) {
		return nil, &ConfigError{Message: "unknown config section: " + parts[0]}
	}
	return parts, nil
}

// GetValueAtPath traverses a nested map using the given path segments.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetValueAtPath sets a value in a nested map, creating intermediate maps as needed.
func SetValueAtPath(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

// UnsetValueAtPath removes a value at the given path. Returns true if removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	current := root
	for _, key := range path[:len(path)-1] {
		m, ok := current[key].(map[string]any)
		if !ok {
			return false
		}
		current = m
	}
	last := path[len(path)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}
