// Package env resolves deployment configuration for blogdesk clients.
//
// Values are read once per process. Sources, lowest precedence first:
//
//  1. Built-in defaults
//  2. Optional YAML file named by BLOGDESK_CONFIG
//  3. Environment variables (API_BASE_URL, IDP_ISSUER, IDP_CLIENT_ID, REQUEST_TIMEOUT)
//
// A missing API_BASE_URL is a startup failure, never a per-request one.
package env

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Recognized environment keys.
const (
	KeyAPIBaseURL     = "API_BASE_URL"
	KeyIDPIssuer      = "IDP_ISSUER"
	KeyIDPClientID    = "IDP_CLIENT_ID"
	KeyRequestTimeout = "REQUEST_TIMEOUT"
	KeyConfigFile     = "BLOGDESK_CONFIG"
)

// ErrMissingConfig is matched by every ConfigError caused by an absent value.
var ErrMissingConfig = errors.New("missing required configuration")

// ConfigError reports a configuration value that is absent or malformed.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IdentityProvider holds the keys of the external identity provider.
type IdentityProvider struct {
	Issuer   string `yaml:"issuer"`
	ClientID string `yaml:"clientID"`
}

// Environment is the resolved deployment configuration.
type Environment struct {
	// APIBaseURL is the root for all backend endpoints, without a trailing slash.
	APIBaseURL string `yaml:"apiBaseURL"`

	IdentityProvider IdentityProvider `yaml:"identityProvider"`

	// RequestTimeout bounds each backend request. Zero disables the client-side timeout.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// RequireIdentityProvider reports whether the login feature can be used.
func (e *Environment) RequireIdentityProvider() error {
	if e.IdentityProvider.Issuer == "" {
		return &ConfigError{Key: KeyIDPIssuer, Err: ErrMissingConfig}
	}
	if e.IdentityProvider.ClientID == "" {
		return &ConfigError{Key: KeyIDPClientID, Err: ErrMissingConfig}
	}
	return nil
}

// LookupFunc matches the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds an Environment from lookup. It performs no caching.
func Load(lookup LookupFunc) (*Environment, error) {
	cfg := &Environment{}

	if path, ok := lookup(KeyConfigFile); ok && path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, &ConfigError{Key: KeyConfigFile, Err: err}
		}
	}

	if v, ok := lookup(KeyAPIBaseURL); ok && v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := lookup(KeyIDPIssuer); ok && v != "" {
		cfg.IdentityProvider.Issuer = v
	}
	if v, ok := lookup(KeyIDPClientID); ok && v != "" {
		cfg.IdentityProvider.ClientID = v
	}
	if v, ok := lookup(KeyRequestTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, &ConfigError{Key: KeyRequestTimeout, Err: err}
		}
		cfg.RequestTimeout = d
	}

	base, err := NormalizeBaseURL(cfg.APIBaseURL)
	if err != nil {
		return nil, err
	}
	cfg.APIBaseURL = base

	return cfg, nil
}

// NormalizeBaseURL validates an API root and strips its trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ConfigError{Key: KeyAPIBaseURL, Err: ErrMissingConfig}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ConfigError{Key: KeyAPIBaseURL, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &ConfigError{Key: KeyAPIBaseURL, Err: fmt.Errorf("%q is not an absolute http(s) URL", raw)}
	}
	return strings.TrimRight(raw, "/"), nil
}

func loadFile(path string, cfg *Environment) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

var (
	resolveOnce sync.Once
	resolved    *Environment
	resolveErr  error
)

// Resolve returns the process environment, loading it on first use.
func Resolve() (*Environment, error) {
	resolveOnce.Do(func() {
		resolved, resolveErr = Load(os.LookupEnv)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	// callers may adjust their copy (e.g. a CLI flag override)
	cp := *resolved
	return &cp, nil
}
