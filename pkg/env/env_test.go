package env

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantURL string
		wantErr string
	}{
		{
			name:    "base url with trailing slash",
			vars:    map[string]string{KeyAPIBaseURL: "http://localhost:3000/api/"},
			wantURL: "http://localhost:3000/api",
		},
		{
			name:    "missing base url",
			vars:    map[string]string{},
			wantErr: KeyAPIBaseURL,
		},
		{
			name:    "relative base url",
			vars:    map[string]string{KeyAPIBaseURL: "/api"},
			wantErr: "absolute",
		},
		{
			name:    "bad timeout",
			vars:    map[string]string{KeyAPIBaseURL: "http://x", KeyRequestTimeout: "soon"},
			wantErr: KeyRequestTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(lookupFrom(tt.vars))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var cfgErr *ConfigError
				assert.True(t, errors.As(err, &cfgErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.APIBaseURL)
		})
	}
}

func TestLoad_MissingBaseURLIsSentinel(t *testing.T) {
	_, err := Load(lookupFrom(nil))
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogdesk.yaml")
	content := []byte(`apiBaseURL: http://file.example/api
identityProvider:
  issuer: https://idp.file.example
  clientID: file-client
requestTimeout: 5s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(lookupFrom(map[string]string{
		KeyConfigFile:  path,
		KeyIDPClientID: "env-client",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://file.example/api", cfg.APIBaseURL)
	assert.Equal(t, "https://idp.file.example", cfg.IdentityProvider.Issuer)
	assert.Equal(t, "env-client", cfg.IdentityProvider.ClientID)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := Load(lookupFrom(map[string]string{
		KeyConfigFile: filepath.Join(t.TempDir(), "nope.yaml"),
		KeyAPIBaseURL: "http://x",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyConfigFile)
}

func TestRequireIdentityProvider(t *testing.T) {
	cfg := &Environment{APIBaseURL: "http://x"}
	err := cfg.RequireIdentityProvider()
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), KeyIDPIssuer)

	cfg.IdentityProvider.Issuer = "https://idp"
	err = cfg.RequireIdentityProvider()
	assert.Contains(t, err.Error(), KeyIDPClientID)

	cfg.IdentityProvider.ClientID = "client"
	assert.NoError(t, cfg.RequireIdentityProvider())
}
