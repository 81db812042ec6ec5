package config

import (
	"context"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/client"
	"github.com/terraconstructs/blogdesk/pkg/env"
)

type contextKey string

const configKey contextKey = "blogctl-config"

// GlobalConfig holds shared configuration for all blogctl commands.
// The root command's PersistentPreRunE injects it into the cobra context.
type GlobalConfig struct {
	Env            *env.Environment
	NonInteractive bool
	ClientProvider *client.Provider
}

// InjectConfig adds config to the cobra command context.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from the cobra command context.
// Returns (nil, false) if config is not present.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from context or panics.
// Only command RunE functions, which always run after the root hook, use it.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("blogctl: config not found in context - this is a bug in blogctl")
	}
	return cfg
}
