package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/auth"
	"github.com/terraconstructs/blogdesk/internal/mockapi"
	"github.com/terraconstructs/blogdesk/pkg/env"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

func setup(t *testing.T) (*mockapi.Backend, *env.Environment, *auth.FileStore) {
	t.Helper()
	backend := mockapi.Seed()
	backend.RequireToken("good-token")
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	store, err := auth.NewFileStoreAt(t.TempDir())
	require.NoError(t, err)
	return backend, &env.Environment{APIBaseURL: srv.URL}, store
}

func TestProvider_HydratesFromStoredCredentials(t *testing.T) {
	_, cfg, store := setup(t)
	require.NoError(t, store.SaveCredentials(&sdk.Credentials{
		AccessToken: "good-token",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		UserID:      "u-admin",
	}))

	p := NewProvider(cfg, store)
	u, sess, err := p.Authenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Grace Admin", u.Name)
	assert.True(t, sess.Read().IsAdmin())

	// memoized
	again, err := p.Session(context.Background())
	require.NoError(t, err)
	assert.Same(t, sess, again)

	httpCli, err := p.HTTPClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, httpCli.Jar)
}

func TestProvider_NotLoggedIn(t *testing.T) {
	_, cfg, store := setup(t)

	p := NewProvider(cfg, store)
	_, sess, err := p.Authenticated(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	require.NotNil(t, sess)
	assert.False(t, sess.Read().IsAuthenticated())

	// anonymous calls still work
	c, err := p.SDKClient(context.Background())
	require.NoError(t, err)
	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestProvider_RejectedTokenLeavesSessionUnauthenticated(t *testing.T) {
	_, cfg, store := setup(t)
	require.NoError(t, store.SaveCredentials(&sdk.Credentials{
		AccessToken: "revoked",
		ExpiresAt:   time.Now().Add(time.Hour),
		UserID:      "u-reader",
	}))

	p := NewProvider(cfg, store)
	_, _, err := p.Authenticated(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProvider_ExpiredWithoutRefresh(t *testing.T) {
	_, cfg, store := setup(t)
	require.NoError(t, store.SaveCredentials(&sdk.Credentials{
		AccessToken: "good-token",
		ExpiresAt:   time.Now().Add(-time.Minute),
		UserID:      "u-reader",
	}))

	p := NewProvider(cfg, store)
	_, err := p.Credentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestProvider_BearerToken(t *testing.T) {
	_, cfg, _ := setup(t)

	p := NewProvider(cfg, nil)
	p.SetBearerToken("good-token", "u-reader")
	u, _, err := p.Authenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-reader", u.ID)
}

func TestProvider_UseCredentials(t *testing.T) {
	_, cfg, store := setup(t)

	p := NewProvider(cfg, store)
	p.UseCredentials(&sdk.Credentials{AccessToken: "good-token", ExpiresAt: time.Now().Add(time.Hour), UserID: "u-reader"})
	u, _, err := p.Authenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada Reader", u.Name)
}
