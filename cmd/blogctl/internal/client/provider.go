package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/auth"
	"github.com/terraconstructs/blogdesk/pkg/env"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
	"github.com/terraconstructs/blogdesk/pkg/session"
)

// ErrNotLoggedIn is returned when no usable credentials or session exist.
var ErrNotLoggedIn = auth.ErrNotLoggedIn

// Provider yields HTTP clients, the SDK client and the hydrated session,
// each built once and backed by the credential store.
type Provider struct {
	env         *env.Environment
	store       sdk.CredentialStore
	bearerToken string // ephemeral token that bypasses the credential store
	bearerUser  string

	httpOnce sync.Once
	httpCli  *http.Client
	httpErr  error

	credentialsOnce sync.Once
	credentials     *sdk.Credentials
	credentialsErr  error

	sdkOnce   sync.Once
	sdkClient *sdk.Client
	sdkErr    error

	sessionOnce sync.Once
	session     *session.Store
	sessionErr  error
}

// NewProvider constructs a Provider for cfg. store may be nil when only an
// ephemeral bearer token is used.
func NewProvider(cfg *env.Environment, store sdk.CredentialStore) *Provider {
	return &Provider{env: cfg, store: store}
}

// SetBearerToken injects an ephemeral bearer token for testing (bypasses credential store).
func (p *Provider) SetBearerToken(token, userID string) {
	p.bearerToken = token
	p.bearerUser = userID
}

// UseCredentials seeds the provider with freshly issued credentials. It only
// has an effect before the first call to Credentials.
func (p *Provider) UseCredentials(creds *sdk.Credentials) {
	p.credentialsOnce.Do(func() {
		p.credentials = creds
	})
}

// Store returns the credential store, which may be nil.
func (p *Provider) Store() sdk.CredentialStore {
	return p.store
}

// Credentials returns the stored credentials, refreshing them once when they
// have expired and a refresh token is available.
func (p *Provider) Credentials(ctx context.Context) (*sdk.Credentials, error) {
	p.credentialsOnce.Do(func() {
		if p.bearerToken != "" {
			p.credentials = &sdk.Credentials{AccessToken: p.bearerToken, TokenType: "Bearer", UserID: p.bearerUser}
			return
		}
		if p.store == nil {
			p.credentialsErr = ErrNotLoggedIn
			return
		}

		creds, err := p.store.LoadCredentials()
		if err != nil {
			p.credentialsErr = err
			return
		}

		if creds.IsExpired() {
			creds, err = p.refresh(ctx, creds)
			if err != nil {
				p.credentialsErr = err
				return
			}
		}

		p.credentials = creds
	})
	if p.credentialsErr != nil {
		return nil, p.credentialsErr
	}

	return p.credentials, nil
}

func (p *Provider) refresh(ctx context.Context, creds *sdk.Credentials) (*sdk.Credentials, error) {
	if creds.RefreshToken == "" || p.env.RequireIdentityProvider() != nil {
		return nil, errors.New("access token expired; please run `blogctl auth login`")
	}

	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()

	idp := p.env.IdentityProvider
	fresh, err := sdk.IdentityProvider{Issuer: idp.Issuer, ClientID: idp.ClientID}.Refresh(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("access token expired and refresh failed: %w", err)
	}
	if err := p.store.SaveCredentials(fresh); err != nil {
		slogctx.Warn(ctx, "failed to persist refreshed credentials", "error", err)
	}
	slogctx.Debug(ctx, "access token refreshed", "expires_at", fresh.ExpiresAt)
	return fresh, nil
}

// HTTPClient returns the credentialed http.Client. It always carries a cookie
// jar; the bearer transport is added only when credentials are available.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	p.httpOnce.Do(func() {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			p.httpErr = fmt.Errorf("failed to create cookie jar: %w", err)
			return
		}

		creds, err := p.Credentials(ctx)
		if err != nil {
			if !errors.Is(err, ErrNotLoggedIn) && p.store != nil {
				slogctx.Warn(ctx, "proceeding without credentials", "error", err)
			}
			p.httpCli = &http.Client{Jar: jar, Timeout: p.env.RequestTimeout}
			return
		}

		token := &oauth2.Token{
			AccessToken:  creds.AccessToken,
			TokenType:    creds.TokenType,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.ExpiresAt,
		}

		source := oauth2.StaticTokenSource(token)
		cli := oauth2.NewClient(context.Background(), source)
		cli.Jar = jar
		cli.Timeout = p.env.RequestTimeout
		p.httpCli = cli
	})

	if p.httpErr != nil {
		return nil, p.httpErr
	}

	return p.httpCli, nil
}

// AnonymousHTTPClient serves requests that omit credentials.
func (p *Provider) AnonymousHTTPClient() *http.Client {
	return &http.Client{Timeout: p.env.RequestTimeout}
}

// SDKClient returns an SDK client backed by HTTPClient.
func (p *Provider) SDKClient(ctx context.Context) (*sdk.Client, error) {
	p.sdkOnce.Do(func() {
		httpClient, err := p.HTTPClient(ctx)
		if err != nil {
			p.sdkErr = err
			return
		}

		p.sdkClient = sdk.NewClient(p.env.APIBaseURL,
			sdk.WithHTTPClient(httpClient),
			sdk.WithAnonymousHTTPClient(p.AnonymousHTTPClient()),
		)
	})

	if p.sdkErr != nil {
		return nil, p.sdkErr
	}

	return p.sdkClient, nil
}

// Session returns the process session store, hydrated from the stored
// credentials. A rejected session leaves the store unauthenticated; only
// transport failures are returned as errors.
func (p *Provider) Session(ctx context.Context) (*session.Store, error) {
	p.sessionOnce.Do(func() {
		store := session.NewStore()
		p.session = store

		creds, err := p.Credentials(ctx)
		if err != nil || creds.UserID == "" {
			return
		}

		client, err := p.SDKClient(ctx)
		if err != nil {
			p.sessionErr = err
			return
		}

		if err := session.Hydrate(ctx, store, client, creds.UserID); err != nil && !sdk.IsUnauthorized(err) {
			p.sessionErr = err
		}
	})

	return p.session, p.sessionErr
}

// Authenticated returns the logged-in user, or ErrNotLoggedIn.
func (p *Provider) Authenticated(ctx context.Context) (sdk.UserProfile, *session.Store, error) {
	store, err := p.Session(ctx)
	if err != nil {
		return sdk.UserProfile{}, nil, err
	}
	u, ok := store.Read().User()
	if !ok {
		return sdk.UserProfile{}, store, ErrNotLoggedIn
	}
	return u, store, nil
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	return ctxWithTimeout, cancel
}
