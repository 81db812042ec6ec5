package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pterm/pterm"
	slogctx "github.com/veqryn/slog-context"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/client/rp/cli"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// UserIDClaim is the ID token claim carrying the backend user record id.
const UserIDClaim = "user_id"

const defaultPollInterval = 5 * time.Second

var (
	userScopes    = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopeOfflineAccess}
	serviceScopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}
)

// IdentityProvider issues the bearer tokens the blog API accepts. Every
// operation runs OIDC discovery against Issuer first.
type IdentityProvider struct {
	Issuer   string
	ClientID string
	// HTTPClient is used for discovery and token calls. Nil means a client
	// with a 10s timeout.
	HTTPClient *http.Client
}

// DeviceLogin is the outcome of an interactive login.
type DeviceLogin struct {
	Credentials *Credentials
	Subject     string
	Email       string
}

// LoginWithDeviceCode runs the device authorization grant (RFC 8628). The
// user code is printed and the browser opened when possible; the call blocks
// until the user approves, denies or the code expires.
func (p IdentityProvider) LoginWithDeviceCode(ctx context.Context) (*DeviceLogin, error) {
	party, err := p.relyingParty(ctx, "", userScopes)
	if err != nil {
		return nil, err
	}

	auth, err := rp.DeviceAuthorization(ctx, userScopes, party, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start device authorization flow: %w", err)
	}
	printDeviceCodeInstructions(auth)
	if auth.VerificationURIComplete != "" {
		cli.OpenBrowser(auth.VerificationURIComplete)
		slogctx.Debug(ctx, "attempted to open browser", "url", auth.VerificationURIComplete)
	}

	interval := time.Duration(auth.Interval) * time.Second
	if interval == 0 {
		interval = defaultPollInterval
	}
	resp, err := rp.DeviceAccessToken(ctx, auth.DeviceCode, interval, party)
	if err != nil {
		return nil, fmt.Errorf("device authorization was denied or expired: %w", err)
	}

	login := &DeviceLogin{
		Credentials: &Credentials{
			AccessToken:  resp.AccessToken,
			TokenType:    resp.TokenType,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		},
	}
	if resp.IDToken == "" {
		return login, nil
	}

	claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, resp.IDToken, party.IDTokenVerifier())
	if err != nil {
		// the access token is still usable; the user id must come from --user-id
		slogctx.Warn(ctx, "failed to verify ID token", "error", err)
		return login, nil
	}
	login.Credentials.UserID = userIDFromClaims(claims)
	login.Subject = claims.Subject
	login.Email = claims.Email
	return login, nil
}

// userIDFromClaims prefers the explicit user_id claim and falls back to the subject.
func userIDFromClaims(claims *oidc.IDTokenClaims) string {
	if v, ok := claims.Claims[UserIDClaim].(string); ok && v != "" {
		return v
	}
	return claims.Subject
}

// LoginWithServiceAccount exchanges a client id and secret for a token. The
// identity provider knows nothing of blog users, so userID names the record
// the account acts as.
func (p IdentityProvider) LoginWithServiceAccount(ctx context.Context, secret, userID string) (*Credentials, error) {
	if secret == "" {
		return nil, errors.New("service account login needs a client secret")
	}
	party, err := p.relyingParty(ctx, secret, serviceScopes)
	if err != nil {
		return nil, err
	}

	cc := clientcredentials.Config{
		ClientID:     p.ClientID,
		ClientSecret: secret,
		TokenURL:     party.OAuthConfig().Endpoint.TokenURL,
		Scopes:       serviceScopes,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient()))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange client credentials for token: %w", err)
	}
	return credentialsFromToken(tok, userID), nil
}

// Refresh trades creds' refresh token for a new access token, keeping the
// user id and, when the provider does not rotate it, the refresh token.
func (p IdentityProvider) Refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	if creds == nil || creds.RefreshToken == "" {
		return nil, errors.New("no refresh token available")
	}
	party, err := p.relyingParty(ctx, "", userScopes)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient())
	tok, err := party.OAuthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	fresh := credentialsFromToken(tok, creds.UserID)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}
	return fresh, nil
}

func (p IdentityProvider) relyingParty(ctx context.Context, secret string, scopes []string) (rp.RelyingParty, error) {
	party, err := rp.NewRelyingPartyOIDC(ctx, p.Issuer, p.ClientID, secret, "", scopes,
		rp.WithHTTPClient(p.httpClient()))
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider at %s: %w", p.Issuer, err)
	}
	return party, nil
}

func (p IdentityProvider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func credentialsFromToken(tok *oauth2.Token, userID string) *Credentials {
	return &Credentials{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		UserID:       userID,
	}
}

func printDeviceCodeInstructions(auth *oidc.DeviceAuthorizationResponse) {
	pterm.DefaultSection.Println("Device login")
	pterm.Info.Printf("Enter code %s at:\n", pterm.Bold.Sprint(auth.UserCode))
	pterm.Printf("  %s\n", auth.VerificationURI)
	if auth.VerificationURIComplete != "" {
		pterm.Printf("  %s (code included)\n", auth.VerificationURIComplete)
	}
	pterm.Println()
	pterm.Info.Println("Waiting for authorization...")
}

// EnvCreds holds service account settings read from the environment.
type EnvCreds struct {
	ClientID     string
	ClientSecret string
	UserID       string
}

// CheckEnvCreds reports whether BLOGDESK_CLIENT_ID and BLOGDESK_CLIENT_SECRET are both set.
func CheckEnvCreds() (bool, EnvCreds) {
	creds := EnvCreds{
		ClientID:     os.Getenv("BLOGDESK_CLIENT_ID"),
		ClientSecret: os.Getenv("BLOGDESK_CLIENT_SECRET"),
		UserID:       os.Getenv("BLOGDESK_USER_ID"),
	}
	return creds.ClientID != "" && creds.ClientSecret != "", creds
}
