package sdk

import "time"

// Credentials represents the authentication credentials.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       string    `json:"user_id,omitempty"` // backend user record id used for get-user/update-user
}

func (c *Credentials) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// CredentialStore persists credentials between CLI invocations.
type CredentialStore interface {
	SaveCredentials(creds *Credentials) error
	LoadCredentials() (*Credentials, error)
	DeleteCredentials() error
}
