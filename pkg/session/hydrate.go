package session

import (
	"context"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

// UserLoader fetches a user record by id. *sdk.Client satisfies it.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*sdk.UserProfile, error)
}

// CredentialDeleter removes persisted credentials.
type CredentialDeleter interface {
	DeleteCredentials() error
}

// Hydrate loads the record for userID and marks the session authenticated.
// A 401/403 means the session is no longer valid and clears the store.
// An empty userID leaves the store as it is.
func Hydrate(ctx context.Context, store *Store, loader UserLoader, userID string) error {
	if userID == "" {
		return nil
	}

	user, err := loader.GetUser(ctx, userID)
	if err != nil {
		if sdk.IsUnauthorized(err) {
			slogctx.Warn(ctx, "session rejected by backend, clearing", "user_id", userID)
			store.Clear()
		}
		return fmt.Errorf("load session user %s: %w", userID, err)
	}

	store.SetAuthenticated(*user)
	slogctx.Debug(ctx, "session hydrated", "user_id", user.ID, "role", user.Role)
	return nil
}

// SignOut deletes persisted credentials and clears the store. The store is
// cleared even when deletion fails.
func SignOut(store *Store, deleter CredentialDeleter) error {
	store.Clear()
	if deleter == nil {
		return nil
	}
	if err := deleter.DeleteCredentials(); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
