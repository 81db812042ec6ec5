package auth

import (
	"errors"
	"time"

	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/client"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		provider := config.MustFromContext(ctx).ClientProvider

		creds, err := provider.Credentials(ctx)
		if err != nil {
			return oops.In("auth").Hint("run `blogctl auth login`").Wrap(err)
		}

		pterm.DefaultSection.Println("Authentication Status")
		if !creds.ExpiresAt.IsZero() {
			pterm.Info.Printf("Logged in with token expiring at: %s\n", creds.ExpiresAt.Format(time.RFC1123))
		}

		if creds.UserID == "" {
			return oops.In("auth").Hint("please re-login").Errorf("no user id found in credentials")
		}

		user, sess, err := provider.Authenticated(ctx)
		if errors.Is(err, client.ErrNotLoggedIn) {
			pterm.Warning.Println("Stored credentials were rejected by the server.")
			return oops.In("auth").Hint("run `blogctl auth login`").Wrap(err)
		}
		if err != nil {
			return oops.In("auth").Wrapf(err, "loading profile")
		}

		pterm.DefaultSection.Println("Session")
		pterm.Info.Printf("User:  %s <%s>\n", user.Name, user.Email)
		pterm.Info.Printf("ID:    %s\n", user.ID)
		pterm.Info.Printf("Role:  %s (admin: %t)\n", user.Role, sess.Read().IsAdmin())
		return nil
	},
}
