package auth

import (
	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
	"github.com/terraconstructs/blogdesk/pkg/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from the blog platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		if err := session.SignOut(session.NewStore(), cfg.ClientProvider.Store()); err != nil {
			return oops.In("auth").Wrapf(err, "logout")
		}

		pterm.Success.Println("Logged out successfully")
		return nil
	},
}
