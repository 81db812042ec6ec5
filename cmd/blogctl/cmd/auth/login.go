package auth

import (
	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

var (
	clientID     string
	clientSecret string
	serviceUser  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the blog platform",
	Long: `Authenticates against the identity provider configured by IDP_ISSUER and
IDP_CLIENT_ID, stores the credentials and loads your profile.

Two methods are supported:
1. Interactive Login (default): Initiates a device authorization flow for human users.
2. Service Account Login: Uses a client ID and secret for non-interactive authentication.
   Use the --client-id, --client-secret and --as-user flags, or the BLOGDESK_CLIENT_ID,
   BLOGDESK_CLIENT_SECRET and BLOGDESK_USER_ID environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.MustFromContext(ctx)
		errb := oops.In("auth")

		if clientID == "" && clientSecret == "" {
			if ok, env := sdk.CheckEnvCreds(); ok {
				pterm.Info.Println("Using service account credentials from environment variables.")
				clientID = env.ClientID
				clientSecret = env.ClientSecret
				if serviceUser == "" {
					serviceUser = env.UserID
				}
			}
		}

		idp := cfg.Env.IdentityProvider
		if idp.Issuer == "" {
			if err := cfg.Env.RequireIdentityProvider(); err != nil {
				return errb.Hint("set IDP_ISSUER and IDP_CLIENT_ID").Wrap(err)
			}
		}

		var creds *sdk.Credentials
		if clientID != "" && clientSecret != "" {
			pterm.Info.Println("Authenticating as service account...")
			sa, err := sdk.IdentityProvider{Issuer: idp.Issuer, ClientID: clientID}.
				LoginWithServiceAccount(ctx, clientSecret, serviceUser)
			if err != nil {
				return errb.Wrapf(err, "service account login")
			}
			creds = sa
		} else {
			if err := cfg.Env.RequireIdentityProvider(); err != nil {
				return errb.Hint("set IDP_ISSUER and IDP_CLIENT_ID").Wrap(err)
			}
			if cfg.NonInteractive {
				return errb.Errorf("device login needs a browser; use --client-id/--client-secret in non-interactive mode")
			}
			login, err := sdk.IdentityProvider{Issuer: idp.Issuer, ClientID: idp.ClientID}.LoginWithDeviceCode(ctx)
			if err != nil {
				return errb.Wrapf(err, "device login")
			}
			creds = login.Credentials
			pterm.Info.Printf("Authenticated as: %s (%s)\n", login.Subject, login.Email)
		}

		provider := cfg.ClientProvider
		if err := provider.Store().SaveCredentials(creds); err != nil {
			return errb.Wrapf(err, "failed to save credentials")
		}
		provider.UseCredentials(creds)

		user, _, err := provider.Authenticated(ctx)
		if err != nil {
			pterm.Warning.Printf("Logged in, but the profile could not be loaded: %v\n", err)
			return nil
		}

		pterm.Success.Printf("Logged in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&clientID, "client-id", "", "Client ID for service account authentication")
	loginCmd.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret for service account authentication")
	loginCmd.Flags().StringVar(&serviceUser, "as-user", "", "Backend user id the service account acts as")
}
